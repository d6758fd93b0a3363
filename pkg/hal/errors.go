// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package hal

import "github.com/pkg/errors"

var (
	// ErrChannelsExhausted is returned when a channel allocator has no channels left.
	ErrChannelsExhausted = errors.New("pwm channels exhausted")
	IsChannelsExhausted  = isErrorFunc(ErrChannelsExhausted)
	// ErrNotAttached is returned when writing to a channel that was never attached.
	ErrNotAttached = errors.New("pwm channel not attached")
	IsNotAttached  = isErrorFunc(ErrNotAttached)
	// ErrInvalidResolution is returned when a resolution outside 1..MaxResolution is requested.
	ErrInvalidResolution = errors.New("invalid pwm resolution")

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
