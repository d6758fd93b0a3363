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

package motor

import "github.com/pkg/errors"

var (
	// ErrInvalidMode is returned for unknown mode names or values.
	ErrInvalidMode = errors.New("invalid motor mode")
	IsInvalidMode  = isErrorFunc(ErrInvalidMode)
	// ErrModePinMismatch is returned when the number of pins does not match the mode.
	ErrModePinMismatch = errors.New("mode does not match pin configuration")
	IsModePinMismatch  = isErrorFunc(ErrModePinMismatch)
	// ErrMissingDependency is returned when a required platform provider is nil.
	ErrMissingDependency = errors.New("missing platform dependency")
	IsMissingDependency  = isErrorFunc(ErrMissingDependency)
	// ErrInvalidBrakePolarity is returned for unknown brake polarity names.
	ErrInvalidBrakePolarity = errors.New("invalid brake polarity")

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
