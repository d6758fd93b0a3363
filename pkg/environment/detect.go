//    Copyright 2018 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Package environment detects properties of the host the controller runs on.
package environment

import (
	"strings"

	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

// bridgeTypeOf returns the bridge type for the given machine & kernel release.
func bridgeTypeOf(machine, release string) string {
	if !strings.HasPrefix(machine, "arm") && machine != "aarch64" {
		return bridge.TypeVirtual
	}
	if strings.Contains(release, "sunxi") {
		return bridge.TypeOrangePiZero
	}
	return bridge.TypeRaspberryPi
}

// utsString converts a NUL terminated uname field into a string.
func utsString(field []byte) string {
	if i := strings.IndexByte(string(field), 0); i >= 0 {
		field = field[:i]
	}
	return strings.TrimSpace(string(field))
}
