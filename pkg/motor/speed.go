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

const (
	// MaxSpeed is the full forward speed.
	MaxSpeed = 100
	// MinSpeed is the full reverse speed.
	MinSpeed = -100
)

// ClampSpeed limits the given speed to MinSpeed..MaxSpeed.
func ClampSpeed(speed int) int {
	if speed > MaxSpeed {
		return MaxSpeed
	}
	if speed < MinSpeed {
		return MinSpeed
	}
	return speed
}

// DutyForSpeed converts the magnitude of a (clamped) speed into a duty cycle
// in the range 0..maxDuty, rounding half away from zero.
func DutyForSpeed(speed int, maxDuty uint32) uint32 {
	speed = ClampSpeed(speed)
	if speed < 0 {
		speed = -speed
	}
	return uint32((uint64(speed)*uint64(maxDuty)*2 + MaxSpeed) / (2 * MaxSpeed))
}
