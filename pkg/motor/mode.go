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

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode identifies how a motor driver chip is wired to the controller.
type Mode uint8

const (
	// DirPWM uses a direction pin and a PWM (speed) pin.
	DirPWM Mode = iota
	// PWMPWM uses two PWM pins, one per motor terminal.
	PWMPWM
	// DirDirPWM uses two direction pins and a PWM (enable) pin.
	DirDirPWM
	// DirDir uses two direction pins and runs at full speed only.
	DirDir
)

var modeNames = map[Mode]string{
	DirPWM:    "dir-pwm",
	PWMPWM:    "pwm-pwm",
	DirDirPWM: "dir-dir-pwm",
	DirDir:    "dir-dir",
}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if name, found := modeNames[m]; found {
		return name
	}
	return "unknown"
}

// ParseMode parses a mode name as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidMode, "'%s'", s)
}

// Valid returns true for one of the known modes.
func (m Mode) Valid() bool {
	_, found := modeNames[m]
	return found
}

// NeedsPWMPin returns true when the mode uses a separate PWM pin.
func (m Mode) NeedsPWMPin() bool {
	return m == DirPWM || m == DirDirPWM
}

// UsesPWM returns true when the mode writes duty cycles.
func (m Mode) UsesPWM() bool {
	return m != DirDir
}

// UsesDigital returns true when the mode writes digital direction pins.
func (m Mode) UsesDigital() bool {
	return m != PWMPWM
}

// BrakePolarity selects the PWM duty written when braking a DirPWM motor.
type BrakePolarity uint8

const (
	// BrakeLow writes duty 0 to the PWM pin while the direction pin is high.
	BrakeLow BrakePolarity = iota
	// BrakeHigh writes the maximum duty to the PWM pin while the direction pin is high.
	BrakeHigh
)

// String returns the configuration name of the polarity.
func (p BrakePolarity) String() string {
	if p == BrakeHigh {
		return "high"
	}
	return "low"
}

// ParseBrakePolarity parses "low" or "high". An empty string yields BrakeLow.
func ParseBrakePolarity(s string) (BrakePolarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "low":
		return BrakeLow, nil
	case "high":
		return BrakeHigh, nil
	default:
		return BrakeLow, errors.Wrapf(ErrInvalidBrakePolarity, "'%s'", s)
	}
}
