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

import "testing"

func TestModeNames(t *testing.T) {
	for _, mode := range allModes {
		parsed, err := ParseMode(mode.String())
		if err != nil {
			t.Errorf("ParseMode(%s) failed: %v", mode, err)
		} else if parsed != mode {
			t.Errorf("ParseMode(%s): expected %d, got %d", mode, mode, parsed)
		}
	}
	if m, err := ParseMode(" DIR-DIR-PWM "); err != nil || m != DirDirPWM {
		t.Errorf("Expected DirDirPWM, got %s, %v", m, err)
	}
	if _, err := ParseMode("pwm"); !IsInvalidMode(err) {
		t.Errorf("Expected invalid mode error, got %v", err)
	}
	if Mode(9).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", Mode(9))
	}
}

func TestModeCapabilities(t *testing.T) {
	tests := []struct {
		mode                         Mode
		pwmPin, usesPWM, usesDigital bool
	}{
		{DirPWM, true, true, true},
		{PWMPWM, false, true, false},
		{DirDirPWM, true, true, true},
		{DirDir, false, false, true},
	}
	for _, tt := range tests {
		if tt.mode.NeedsPWMPin() != tt.pwmPin {
			t.Errorf("%s: NeedsPWMPin expected %v", tt.mode, tt.pwmPin)
		}
		if tt.mode.UsesPWM() != tt.usesPWM {
			t.Errorf("%s: UsesPWM expected %v", tt.mode, tt.usesPWM)
		}
		if tt.mode.UsesDigital() != tt.usesDigital {
			t.Errorf("%s: UsesDigital expected %v", tt.mode, tt.usesDigital)
		}
	}
}

func TestParseBrakePolarity(t *testing.T) {
	tests := map[string]BrakePolarity{
		"":     BrakeLow,
		"low":  BrakeLow,
		"High": BrakeHigh,
	}
	for input, expected := range tests {
		p, err := ParseBrakePolarity(input)
		if err != nil {
			t.Errorf("ParseBrakePolarity('%s') failed: %v", input, err)
		} else if p != expected {
			t.Errorf("ParseBrakePolarity('%s'): expected %s, got %s", input, expected, p)
		}
	}
	if _, err := ParseBrakePolarity("floating"); err == nil {
		t.Error("Expected error for unknown polarity")
	}
}
