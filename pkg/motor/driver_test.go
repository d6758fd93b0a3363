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
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/MotorControl/pkg/hal"
	"github.com/binkynet/MotorControl/pkg/hal/haltest"
)

const (
	testPin1   hal.Pin = 4
	testPin2   hal.Pin = 5
	testPWMPin hal.Pin = 6
)

// newTestDriver creates a driver for the given mode on a recording board.
func newTestDriver(t *testing.T, mode Mode, opts ...func(*Config)) (*Driver, *haltest.Board) {
	t.Helper()
	board := haltest.NewBoard()
	cfg := Config{Mode: mode, Pin1: testPin1, Pin2: testPin2}
	if mode.NeedsPWMPin() {
		pwmPin := testPWMPin
		cfg.PWMPin = &pwmPin
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	d, err := New(context.Background(), cfg, Dependencies{
		Digital: board,
		PWM:     hal.NewPinPWM(board),
		Log:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New(%s) failed: %v", mode, err)
	}
	return d, board
}

var allModes = []Mode{DirPWM, PWMPWM, DirDirPWM, DirDir}

// pinState is the expected state of the test pins after an operation.
type pinState struct {
	pin1, pin2 bool
	duty1      uint32 // PWMPWM only
	duty2      uint32 // PWMPWM only
	duty       uint32 // DirPWM & DirDirPWM only
}

func assertPins(t *testing.T, mode Mode, board *haltest.Board, want pinState) {
	t.Helper()
	switch mode {
	case PWMPWM:
		if got := board.Duty(testPin1); got != want.duty1 {
			t.Errorf("%s: pin1 duty: expected %d, got %d", mode, want.duty1, got)
		}
		if got := board.Duty(testPin2); got != want.duty2 {
			t.Errorf("%s: pin2 duty: expected %d, got %d", mode, want.duty2, got)
		}
	case DirDir:
		if got := board.Level(testPin1); got != want.pin1 {
			t.Errorf("%s: pin1: expected %v, got %v", mode, want.pin1, got)
		}
		if got := board.Level(testPin2); got != want.pin2 {
			t.Errorf("%s: pin2: expected %v, got %v", mode, want.pin2, got)
		}
	default:
		if got := board.Level(testPin1); got != want.pin1 {
			t.Errorf("%s: pin1: expected %v, got %v", mode, want.pin1, got)
		}
		if got := board.Level(testPin2); got != want.pin2 {
			t.Errorf("%s: pin2: expected %v, got %v", mode, want.pin2, got)
		}
		if got := board.Duty(testPWMPin); got != want.duty {
			t.Errorf("%s: pwm duty: expected %d, got %d", mode, want.duty, got)
		}
	}
}

func TestNewPutsPinsInOffState(t *testing.T) {
	for _, mode := range allModes {
		d, board := newTestDriver(t, mode)
		if d.Mode() != mode {
			t.Errorf("Expected mode %s, got %s", mode, d.Mode())
		}
		if d.Speed() != 0 {
			t.Errorf("%s: expected speed 0, got %d", mode, d.Speed())
		}
		switch mode {
		case PWMPWM:
			if !board.IsAttached(testPin1) || !board.IsAttached(testPin2) {
				t.Errorf("%s: expected both pins attached for PWM", mode)
			}
			if board.IsOutput(testPin1) || board.IsOutput(testPin2) {
				t.Errorf("%s: expected no digital outputs", mode)
			}
		case DirDir:
			if !board.IsOutput(testPin1) || !board.IsOutput(testPin2) {
				t.Errorf("%s: expected both pins configured as output", mode)
			}
		default:
			if !board.IsOutput(testPin1) || !board.IsOutput(testPin2) {
				t.Errorf("%s: expected direction pins configured as output", mode)
			}
			if !board.IsAttached(testPWMPin) {
				t.Errorf("%s: expected pwm pin attached", mode)
			}
		}
		assertPins(t, mode, board, pinState{})
	}
}

func TestNewWithDefaults(t *testing.T) {
	_, board := newTestDriver(t, DirDirPWM)
	for _, e := range board.Events() {
		if e.Op == haltest.OpAttach {
			if e.Frequency != hal.DefaultFrequency {
				t.Errorf("Expected default frequency, got %d", e.Frequency)
			}
			if e.Resolution != hal.DefaultResolution {
				t.Errorf("Expected default resolution, got %d", e.Resolution)
			}
		}
	}
}

func TestSetSpeedDispatch(t *testing.T) {
	tests := []struct {
		mode  Mode
		speed int
		want  pinState
	}{
		{DirPWM, 50, pinState{pin1: false, duty: 128}},
		{DirPWM, -50, pinState{pin1: true, duty: 128}},
		{DirPWM, 100, pinState{pin1: false, duty: 255}},
		{DirPWM, 0, pinState{pin1: false, duty: 0}},
		{PWMPWM, 50, pinState{duty1: 0, duty2: 128}},
		{PWMPWM, -50, pinState{duty1: 128, duty2: 0}},
		{PWMPWM, -100, pinState{duty1: 255, duty2: 0}},
		{DirDirPWM, 50, pinState{pin1: true, pin2: false, duty: 128}},
		{DirDirPWM, -50, pinState{pin1: false, pin2: true, duty: 128}},
		{DirDirPWM, 0, pinState{pin1: true, pin2: false, duty: 0}},
		{DirDir, 5, pinState{pin1: true, pin2: false}},
		{DirDir, -5, pinState{pin1: false, pin2: true}},
		{DirDir, 100, pinState{pin1: true, pin2: false}},
		{DirDir, -100, pinState{pin1: false, pin2: true}},
	}
	for _, tt := range tests {
		d, board := newTestDriver(t, tt.mode)
		if err := d.SetSpeed(context.Background(), tt.speed); err != nil {
			t.Fatalf("%s: SetSpeed(%d) failed: %v", tt.mode, tt.speed, err)
		}
		assertPins(t, tt.mode, board, tt.want)
	}
}

func TestSetSpeedClamps(t *testing.T) {
	ctx := context.Background()
	for _, mode := range allModes {
		d, _ := newTestDriver(t, mode)
		for speed := -1000; speed <= 1000; speed += 7 {
			if err := d.SetSpeed(ctx, speed); err != nil {
				t.Fatalf("SetSpeed(%d) failed: %v", speed, err)
			}
			if got, want := d.Speed(), ClampSpeed(speed); got != want {
				t.Errorf("%s: SetSpeed(%d): expected speed %d, got %d", mode, speed, want, got)
			}
		}
		d.SetSpeed(ctx, 150)
		if d.Speed() != 100 {
			t.Errorf("%s: expected 100 after 150, got %d", mode, d.Speed())
		}
		d.SetSpeed(ctx, -999)
		if d.Speed() != -100 {
			t.Errorf("%s: expected -100 after -999, got %d", mode, d.Speed())
		}
	}
}

func TestSetSpeedOverRangeUsesFullDuty(t *testing.T) {
	d, board := newTestDriver(t, DirDirPWM)
	if err := d.SetSpeed(context.Background(), -3000); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	assertPins(t, DirDirPWM, board, pinState{pin1: false, pin2: true, duty: 255})
}

func TestDirDirIgnoresMagnitude(t *testing.T) {
	ctx := context.Background()
	d, board := newTestDriver(t, DirDir)
	for _, speed := range []int{1, 5, 50, 100} {
		d.SetSpeed(ctx, speed)
		assertPins(t, DirDir, board, pinState{pin1: true, pin2: false})
		d.SetSpeed(ctx, -speed)
		assertPins(t, DirDir, board, pinState{pin1: false, pin2: true})
	}
}

func TestBrake(t *testing.T) {
	tests := []struct {
		mode Mode
		want pinState
	}{
		{DirPWM, pinState{pin1: true, duty: 0}},
		{PWMPWM, pinState{duty1: 255, duty2: 255}},
		{DirDirPWM, pinState{pin1: true, pin2: true, duty: 255}},
		{DirDir, pinState{pin1: true, pin2: true}},
	}
	ctx := context.Background()
	for _, tt := range tests {
		for _, speed := range []int{-100, -30, 0, 30, 100} {
			d, board := newTestDriver(t, tt.mode)
			d.SetSpeed(ctx, speed)
			if err := d.Brake(ctx); err != nil {
				t.Fatalf("%s: Brake failed: %v", tt.mode, err)
			}
			if d.Speed() != 0 {
				t.Errorf("%s: expected speed 0 after brake, got %d", tt.mode, d.Speed())
			}
			assertPins(t, tt.mode, board, tt.want)
		}
	}
}

func TestBrakeHighPolarity(t *testing.T) {
	d, board := newTestDriver(t, DirPWM, func(c *Config) { c.BrakePolarity = BrakeHigh })
	if err := d.Brake(context.Background()); err != nil {
		t.Fatalf("Brake failed: %v", err)
	}
	assertPins(t, DirPWM, board, pinState{pin1: true, duty: 255})
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	for _, mode := range allModes {
		for _, speed := range []int{-100, -1, 1, 77} {
			d, board := newTestDriver(t, mode)
			d.SetSpeed(ctx, speed)
			if err := d.Stop(ctx); err != nil {
				t.Fatalf("%s: Stop failed: %v", mode, err)
			}
			if d.Speed() != 0 {
				t.Errorf("%s: expected speed 0 after stop, got %d", mode, d.Speed())
			}
			assertPins(t, mode, board, pinState{})
		}
	}
}

func TestStopAfterBrake(t *testing.T) {
	ctx := context.Background()
	for _, mode := range allModes {
		d, board := newTestDriver(t, mode)
		d.Brake(ctx)
		d.Stop(ctx)
		assertPins(t, mode, board, pinState{})
	}
}

func TestHigherResolution(t *testing.T) {
	d, board := newTestDriver(t, DirDirPWM, func(c *Config) { c.Resolution = 12 })
	if d.MaxDuty() != 4095 {
		t.Fatalf("Expected max duty 4095, got %d", d.MaxDuty())
	}
	d.SetSpeed(context.Background(), 50)
	if got := board.Duty(testPWMPin); got != 2048 {
		t.Errorf("Expected duty 2048, got %d", got)
	}
}

func TestModeNeverChanges(t *testing.T) {
	ctx := context.Background()
	for _, mode := range allModes {
		d, _ := newTestDriver(t, mode)
		d.SetSpeed(ctx, 40)
		d.Brake(ctx)
		d.SetSpeed(ctx, -40)
		d.Stop(ctx)
		if d.Mode() != mode {
			t.Errorf("Expected mode %s, got %s", mode, d.Mode())
		}
	}
}

func TestModePinMismatch(t *testing.T) {
	ctx := context.Background()
	board := haltest.NewBoard()
	deps := Dependencies{Digital: board, PWM: hal.NewPinPWM(board), Log: zerolog.Nop()}
	for _, mode := range []Mode{DirPWM, DirDirPWM} {
		if _, err := NewTwoPin(ctx, mode, 1, 2, deps); !IsModePinMismatch(err) {
			t.Errorf("%s: expected mismatch error for two pins, got %v", mode, err)
		}
	}
	for _, mode := range []Mode{PWMPWM, DirDir} {
		if _, err := NewThreePin(ctx, mode, 1, 2, 3, deps); !IsModePinMismatch(err) {
			t.Errorf("%s: expected mismatch error for three pins, got %v", mode, err)
		}
	}
	if len(board.Events()) != 0 {
		t.Errorf("Expected no pin activity on mismatch, got %v", board.Events())
	}
}

func TestMissingDependency(t *testing.T) {
	ctx := context.Background()
	board := haltest.NewBoard()
	if _, err := NewTwoPin(ctx, DirDir, 1, 2, Dependencies{PWM: hal.NewPinPWM(board), Log: zerolog.Nop()}); !IsMissingDependency(err) {
		t.Errorf("Expected missing dependency error, got %v", err)
	}
	if _, err := NewTwoPin(ctx, PWMPWM, 1, 2, Dependencies{Digital: board, Log: zerolog.Nop()}); !IsMissingDependency(err) {
		t.Errorf("Expected missing dependency error, got %v", err)
	}
	// Modes only need the providers they write to
	if _, err := NewTwoPin(ctx, DirDir, 1, 2, Dependencies{Digital: board, Log: zerolog.Nop()}); err != nil {
		t.Errorf("Expected DirDir without PWM to succeed, got %v", err)
	}
	if _, err := NewTwoPin(ctx, PWMPWM, 1, 2, Dependencies{PWM: hal.NewPinPWM(board), Log: zerolog.Nop()}); err != nil {
		t.Errorf("Expected PWMPWM without digital to succeed, got %v", err)
	}
}

func TestInvalidMode(t *testing.T) {
	board := haltest.NewBoard()
	_, err := NewTwoPin(context.Background(), Mode(42), 1, 2, Dependencies{Digital: board, PWM: hal.NewPinPWM(board), Log: zerolog.Nop()})
	if !IsInvalidMode(err) {
		t.Errorf("Expected invalid mode error, got %v", err)
	}
}

func TestChannelExhaustionOnConstruction(t *testing.T) {
	ctx := context.Background()
	board := haltest.NewBoard()
	alloc := hal.NewChannelAllocator(3)
	deps := Dependencies{Digital: board, PWM: hal.NewChannelPWM(board, alloc), Log: zerolog.Nop()}
	if _, err := NewTwoPin(ctx, PWMPWM, 1, 2, deps); err != nil {
		t.Fatalf("First motor failed: %v", err)
	}
	_, err := NewTwoPin(ctx, PWMPWM, 3, 4, deps)
	if !hal.IsChannelsExhausted(err) {
		t.Errorf("Expected channels exhausted, got %v", err)
	}
	if _, err := NewThreePin(ctx, DirPWM, 5, 6, 7, Dependencies{Digital: board, PWM: hal.NewChannelPWM(board, hal.NewChannelAllocator(3)), Log: zerolog.Nop()}); err != nil {
		t.Errorf("Expected motor on fresh allocator to succeed, got %v", err)
	}
}

func TestWriteErrorKeepsCommandedSpeed(t *testing.T) {
	d, board := newTestDriver(t, DirDirPWM)
	failure := errors.New("bus failure")
	board.FailWrites(failure)
	err := d.SetSpeed(context.Background(), 60)
	if err == nil {
		t.Fatal("Expected error")
	}
	if d.Speed() != 60 {
		t.Errorf("Expected speed 60, got %d", d.Speed())
	}
	board.FailWrites(nil)
	if err := d.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestDirPWMLeavesPin2Low(t *testing.T) {
	ctx := context.Background()
	d, board := newTestDriver(t, DirPWM)
	board.Reset()
	d.SetSpeed(ctx, -80)
	d.SetSpeed(ctx, 80)
	d.Brake(ctx)
	d.Stop(ctx)
	for _, e := range board.Events() {
		if e.Pin == testPin2 {
			t.Errorf("Unexpected write to pin2: %s", e)
		}
	}
}
