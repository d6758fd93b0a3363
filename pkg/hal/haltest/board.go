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

// Package haltest provides a recording implementation of the hal interfaces
// for use in tests.
package haltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/binkynet/MotorControl/pkg/hal"
)

// Op identifies the kind of a recorded call.
type Op string

const (
	OpConfigure Op = "configure"
	OpDigital   Op = "digital"
	OpAttach    Op = "attach"
	OpDuty      Op = "duty"
)

// Event is a single recorded call on a Board.
type Event struct {
	Op         Op
	Pin        hal.Pin
	High       bool
	Duty       uint32
	Frequency  hal.Frequency
	Resolution uint8
}

func (e Event) String() string {
	switch e.Op {
	case OpDigital:
		return fmt.Sprintf("%s(%d)=%v", e.Op, e.Pin, e.High)
	case OpDuty:
		return fmt.Sprintf("%s(%d)=%d", e.Op, e.Pin, e.Duty)
	case OpAttach:
		return fmt.Sprintf("%s(%d,%dHz,%dbit)", e.Op, e.Pin, e.Frequency, e.Resolution)
	default:
		return fmt.Sprintf("%s(%d)", e.Op, e.Pin)
	}
}

// Board records every digital and PWM call made on it.
// It implements hal.DigitalOutput and hal.PinDevice.
type Board struct {
	mutex      sync.Mutex
	events     []Event
	outputs    map[hal.Pin]bool
	levels     map[hal.Pin]bool
	duties     map[hal.Pin]uint32
	attached   map[hal.Pin]uint8
	failWrites error
	pinCount   int
}

var (
	_ hal.DigitalOutput = &Board{}
	_ hal.PinDevice     = &Board{}
)

// NewBoard creates an empty recording board.
func NewBoard() *Board {
	return &Board{
		outputs:  make(map[hal.Pin]bool),
		levels:   make(map[hal.Pin]bool),
		duties:   make(map[hal.Pin]uint32),
		attached: make(map[hal.Pin]uint8),
	}
}

// FailWrites makes all subsequent writes return the given error.
// Pass nil to restore normal behavior.
func (b *Board) FailWrites(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failWrites = err
}

// SetPinCount makes AttachPin reject pins above the given count.
// A count of 0 accepts every pin.
func (b *Board) SetPinCount(count int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.pinCount = count
}

// ConfigureOutput puts the given pin in output mode.
func (b *Board) ConfigureOutput(ctx context.Context, pin hal.Pin) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.outputs[pin] = true
	b.events = append(b.events, Event{Op: OpConfigure, Pin: pin})
	return nil
}

// WriteDigital sets the level of the given output pin.
func (b *Board) WriteDigital(ctx context.Context, pin hal.Pin, high bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.failWrites != nil {
		return b.failWrites
	}
	if !b.outputs[pin] {
		return fmt.Errorf("pin %d is not an output", pin)
	}
	b.levels[pin] = high
	b.events = append(b.events, Event{Op: OpDigital, Pin: pin, High: high})
	return nil
}

// AttachPin configures the given pin for PWM output.
func (b *Board) AttachPin(ctx context.Context, pin hal.Pin, freq hal.Frequency, resolution uint8) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.pinCount > 0 && (pin < 1 || int(pin) > b.pinCount) {
		return fmt.Errorf("pin %d out of range 1..%d", pin, b.pinCount)
	}
	b.attached[pin] = resolution
	b.events = append(b.events, Event{Op: OpAttach, Pin: pin, Frequency: freq, Resolution: resolution})
	return nil
}

// WritePin sets the duty cycle of the given pin.
func (b *Board) WritePin(ctx context.Context, pin hal.Pin, duty uint32, resolution uint8) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.failWrites != nil {
		return b.failWrites
	}
	if _, found := b.attached[pin]; !found {
		return fmt.Errorf("pin %d is not attached", pin)
	}
	b.duties[pin] = duty
	b.events = append(b.events, Event{Op: OpDuty, Pin: pin, Duty: duty, Resolution: resolution})
	return nil
}

// IsOutput returns true when ConfigureOutput was called for the given pin.
func (b *Board) IsOutput(pin hal.Pin) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.outputs[pin]
}

// IsAttached returns true when the given pin is attached for PWM output.
func (b *Board) IsAttached(pin hal.Pin) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	_, found := b.attached[pin]
	return found
}

// Level returns the last level written to the given pin.
func (b *Board) Level(pin hal.Pin) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.levels[pin]
}

// Duty returns the last duty cycle written to the given pin.
func (b *Board) Duty(pin hal.Pin) uint32 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.duties[pin]
}

// Events returns a copy of all recorded events.
func (b *Board) Events() []Event {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Event(nil), b.events...)
}

// Reset clears the event journal, keeping pin state.
func (b *Board) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.events = nil
}
