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

//go:build tinygo && (rp2040 || rp2350)

package tinygo

import (
	"context"
	"machine"

	"github.com/pkg/errors"

	"github.com/binkynet/MotorControl/pkg/hal"
)

// pwmGroup abstracts over the unexported PWM slice type of the machine package.
type pwmGroup interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type pwmOutput struct {
	group   pwmGroup
	channel uint8
}

// Board drives the GPIO & PWM pins of the microcontroller.
type Board struct {
	outputs map[hal.Pin]pwmOutput
}

var (
	_ hal.DigitalOutput = &Board{}
	_ hal.PinDevice     = &Board{}
)

// NewBoard creates a board for the running microcontroller.
func NewBoard() *Board {
	return &Board{
		outputs: make(map[hal.Pin]pwmOutput),
	}
}

// ConfigureOutput puts the given pin in output mode.
func (b *Board) ConfigureOutput(ctx context.Context, pin hal.Pin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

// WriteDigital sets the level of the given output pin.
func (b *Board) WriteDigital(ctx context.Context, pin hal.Pin, high bool) error {
	machine.Pin(pin).Set(high)
	return nil
}

// AttachPin configures the PWM slice of the given pin.
// Both pins of a slice share its frequency.
func (b *Board) AttachPin(ctx context.Context, pin hal.Pin, freq hal.Frequency, resolution uint8) error {
	if freq == 0 {
		freq = hal.DefaultFrequency
	}
	group := groupOf(pin)
	if err := group.Configure(machine.PWMConfig{Period: uint64(1e9) / uint64(freq)}); err != nil {
		return errors.Wrapf(err, "configure pwm slice for pin %d failed", pin)
	}
	channel, err := group.Channel(machine.Pin(pin))
	if err != nil {
		return errors.Wrapf(err, "get pwm channel for pin %d failed", pin)
	}
	b.outputs[pin] = pwmOutput{group: group, channel: channel}
	return nil
}

// WritePin sets the duty cycle of the given pin, scaled to the slice top value.
func (b *Board) WritePin(ctx context.Context, pin hal.Pin, duty uint32, resolution uint8) error {
	out, found := b.outputs[pin]
	if !found {
		return errors.Wrapf(hal.ErrNotAttached, "pin %d", pin)
	}
	out.group.Set(out.channel, hal.ScaleDuty(duty, resolution, out.group.Top()))
	return nil
}

// groupOf returns the PWM slice of the given GPIO pin.
func groupOf(pin hal.Pin) pwmGroup {
	switch (pin >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
