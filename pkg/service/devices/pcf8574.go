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

package devices

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

// pcf8574 is a quasi-bidirectional 8-bit expander.
// A pin is an input when its bit is written high.
type pcf8574 struct {
	mutex     sync.Mutex
	onActive  func()
	config    model.Device
	bus       bridge.I2CBus
	address   byte
	direction byte // 1/0 per bit means read/write
	output    byte // 1/0 bit per pin
}

// newPCF8574 creates a GPIO instance for a pcf8574 device with given config.
func newPCF8574(config model.Device, bus bridge.I2CBus, onActive func()) (GPIO, error) {
	if config.Type != model.DeviceTypePCF8574 {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	return &pcf8574{
		onActive:  onActive,
		config:    config,
		bus:       bus,
		address:   address,
		direction: 0xff,
	}, nil
}

// Configure is called once to put the device in the desired state.
func (d *pcf8574) Configure(ctx context.Context) error {
	return d.reset(ctx)
}

// Close brings the device back to a safe state.
func (d *pcf8574) Close(ctx context.Context) error {
	return d.reset(ctx)
}

// reset sets all pins to input (high).
func (d *pcf8574) reset(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		d.direction = 0xff
		d.output = 0
		return dev.SendByte(d.mergeDirectionAndOutput())
	})
}

// PinCount returns the number of pins of the device
func (d *pcf8574) PinCount() int {
	return 8
}

// Set the direction of the pin at given index (1...)
// An output pin starts low.
func (d *pcf8574) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	mask, err := bitMask8(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		d.output &= ^mask
		if direction == PinDirectionInput {
			d.direction |= mask
		} else {
			d.direction &= ^mask
		}
		return dev.SendByte(d.mergeDirectionAndOutput())
	})
}

// Get the direction of the pin at given index (1...)
func (d *pcf8574) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	mask, err := bitMask8(pin)
	if err != nil {
		return PinDirectionInput, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.direction&mask != 0 {
		return PinDirectionInput, nil
	}
	return PinDirectionOutput, nil
}

// Set the pin at given index (1...) to the given value
func (d *pcf8574) Set(ctx context.Context, pin int, value bool) error {
	mask, err := bitMask8(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.direction&mask != 0 {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction input", pin)
	}
	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if value {
			d.output |= mask
		} else {
			d.output &= ^mask
		}
		return dev.SendByte(d.mergeDirectionAndOutput())
	})
}

// Get the value of the pin at given index (1...)
func (d *pcf8574) Get(ctx context.Context, pin int) (bool, error) {
	mask, err := bitMask8(pin)
	if err != nil {
		return false, err
	}
	var x uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		var err error
		x, err = dev.ReceiveByte()
		return err
	}); err != nil {
		return false, err
	}
	return x&mask != 0, nil
}

// mergeDirectionAndOutput creates the value to write to the device that merges
// direction & output.
// Per bit the following applies:
// - Direction is input -> bit is set to 1
// - Direction is output -> bit is set to output bit
func (d *pcf8574) mergeDirectionAndOutput() byte {
	return d.direction | d.output
}
