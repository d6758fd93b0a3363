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

type mcp23008 struct {
	mutex    sync.Mutex
	onActive func()
	config   model.Device
	bus      bridge.I2CBus
	address  byte
	iodir    byte
	value    byte
}

const (
	// Registry addresses with IOCON.BANK=0
	mcp23008RegIODIR = 0x00
	mcp23008RegIOCON = 0x05
	mcp23008RegGPIO  = 0x09
	mcp23008RegOLAT  = 0x0a

	// IOCON with sequential operation disabled
	mcpIOCONDefault = 0x20
)

// newMcp23008 creates a GPIO instance for a mcp23008 device with given config.
func newMcp23008(config model.Device, bus bridge.I2CBus, onActive func()) (GPIO, error) {
	if config.Type != model.DeviceTypeMCP23008 {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	return &mcp23008{
		onActive: onActive,
		config:   config,
		bus:      bus,
		address:  address,
		iodir:    0xff,
	}, nil
}

// Configure puts all pins in input mode with a low output latch.
func (d *mcp23008) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		d.iodir = 0xff
		d.value = 0
		if err := dev.WriteByteReg(mcp23008RegIOCON, mcpIOCONDefault); err != nil {
			return err
		}
		if err := dev.WriteByteReg(mcp23008RegOLAT, d.value); err != nil {
			return err
		}
		return dev.WriteByteReg(mcp23008RegIODIR, d.iodir)
	})
}

// Close drives all outputs low & restores all pins to input.
func (d *mcp23008) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		d.value = 0
		if err := dev.WriteByteReg(mcp23008RegOLAT, d.value); err != nil {
			return err
		}
		d.iodir = 0xff
		return dev.WriteByteReg(mcp23008RegIODIR, d.iodir)
	})
}

// PinCount returns the number of pins of the device
func (d *mcp23008) PinCount() int {
	return 8
}

// Set the direction of the pin at given index (1...)
func (d *mcp23008) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	mask, err := bitMask8(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if direction == PinDirectionInput {
			d.iodir |= mask
		} else {
			d.iodir &= ^mask
		}
		return dev.WriteByteReg(mcp23008RegIODIR, d.iodir)
	})
}

// Get the direction of the pin at given index (1...)
func (d *mcp23008) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	mask, err := bitMask8(pin)
	if err != nil {
		return PinDirectionInput, err
	}
	var value uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		var err error
		value, err = dev.ReadByteReg(mcp23008RegIODIR)
		return err
	}); err != nil {
		return PinDirectionInput, err
	}
	if value&mask == 0 {
		return PinDirectionOutput, nil
	}
	return PinDirectionInput, nil
}

// Set the pin at given index (1...) to the given value
func (d *mcp23008) Set(ctx context.Context, pin int, value bool) error {
	mask, err := bitMask8(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.iodir&mask != 0 {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction input", pin)
	}
	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if value {
			d.value |= mask
		} else {
			d.value &= ^mask
		}
		return dev.WriteByteReg(mcp23008RegOLAT, d.value)
	})
}

// Get the value of the pin at given index (1...)
func (d *mcp23008) Get(ctx context.Context, pin int) (bool, error) {
	mask, err := bitMask8(pin)
	if err != nil {
		return false, err
	}
	var value uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		var err error
		value, err = dev.ReadByteReg(mcp23008RegGPIO)
		return err
	}); err != nil {
		return false, err
	}
	return mask&value != 0, nil
}
