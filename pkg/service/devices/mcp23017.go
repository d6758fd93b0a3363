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

type mcp23017 struct {
	mutex    sync.Mutex
	onActive func()
	config   model.Device
	bus      bridge.I2CBus
	address  byte
	iodir    [2]byte
	value    [2]byte
}

const (
	// Registry addresses with IOCON.BANK=0, port A. Port B is at +1.
	mcp23017RegIODIRA = 0x00
	mcp23017RegIOCON  = 0x0a
	mcp23017RegGPIOA  = 0x12
	mcp23017RegOLATA  = 0x14
)

// newMcp23017 creates a GPIO instance for a mcp23017 device with given config.
func newMcp23017(config model.Device, bus bridge.I2CBus, onActive func()) (GPIO, error) {
	if config.Type != model.DeviceTypeMCP23017 {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	return &mcp23017{
		onActive: onActive,
		config:   config,
		bus:      bus,
		address:  address,
		iodir:    [2]byte{0xff, 0xff},
	}, nil
}

// Configure puts all pins in input mode with a low output latch.
func (d *mcp23017) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if err := dev.WriteByteReg(mcp23017RegIOCON, mcpIOCONDefault); err != nil {
			return err
		}
		return d.reset(dev)
	})
}

// Close drives all outputs low & restores all pins to input.
func (d *mcp23017) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		return d.reset(dev)
	})
}

// reset clears the output latches & sets all pins to input.
func (d *mcp23017) reset(dev bridge.I2CDevice) error {
	for port := 0; port < 2; port++ {
		d.value[port] = 0
		if err := dev.WriteByteReg(uint8(mcp23017RegOLATA+port), 0); err != nil {
			return err
		}
		d.iodir[port] = 0xff
		if err := dev.WriteByteReg(uint8(mcp23017RegIODIRA+port), 0xff); err != nil {
			return err
		}
	}
	return nil
}

// PinCount returns the number of pins of the device
func (d *mcp23017) PinCount() int {
	return 16
}

// Set the direction of the pin at given index (1...)
func (d *mcp23017) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	mask, port, err := d.bitMask(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if direction == PinDirectionInput {
			d.iodir[port] |= mask
		} else {
			d.iodir[port] &= ^mask
		}
		return dev.WriteByteReg(uint8(mcp23017RegIODIRA+port), d.iodir[port])
	})
}

// Get the direction of the pin at given index (1...)
func (d *mcp23017) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	mask, port, err := d.bitMask(pin)
	if err != nil {
		return PinDirectionInput, err
	}
	var value uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		var err error
		value, err = dev.ReadByteReg(uint8(mcp23017RegIODIRA + port))
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
func (d *mcp23017) Set(ctx context.Context, pin int, value bool) error {
	mask, port, err := d.bitMask(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.iodir[port]&mask != 0 {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction input", pin)
	}
	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if value {
			d.value[port] |= mask
		} else {
			d.value[port] &= ^mask
		}
		return dev.WriteByteReg(uint8(mcp23017RegOLATA+port), d.value[port])
	})
}

// Get the value of the pin at given index (1...)
func (d *mcp23017) Get(ctx context.Context, pin int) (bool, error) {
	mask, port, err := d.bitMask(pin)
	if err != nil {
		return false, err
	}
	var value uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		var err error
		value, err = dev.ReadByteReg(uint8(mcp23017RegGPIOA + port))
		return err
	}); err != nil {
		return false, err
	}
	return mask&value != 0, nil
}

// bitMask calculates a bit map (bit set for the given pin) and the corresponding
// port (0=A, 1=B)
func (d *mcp23017) bitMask(pin int) (mask byte, port int, err error) {
	if pin < 1 || pin > 16 {
		return 0, 0, errors.Wrapf(InvalidPinError, "Pin must be between 1 and 16, got %d", pin)
	}
	index := pin - 1
	return 1 << uint(index%8), index / 8, nil
}
