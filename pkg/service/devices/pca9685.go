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
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

type pca9685 struct {
	mutex    sync.Mutex
	onActive func()
	config   model.Device
	bus      bridge.I2CBus
	address  byte
	prescale uint8
}

const (
	pca9685MODE1Reg      = 0x00
	pca9685MODE2Reg      = 0x01
	pca9685LEDBaseReg    = 0x06
	pca9685AllLEDOffHReg = 0xFD
	pca9685PRESCALEReg   = 0xFE
	pca9685OnLowRegOfs   = 0
	pca9685OnHighRegOfs  = 1
	pca9685OffLowRegOfs  = 2
	pca9685OffHighRegOfs = 3
	pca9685RegIncrement  = 4

	pca9685Mode1Sleep   = 0x11 // SLEEP=1, ALLCALL=1
	pca9685Mode1Awake   = 0x01 // SLEEP=0, ALLCALL=1
	pca9685Mode2Outdrv  = 0x04 // Totem pole outputs
	pca9685FullBit      = 0x10 // Full on/off bit in the high registers
	pca9685OscillatorHz = 25000000
	pca9685Outputs      = 16
	pca9685MaxValue     = 4095

	pca9685DefaultFrequency = 1000
	pca9685MinFrequency     = 24
	pca9685MaxFrequency     = 1526
)

// newPCA9685 creates a PWM instance for a pca9685 device with given config.
func newPCA9685(config model.Device, bus bridge.I2CBus, onActive func()) (PWM, error) {
	if config.Type != model.DeviceTypePCA9685 {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	address, err := parseAddress(config.Address)
	if err != nil {
		return nil, maskAny(err)
	}
	freq := config.Frequency
	if freq == 0 {
		freq = pca9685DefaultFrequency
	}
	if freq < pca9685MinFrequency || freq > pca9685MaxFrequency {
		return nil, errors.Errorf("frequency of '%s' must be between %d and %d Hz, got %d", config.ID, pca9685MinFrequency, pca9685MaxFrequency, freq)
	}
	return &pca9685{
		onActive: onActive,
		config:   config,
		bus:      bus,
		address:  address,
		prescale: pca9685Prescale(freq),
	}, nil
}

// pca9685Prescale calculates the prescale register value for the given frequency.
func pca9685Prescale(freq uint32) uint8 {
	prescale := math.Round(float64(pca9685OscillatorHz)/(4096*float64(freq))) - 1
	return uint8(math.Max(3, math.Min(255, prescale)))
}

// Configure is called once to put the device in the desired state.
// All outputs are turned fully off.
func (d *pca9685) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		// Prescale can only be written while sleeping
		if err := dev.WriteByteReg(pca9685MODE1Reg, pca9685Mode1Sleep); err != nil {
			return err
		}
		if err := dev.WriteByteReg(pca9685PRESCALEReg, d.prescale); err != nil {
			return err
		}
		if err := dev.WriteByteReg(pca9685MODE2Reg, pca9685Mode2Outdrv); err != nil {
			return err
		}
		if err := dev.WriteByteReg(pca9685AllLEDOffHReg, pca9685FullBit); err != nil {
			return err
		}
		return dev.WriteByteReg(pca9685MODE1Reg, pca9685Mode1Awake)
	})
}

// Close turns all outputs off & puts the device to sleep.
func (d *pca9685) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if err := dev.WriteByteReg(pca9685AllLEDOffHReg, pca9685FullBit); err != nil {
			return err
		}
		return dev.WriteByteReg(pca9685MODE1Reg, pca9685Mode1Sleep)
	})
}

// PWMPinCount returns the number of pwm outputs of the device
func (d *pca9685) PWMPinCount() int {
	return pca9685Outputs
}

// MaxPWMValue returns the maximum valid value for onValue or offValue.
func (d *pca9685) MaxPWMValue() uint32 {
	return pca9685MaxValue
}

// SetPWM the output at given index (1...) to the given value.
// An output that is enabled with onValue 0 & offValue at the maximum
// is turned fully on.
func (d *pca9685) SetPWM(ctx context.Context, output int, onValue, offValue uint32, enabled bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	regBase, err := d.regBase(output)
	if err != nil {
		return err
	}
	onLow := uint8(onValue & 0xFF)
	onHigh := uint8((onValue >> 8) & 0x0F)
	offLow := uint8(offValue & 0xFF)
	offHigh := uint8((offValue >> 8) & 0x0F)
	switch {
	case !enabled:
		offHigh |= pca9685FullBit
	case onValue == 0 && offValue >= pca9685MaxValue:
		onLow, onHigh, offLow, offHigh = 0, pca9685FullBit, 0, 0
	}
	d.onActive()
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		if err := dev.WriteByteReg(uint8(regBase+pca9685OnLowRegOfs), onLow); err != nil {
			return err
		}
		if err := dev.WriteByteReg(uint8(regBase+pca9685OnHighRegOfs), onHigh); err != nil {
			return err
		}
		if err := dev.WriteByteReg(uint8(regBase+pca9685OffLowRegOfs), offLow); err != nil {
			return err
		}
		return dev.WriteByteReg(uint8(regBase+pca9685OffHighRegOfs), offHigh)
	})
}

// GetPWM the output at given index (1...)
func (d *pca9685) GetPWM(ctx context.Context, output int) (uint32, uint32, bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	regBase, err := d.regBase(output)
	if err != nil {
		return 0, 0, false, err
	}
	var regs [4]uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for i := range regs {
			v, err := dev.ReadByteReg(uint8(regBase + i))
			if err != nil {
				return err
			}
			regs[i] = v
		}
		return nil
	}); err != nil {
		return 0, 0, false, err
	}
	onHigh, offHigh := regs[pca9685OnHighRegOfs], regs[pca9685OffHighRegOfs]
	if offHigh&pca9685FullBit != 0 {
		return 0, 0, false, nil
	}
	if onHigh&pca9685FullBit != 0 {
		return 0, pca9685MaxValue, true, nil
	}
	on := uint32(regs[pca9685OnLowRegOfs]) | (uint32(onHigh&0x0F) << 8)
	off := uint32(regs[pca9685OffLowRegOfs]) | (uint32(offHigh&0x0F) << 8)
	return on, off, true, nil
}

// regBase returns the first register for the given output.
func (d *pca9685) regBase(output int) (int, error) {
	if output < 1 || output > pca9685Outputs {
		return 0, errors.Wrapf(InvalidPinError, "Output must be in 1..%d range, got %d", pca9685Outputs, output)
	}
	return pca9685LEDBaseReg + ((output - 1) * pca9685RegIncrement), nil
}
