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
	"github.com/binkynet/MotorControl/pkg/hal"
)

const (
	simPinCount = 16
	simMaxValue = 65535
)

// SimWrite is a single recorded write on a Sim device.
type SimWrite struct {
	Pin   int
	PWM   bool
	Level bool
	Value uint32
}

// Sim is an in-memory device with 16 pins that support both digital
// output & PWM. It records every write.
type Sim struct {
	mutex      sync.Mutex
	onActive   func()
	config     model.Device
	configured bool
	outputs    [simPinCount]bool
	levels     [simPinCount]bool
	values     [simPinCount]uint32
	freqs      [simPinCount]hal.Frequency
	journal    []SimWrite
}

var (
	_ GPIO                   = &Sim{}
	_ PWM                    = &Sim{}
	_ PWMFrequencyController = &Sim{}
)

// newSim creates an in-memory device with given config.
func newSim(config model.Device, onActive func()) (*Sim, error) {
	if config.Type != model.DeviceTypeSim {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	if onActive == nil {
		onActive = func() {}
	}
	return &Sim{
		onActive: onActive,
		config:   config,
	}, nil
}

// Configure is called once to put the device in the desired state.
func (d *Sim) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onActive()
	d.configured = true
	return nil
}

// Close turns all pins off.
func (d *Sim) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onActive()
	d.outputs = [simPinCount]bool{}
	d.levels = [simPinCount]bool{}
	d.values = [simPinCount]uint32{}
	return nil
}

// PinCount returns the number of pins of the device
func (d *Sim) PinCount() int {
	return simPinCount
}

// PWMPinCount returns the number of PWM output pins of the device
func (d *Sim) PWMPinCount() int {
	return simPinCount
}

// MaxPWMValue returns the maximum valid value for onValue or offValue.
func (d *Sim) MaxPWMValue() uint32 {
	return simMaxValue
}

// Set the direction of the pin at given index (1...)
func (d *Sim) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(pin)
	if err != nil {
		return err
	}
	d.outputs[index] = direction == PinDirectionOutput
	d.levels[index] = false
	return nil
}

// Get the direction of the pin at given index (1...)
func (d *Sim) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(pin)
	if err != nil {
		return PinDirectionInput, err
	}
	if d.outputs[index] {
		return PinDirectionOutput, nil
	}
	return PinDirectionInput, nil
}

// Set the pin at given index (1...) to the given value
func (d *Sim) Set(ctx context.Context, pin int, value bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(pin)
	if err != nil {
		return err
	}
	if !d.outputs[index] {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction input", pin)
	}
	d.onActive()
	d.levels[index] = value
	d.journal = append(d.journal, SimWrite{Pin: pin, Level: value})
	return nil
}

// Get the value of the pin at given index (1...)
func (d *Sim) Get(ctx context.Context, pin int) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(pin)
	if err != nil {
		return false, err
	}
	return d.levels[index], nil
}

// SetPWMFrequency sets the frequency of the output at given index (1...)
func (d *Sim) SetPWMFrequency(ctx context.Context, output int, freq hal.Frequency) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(output)
	if err != nil {
		return err
	}
	d.freqs[index] = freq
	return nil
}

// SetPWM the output at given index (1...) to the given value.
func (d *Sim) SetPWM(ctx context.Context, output int, onValue, offValue uint32, enabled bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(output)
	if err != nil {
		return err
	}
	value := uint32(0)
	if enabled && offValue > onValue {
		value = min(offValue-onValue, simMaxValue)
	}
	d.onActive()
	d.values[index] = value
	d.journal = append(d.journal, SimWrite{Pin: output, PWM: true, Value: value})
	return nil
}

// GetPWM the output at given index (1...)
func (d *Sim) GetPWM(ctx context.Context, output int) (uint32, uint32, bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	index, err := d.index(output)
	if err != nil {
		return 0, 0, false, err
	}
	v := d.values[index]
	return 0, v, v > 0, nil
}

// Level returns the digital level of the pin at given index (1...)
func (d *Sim) Level(pin int) bool {
	v, _ := d.Get(context.Background(), pin)
	return v
}

// Value returns the PWM value of the output at given index (1...)
func (d *Sim) Value(output int) uint32 {
	_, v, _, _ := d.GetPWM(context.Background(), output)
	return v
}

// Frequency returns the PWM frequency of the output at given index (1...)
func (d *Sim) Frequency(output int) hal.Frequency {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if index, err := d.index(output); err == nil {
		return d.freqs[index]
	}
	return 0
}

// Journal returns a copy of all recorded writes.
func (d *Sim) Journal() []SimWrite {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]SimWrite(nil), d.journal...)
}

// index converts a pin index (1...) into an array index. Caller must hold the mutex.
func (d *Sim) index(pin int) (int, error) {
	if pin < 1 || pin > simPinCount {
		return 0, errors.Wrapf(InvalidPinError, "Pin must be between 1 and %d, got %d", simPinCount, pin)
	}
	if !d.configured {
		return 0, errors.Wrapf(NotConfiguredError, "device '%s'", d.config.ID)
	}
	return pin - 1, nil
}
