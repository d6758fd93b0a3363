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
	"sort"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/hal"
)

// PinLookup resolves a host pin by name.
type PinLookup func(name string) (gpio.PinIO, error)

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

// HostPinLookup resolves pins from the periph host registry, initializing
// the host drivers on first use.
func HostPinLookup(name string) (gpio.PinIO, error) {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return nil, errors.Wrap(hostInitErr, "periph host initialization failed")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Wrapf(InvalidPinError, "host pin '%s' not found", name)
	}
	return p, nil
}

// periphGPIO drives host pins through periph, both as digital outputs
// and with (hardware) PWM.
type periphGPIO struct {
	mutex    sync.Mutex
	onActive func()
	config   model.Device
	lookup   PinLookup
	pins     map[int]gpio.PinIO
	outputs  map[int]bool
	freqs    map[int]physic.Frequency
	duties   map[int]uint32
	count    int
}

// periphDevice is the API of a periph device.
type periphDevice interface {
	GPIO
	PWM
	PWMFrequencyController
}

// newPeriph creates a GPIO & PWM instance for host pins with given config.
func newPeriph(config model.Device, lookup PinLookup, onActive func()) (periphDevice, error) {
	if config.Type != model.DeviceTypePeriph {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	if lookup == nil {
		lookup = HostPinLookup
	}
	count := 0
	for index := range config.Pins {
		if index > count {
			count = index
		}
	}
	return &periphGPIO{
		onActive: onActive,
		config:   config,
		lookup:   lookup,
		pins:     make(map[int]gpio.PinIO),
		outputs:  make(map[int]bool),
		freqs:    make(map[int]physic.Frequency),
		duties:   make(map[int]uint32),
		count:    count,
	}, nil
}

// Configure resolves all configured host pins.
func (d *periphGPIO) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	indexes := make([]int, 0, len(d.config.Pins))
	for index := range d.config.Pins {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	var ae aerr.AggregateError
	for _, index := range indexes {
		name := d.config.Pins[index]
		p, err := d.lookup(name)
		if err != nil {
			ae.Add(errors.Wrapf(err, "pin %d", index))
			continue
		}
		d.pins[index] = p
	}
	return ae.AsError()
}

// Close drives all used pins low.
func (d *periphGPIO) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	var ae aerr.AggregateError
	for index, p := range d.pins {
		if d.outputs[index] {
			if err := p.Out(gpio.Low); err != nil {
				ae.Add(err)
			}
		}
	}
	clear(d.outputs)
	clear(d.duties)
	return ae.AsError()
}

// PinCount returns the highest configured pin index
func (d *periphGPIO) PinCount() int {
	return d.count
}

// PWMPinCount returns the highest configured pin index
func (d *periphGPIO) PWMPinCount() int {
	return d.count
}

// MaxPWMValue returns the maximum valid value for onValue or offValue.
func (d *periphGPIO) MaxPWMValue() uint32 {
	return uint32(gpio.DutyMax)
}

// Set the direction of the pin at given index (1...)
// An output pin starts low.
func (d *periphGPIO) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	d.onActive()
	switch direction {
	case PinDirectionOutput:
		if err := p.Out(gpio.Low); err != nil {
			return maskAny(err)
		}
		d.outputs[pin] = true
	default:
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return maskAny(err)
		}
		delete(d.outputs, pin)
	}
	return nil
}

// Get the direction of the pin at given index (1...)
func (d *periphGPIO) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, err := d.pin(pin); err != nil {
		return PinDirectionInput, err
	}
	if d.outputs[pin] {
		return PinDirectionOutput, nil
	}
	return PinDirectionInput, nil
}

// Set the pin at given index (1...) to the given value
func (d *periphGPIO) Set(ctx context.Context, pin int, value bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	if !d.outputs[pin] {
		return errors.Wrapf(InvalidDirectionError, "pin %d has direction input", pin)
	}
	d.onActive()
	return maskAny(p.Out(gpio.Level(value)))
}

// Get the value of the pin at given index (1...)
func (d *periphGPIO) Get(ctx context.Context, pin int) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	p, err := d.pin(pin)
	if err != nil {
		return false, err
	}
	return bool(p.Read()), nil
}

// SetPWMFrequency sets the frequency of the output at given index (1...)
func (d *periphGPIO) SetPWMFrequency(ctx context.Context, output int, freq hal.Frequency) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, err := d.pin(output); err != nil {
		return err
	}
	if freq == 0 {
		freq = hal.DefaultFrequency
	}
	d.freqs[output] = physic.Frequency(freq) * physic.Hertz
	return nil
}

// SetPWM the output at given index (1...) to the given value.
// The duty is the difference between offValue & onValue.
func (d *periphGPIO) SetPWM(ctx context.Context, output int, onValue, offValue uint32, enabled bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	p, err := d.pin(output)
	if err != nil {
		return err
	}
	duty := uint32(0)
	if enabled && offValue > onValue {
		duty = min(offValue-onValue, uint32(gpio.DutyMax))
	}
	freq, found := d.freqs[output]
	if !found {
		freq = physic.Frequency(hal.DefaultFrequency) * physic.Hertz
	}
	d.onActive()
	if err := p.PWM(gpio.Duty(duty), freq); err != nil {
		return errors.Wrapf(err, "PWM on '%s' failed", p.Name())
	}
	d.duties[output] = duty
	d.outputs[output] = true
	return nil
}

// GetPWM the output at given index (1...)
func (d *periphGPIO) GetPWM(ctx context.Context, output int) (uint32, uint32, bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, err := d.pin(output); err != nil {
		return 0, 0, false, err
	}
	duty := d.duties[output]
	return 0, duty, duty > 0, nil
}

// pin returns the resolved pin at given index (1...). Caller must hold the mutex.
func (d *periphGPIO) pin(index int) (gpio.PinIO, error) {
	p, found := d.pins[index]
	if !found {
		if _, configured := d.config.Pins[index]; configured {
			return nil, errors.Wrapf(NotConfiguredError, "pin %d of '%s'", index, d.config.ID)
		}
		return nil, errors.Wrapf(InvalidPinError, "pin %d is not configured in '%s'", index, d.config.ID)
	}
	return p, nil
}
