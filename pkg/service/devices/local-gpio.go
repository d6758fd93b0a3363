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

// localGPIO gives access to the GPIO pins of the bridge.
// Pin index N is bridge pin number N-1.
type localGPIO struct {
	mutex    sync.Mutex
	onActive func()
	config   model.Device
	api      bridge.API
	inputs   []bridge.InputPin
	outputs  []bridge.OutputPin
}

// newLocalGPIO creates a GPIO instance for a GPIO locally on the bridge
func newLocalGPIO(config model.Device, api bridge.API, onActive func()) (GPIO, error) {
	if config.Type != model.DeviceTypeGPIO {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "'%s'", config.Type)
	}
	return &localGPIO{
		onActive: onActive,
		config:   config,
		api:      api,
	}, nil
}

// Configure is called once to put the device in the desired state.
func (d *localGPIO) Configure(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	d.inputs = make([]bridge.InputPin, d.PinCount())
	d.outputs = make([]bridge.OutputPin, d.PinCount())
	return nil
}

// Close drives all outputs low & releases the pins.
func (d *localGPIO) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.onActive()
	for _, out := range d.outputs {
		if out != nil {
			out.Write(false)
		}
	}
	d.inputs = nil
	d.outputs = nil
	return nil
}

// PinCount returns the number of pins of the device
func (d *localGPIO) PinCount() int {
	return d.api.PinCount()
}

// Set the direction of the pin at given index (1...)
// An output pin starts low.
func (d *localGPIO) SetDirection(ctx context.Context, pin int, direction PinDirection) error {
	index, err := d.index(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.outputs == nil {
		return errors.Wrapf(NotConfiguredError, "device '%s'", d.config.ID)
	}

	d.onActive()
	switch direction {
	case PinDirectionInput:
		p, err := d.api.Input(index, false)
		if err != nil {
			return maskAny(err)
		}
		d.inputs[index] = p
		d.outputs[index] = nil
	case PinDirectionOutput:
		p, err := d.api.Output(index, false, false)
		if err != nil {
			return maskAny(err)
		}
		d.inputs[index] = nil
		d.outputs[index] = p
	default:
		return errors.Wrapf(InvalidDirectionError, "%d", direction)
	}
	return nil
}

// Get the direction of the pin at given index (1...)
func (d *localGPIO) GetDirection(ctx context.Context, pin int) (PinDirection, error) {
	index, err := d.index(pin)
	if err != nil {
		return PinDirectionInput, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.outputs == nil {
		return PinDirectionInput, errors.Wrapf(NotConfiguredError, "device '%s'", d.config.ID)
	}

	if d.outputs[index] != nil {
		return PinDirectionOutput, nil
	}
	return PinDirectionInput, nil
}

// Set the pin at given index (1...) to the given value
func (d *localGPIO) Set(ctx context.Context, pin int, value bool) error {
	index, err := d.index(pin)
	if err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.outputs == nil {
		return errors.Wrapf(NotConfiguredError, "device '%s'", d.config.ID)
	}

	if f := d.outputs[index]; f != nil {
		d.onActive()
		return f.Write(value)
	}
	return errors.Wrapf(InvalidDirectionError, "pin %d does not have direction output", pin)
}

// Get the value of the pin at given index (1...)
func (d *localGPIO) Get(ctx context.Context, pin int) (bool, error) {
	index, err := d.index(pin)
	if err != nil {
		return false, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.outputs == nil {
		return false, errors.Wrapf(NotConfiguredError, "device '%s'", d.config.ID)
	}

	if f := d.inputs[index]; f != nil {
		return f.Read()
	}
	return false, errors.Wrapf(InvalidDirectionError, "pin %d does not have direction input", pin)
}

// index converts a pin index (1...) into a bridge pin number.
func (d *localGPIO) index(pin int) (int, error) {
	if pin < 1 || pin > d.PinCount() {
		return 0, errors.Wrapf(InvalidPinError, "Pin must be between 1 and %d, got %d", d.PinCount(), pin)
	}
	return pin - 1, nil
}
