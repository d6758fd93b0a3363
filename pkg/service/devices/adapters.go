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

	"github.com/pkg/errors"

	"github.com/binkynet/MotorControl/pkg/hal"
)

type digitalOutput struct {
	id   string
	gpio GPIO
}

// DigitalOutputOf returns the digital outputs of the given GPIO device
// with given ID. Pins are the 1-based pin indexes of the device.
func DigitalOutputOf(id string, gpio GPIO) hal.DigitalOutput {
	return &digitalOutput{id: id, gpio: gpio}
}

// ConfigureOutput puts the given pin in output mode.
func (d *digitalOutput) ConfigureOutput(ctx context.Context, pin hal.Pin) error {
	if err := d.gpio.SetDirection(ctx, int(pin), PinDirectionOutput); err != nil {
		pinWriteErrorsTotal.WithLabelValues(d.id).Inc()
		return errors.Wrapf(err, "device '%s'", d.id)
	}
	return nil
}

// WriteDigital sets the level of the given output pin.
func (d *digitalOutput) WriteDigital(ctx context.Context, pin hal.Pin, high bool) error {
	digitalWritesTotal.WithLabelValues(d.id).Inc()
	if err := d.gpio.Set(ctx, int(pin), high); err != nil {
		pinWriteErrorsTotal.WithLabelValues(d.id).Inc()
		return errors.Wrapf(err, "device '%s'", d.id)
	}
	return nil
}

type pinDevice struct {
	id  string
	pwm PWM
}

// PinDeviceOf returns the PWM outputs of the given PWM device with given ID.
// Pins are the 1-based output indexes of the device.
func PinDeviceOf(id string, pwm PWM) hal.PinDevice {
	return &pinDevice{id: id, pwm: pwm}
}

// AttachPin configures the given output for PWM and turns it off.
// The frequency is only applied to devices with a frequency per output.
func (d *pinDevice) AttachPin(ctx context.Context, pin hal.Pin, freq hal.Frequency, resolution uint8) error {
	if pin < 1 || int(pin) > d.pwm.PWMPinCount() {
		return errors.Wrapf(InvalidPinError, "device '%s': output must be between 1 and %d, got %d", d.id, d.pwm.PWMPinCount(), pin)
	}
	if fc, ok := d.pwm.(PWMFrequencyController); ok {
		if err := fc.SetPWMFrequency(ctx, int(pin), freq); err != nil {
			return errors.Wrapf(err, "device '%s'", d.id)
		}
	}
	if err := d.pwm.SetPWM(ctx, int(pin), 0, 0, false); err != nil {
		pinWriteErrorsTotal.WithLabelValues(d.id).Inc()
		return errors.Wrapf(err, "device '%s'", d.id)
	}
	return nil
}

// WritePin sets the duty cycle of the given output, scaled from the given
// resolution to the range of the device.
func (d *pinDevice) WritePin(ctx context.Context, pin hal.Pin, duty uint32, resolution uint8) error {
	value := hal.ScaleDuty(duty, resolution, d.pwm.MaxPWMValue())
	pwmWritesTotal.WithLabelValues(d.id).Inc()
	if err := d.pwm.SetPWM(ctx, int(pin), 0, value, value > 0); err != nil {
		pinWriteErrorsTotal.WithLabelValues(d.id).Inc()
		return errors.Wrapf(err, "device '%s'", d.id)
	}
	return nil
}
