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

// Package motor drives a DC motor through an H-bridge or half-bridge driver
// chip, translating a signed speed into digital and PWM pin writes.
package motor

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/MotorControl/pkg/hal"
)

// Config of a single motor driver.
type Config struct {
	// Wiring topology
	Mode Mode
	// Meaning depends on Mode
	Pin1 hal.Pin
	Pin2 hal.Pin
	// PWM pin, only for DirPWM & DirDirPWM
	PWMPin *hal.Pin
	// PWM frequency, defaults to hal.DefaultFrequency
	Frequency hal.Frequency
	// PWM resolution in bits, defaults to hal.DefaultResolution
	Resolution uint8
	// Duty written to the PWM pin when braking in DirPWM mode
	BrakePolarity BrakePolarity
}

// Dependencies of a motor driver.
type Dependencies struct {
	// Digital output provider, required unless Mode is PWMPWM
	Digital hal.DigitalOutput
	// PWM provider, required unless Mode is DirDir
	PWM hal.PWM
	Log zerolog.Logger
}

// Pins holds the pin assignment of a driver.
type Pins struct {
	Pin1   hal.Pin  `json:"pin1"`
	Pin2   hal.Pin  `json:"pin2"`
	PWMPin *hal.Pin `json:"pwm_pin,omitempty"`
}

// Driver drives a single motor.
// A Driver is not safe for concurrent use.
type Driver struct {
	log     zerolog.Logger
	mode    Mode
	pins    Pins
	brake   BrakePolarity
	digital hal.DigitalOutput
	pwm     hal.PWM
	maxDuty uint32
	// PWM channel handles; ch1/ch2 are used by PWMPWM, chPWM by DirPWM & DirDirPWM
	ch1, ch2, chPWM hal.Channel
	speed           int
}

// NewTwoPin creates a driver for a mode that needs no separate PWM pin
// (PWMPWM or DirDir).
func NewTwoPin(ctx context.Context, mode Mode, pin1, pin2 hal.Pin, deps Dependencies) (*Driver, error) {
	return New(ctx, Config{Mode: mode, Pin1: pin1, Pin2: pin2}, deps)
}

// NewThreePin creates a driver for a mode with a separate PWM pin
// (DirPWM or DirDirPWM).
func NewThreePin(ctx context.Context, mode Mode, pin1, pin2, pwmPin hal.Pin, deps Dependencies) (*Driver, error) {
	return New(ctx, Config{Mode: mode, Pin1: pin1, Pin2: pin2, PWMPin: &pwmPin}, deps)
}

// New creates a driver for the given configuration, configures its pins
// and puts the motor in the stopped state.
func New(ctx context.Context, cfg Config, deps Dependencies) (*Driver, error) {
	if !cfg.Mode.Valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "%d", cfg.Mode)
	}
	if cfg.Mode.NeedsPWMPin() != (cfg.PWMPin != nil) {
		if cfg.PWMPin == nil {
			return nil, errors.Wrapf(ErrModePinMismatch, "mode %s requires a PWM pin", cfg.Mode)
		}
		return nil, errors.Wrapf(ErrModePinMismatch, "mode %s does not use a PWM pin", cfg.Mode)
	}
	if cfg.Mode.UsesDigital() && deps.Digital == nil {
		return nil, errors.Wrapf(ErrMissingDependency, "mode %s requires a digital output provider", cfg.Mode)
	}
	if cfg.Mode.UsesPWM() && deps.PWM == nil {
		return nil, errors.Wrapf(ErrMissingDependency, "mode %s requires a PWM provider", cfg.Mode)
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = hal.DefaultFrequency
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = hal.DefaultResolution
	}
	d := &Driver{
		log:     deps.Log.With().Str("mode", cfg.Mode.String()).Logger(),
		mode:    cfg.Mode,
		pins:    Pins{Pin1: cfg.Pin1, Pin2: cfg.Pin2, PWMPin: cfg.PWMPin},
		brake:   cfg.BrakePolarity,
		digital: deps.Digital,
		pwm:     deps.PWM,
		maxDuty: hal.MaxDuty(cfg.Resolution),
	}
	if err := d.setup(ctx, cfg.Frequency, cfg.Resolution); err != nil {
		return nil, err
	}
	d.log.Debug().
		Int("pin1", int(cfg.Pin1)).
		Int("pin2", int(cfg.Pin2)).
		Uint32("frequency", uint32(cfg.Frequency)).
		Uint8("resolution", cfg.Resolution).
		Msg("Created motor driver")
	return d, nil
}

// setup configures all pins and drives them to the off state.
func (d *Driver) setup(ctx context.Context, freq hal.Frequency, resolution uint8) error {
	switch d.mode {
	case PWMPWM:
		var err error
		if d.ch1, err = d.pwm.Attach(ctx, d.pins.Pin1, freq, resolution); err != nil {
			return errors.Wrapf(err, "attach pin1 (%d) failed", d.pins.Pin1)
		}
		if d.ch2, err = d.pwm.Attach(ctx, d.pins.Pin2, freq, resolution); err != nil {
			return errors.Wrapf(err, "attach pin2 (%d) failed", d.pins.Pin2)
		}
		return d.writeDuties(ctx, 0, 0)
	case DirDir:
		if err := d.configureDirectionPins(ctx); err != nil {
			return err
		}
		return d.writeDirection(ctx, false, false)
	default:
		if err := d.configureDirectionPins(ctx); err != nil {
			return err
		}
		var err error
		if d.chPWM, err = d.pwm.Attach(ctx, *d.pins.PWMPin, freq, resolution); err != nil {
			return errors.Wrapf(err, "attach pwm pin (%d) failed", *d.pins.PWMPin)
		}
		if err := d.writeDuty(ctx, 0); err != nil {
			return err
		}
		return d.writeDirection(ctx, false, false)
	}
}

func (d *Driver) configureDirectionPins(ctx context.Context) error {
	if err := d.digital.ConfigureOutput(ctx, d.pins.Pin1); err != nil {
		return errors.Wrapf(err, "configure pin1 (%d) failed", d.pins.Pin1)
	}
	if err := d.digital.ConfigureOutput(ctx, d.pins.Pin2); err != nil {
		return errors.Wrapf(err, "configure pin2 (%d) failed", d.pins.Pin2)
	}
	return nil
}

// SetSpeed sets the speed (-100..100) of the motor.
// Out of range values are clamped. Positive is forward, negative is reverse.
func (d *Driver) SetSpeed(ctx context.Context, speed int) error {
	speed = ClampSpeed(speed)
	d.speed = speed
	duty := DutyForSpeed(speed, d.maxDuty)
	forward := speed >= 0

	switch d.mode {
	case DirPWM:
		if err := d.writePin1(ctx, !forward); err != nil {
			return err
		}
		return d.writeDuty(ctx, duty)
	case PWMPWM:
		if forward {
			return d.writeDuties(ctx, 0, duty)
		}
		return d.writeDuties(ctx, duty, 0)
	case DirDirPWM:
		if err := d.writeDuty(ctx, duty); err != nil {
			return err
		}
		return d.writeDirection(ctx, forward, !forward)
	case DirDir:
		return d.writeDirection(ctx, forward, !forward)
	}
	return nil
}

// Brake shorts the motor terminals to stop the motor quickly.
func (d *Driver) Brake(ctx context.Context) error {
	d.speed = 0
	switch d.mode {
	case DirPWM:
		if err := d.writePin1(ctx, true); err != nil {
			return err
		}
		if d.brake == BrakeHigh {
			return d.writeDuty(ctx, d.maxDuty)
		}
		return d.writeDuty(ctx, 0)
	case PWMPWM:
		return d.writeDuties(ctx, d.maxDuty, d.maxDuty)
	case DirDirPWM:
		if err := d.writeDuty(ctx, d.maxDuty); err != nil {
			return err
		}
		return d.writeDirection(ctx, true, true)
	case DirDir:
		return d.writeDirection(ctx, true, true)
	}
	return nil
}

// Stop releases the motor terminals so the motor coasts to a stop.
func (d *Driver) Stop(ctx context.Context) error {
	d.speed = 0
	switch d.mode {
	case DirPWM:
		if err := d.writePin1(ctx, false); err != nil {
			return err
		}
		return d.writeDuty(ctx, 0)
	case PWMPWM:
		return d.writeDuties(ctx, 0, 0)
	case DirDirPWM:
		if err := d.writeDuty(ctx, 0); err != nil {
			return err
		}
		return d.writeDirection(ctx, false, false)
	case DirDir:
		return d.writeDirection(ctx, false, false)
	}
	return nil
}

// Speed returns the last commanded (clamped) speed.
func (d *Driver) Speed() int {
	return d.speed
}

// Mode returns the wiring topology of the driver.
func (d *Driver) Mode() Mode {
	return d.mode
}

// Pins returns the pin assignment of the driver.
func (d *Driver) Pins() Pins {
	return d.pins
}

// MaxDuty returns the duty cycle that corresponds to full speed.
func (d *Driver) MaxDuty() uint32 {
	return d.maxDuty
}

func (d *Driver) writePin1(ctx context.Context, high bool) error {
	if err := d.digital.WriteDigital(ctx, d.pins.Pin1, high); err != nil {
		return errors.Wrapf(err, "write pin1 (%d) failed", d.pins.Pin1)
	}
	return nil
}

func (d *Driver) writeDirection(ctx context.Context, pin1, pin2 bool) error {
	if err := d.writePin1(ctx, pin1); err != nil {
		return err
	}
	if err := d.digital.WriteDigital(ctx, d.pins.Pin2, pin2); err != nil {
		return errors.Wrapf(err, "write pin2 (%d) failed", d.pins.Pin2)
	}
	return nil
}

func (d *Driver) writeDuty(ctx context.Context, duty uint32) error {
	if err := d.pwm.Write(ctx, d.chPWM, duty); err != nil {
		return errors.Wrapf(err, "write pwm pin (%d) failed", *d.pins.PWMPin)
	}
	return nil
}

func (d *Driver) writeDuties(ctx context.Context, duty1, duty2 uint32) error {
	if err := d.pwm.Write(ctx, d.ch1, duty1); err != nil {
		return errors.Wrapf(err, "write pin1 (%d) duty failed", d.pins.Pin1)
	}
	if err := d.pwm.Write(ctx, d.ch2, duty2); err != nil {
		return errors.Wrapf(err, "write pin2 (%d) duty failed", d.pins.Pin2)
	}
	return nil
}
