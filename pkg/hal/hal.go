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

// Package hal contains the platform boundary that motor drivers write their
// pin patterns to.
package hal

import "context"

// Pin identifies an output pin on a specific provider.
type Pin int

// Channel is the handle returned when a pin is attached to a PWM provider.
type Channel int

// Frequency of a PWM signal in Hz.
type Frequency uint32

const (
	// DefaultFrequency is the PWM frequency used when none is configured.
	DefaultFrequency Frequency = 5000
	// DefaultResolution is the PWM resolution (in bits) used when none is configured.
	DefaultResolution uint8 = 8
	// MaxResolution is the highest supported PWM resolution (in bits).
	MaxResolution uint8 = 16
)

// DigitalOutput is implemented by providers of digital output pins.
type DigitalOutput interface {
	// ConfigureOutput puts the given pin in output mode.
	ConfigureOutput(ctx context.Context, pin Pin) error
	// WriteDigital sets the level of the given output pin.
	WriteDigital(ctx context.Context, pin Pin, high bool) error
}

// PWM is the duty cycle capability that motor drivers are given.
type PWM interface {
	// Attach configures the given pin for PWM output with given frequency
	// and resolution (in bits) and returns the handle used to write to it.
	Attach(ctx context.Context, pin Pin, freq Frequency, resolution uint8) (Channel, error)
	// Write sets the duty cycle of an attached channel.
	// The duty is expressed in the resolution given to Attach.
	Write(ctx context.Context, ch Channel, duty uint32) error
}

// PinDevice is implemented by PWM peripherals that address outputs by pin.
type PinDevice interface {
	// AttachPin configures the given pin for PWM output.
	AttachPin(ctx context.Context, pin Pin, freq Frequency, resolution uint8) error
	// WritePin sets the duty cycle of the given pin, expressed in the given resolution.
	WritePin(ctx context.Context, pin Pin, duty uint32, resolution uint8) error
}

// MaxDuty returns the highest duty value for the given resolution (in bits).
func MaxDuty(resolution uint8) uint32 {
	if resolution == 0 {
		return 0
	}
	if resolution > MaxResolution {
		resolution = MaxResolution
	}
	return (uint32(1) << resolution) - 1
}

// ScaleDuty converts a duty cycle expressed in the given resolution
// to the range 0..toMax, rounding to the nearest value.
func ScaleDuty(duty uint32, resolution uint8, toMax uint32) uint32 {
	fromMax := MaxDuty(resolution)
	if fromMax == 0 {
		return 0
	}
	if duty >= fromMax {
		return toMax
	}
	return uint32((uint64(duty)*uint64(toMax)*2 + uint64(fromMax)) / (uint64(fromMax) * 2))
}
