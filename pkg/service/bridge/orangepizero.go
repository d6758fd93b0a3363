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

package bridge

import (
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	opzGreenLedPin = 19
	opzRedLedPin   = 18
	opzPinCount    = 17
	opzI2CLocation = "/dev/i2c-0"
	// SCL recovery is not wired on the Orange PI Zero
	opzSclPin = -1
)

type orangepizeroBridge struct {
	ledPair
	mutex sync.Mutex
	bus   I2CBus
}

// NewOrangePIZeroBridge implements the bridge for an Orange PI Zero
func NewOrangePIZeroBridge() (API, error) {
	greenLed, redLed, err := openStatusLeds(opzGreenLedPin, opzRedLedPin)
	if err != nil {
		return nil, err
	}
	return &orangepizeroBridge{
		ledPair: ledPair{
			greenLed: statusLed{pin: greenLed},
			redLed:   statusLed{pin: redLed},
		},
	}, nil
}

// Returns number of local pins
func (p *orangepizeroBridge) PinCount() int {
	return opzPinCount
}

// Input initializes a GPIO input pin with the given pin number.
func (p *orangepizeroBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	return gpio.Input(pinNumber, activeLow)
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *orangepizeroBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	return gpio.Output(pinNumber, activeLow, initialValue)
}

// Open the I2C bus
func (p *orangepizeroBridge) I2CBus() (I2CBus, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bus == nil {
		bus, err := NewI2CBus(opzI2CLocation, opzSclPin)
		if err != nil {
			return nil, errors.Wrap(err, "NewI2CBus failed")
		}
		p.bus = bus
	}
	return p.bus, nil
}

func (p *orangepizeroBridge) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closeLeds()
	if p.bus != nil {
		bus := p.bus
		p.bus = nil
		if err := bus.Close(); err != nil {
			return errors.Wrap(err, "Close failed")
		}
	}
	return nil
}
