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
	rpiGreenLedPin = 23
	rpiRedLedPin   = 24
	rpiSclPin      = 3
	rpiPinCount    = 28
	rpiI2CLocation = "/dev/i2c-1"
)

type piBridge struct {
	ledPair
	mutex sync.Mutex
	bus   I2CBus
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's
func NewRaspberryPiBridge() (API, error) {
	greenLed, redLed, err := openStatusLeds(rpiGreenLedPin, rpiRedLedPin)
	if err != nil {
		return nil, err
	}
	return &piBridge{
		ledPair: ledPair{
			greenLed: statusLed{pin: greenLed},
			redLed:   statusLed{pin: redLed},
		},
	}, nil
}

// openStatusLeds opens the green & red status led pins as active low outputs.
func openStatusLeds(greenPin, redPin int) (OutputPin, OutputPin, error) {
	activeLow := true
	initialValue := false
	greenLed, err := gpio.Output(greenPin, activeLow, initialValue)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Output[greenLed] failed")
	}
	redLed, err := gpio.Output(redPin, activeLow, initialValue)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Output[redLed] failed")
	}
	return greenLed, redLed, nil
}

// Returns number of local pins
func (p *piBridge) PinCount() int {
	return rpiPinCount
}

// Input initializes a GPIO input pin with the given pin number.
func (p *piBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	return gpio.Input(pinNumber, activeLow)
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *piBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	return gpio.Output(pinNumber, activeLow, initialValue)
}

// Open the I2C bus
func (p *piBridge) I2CBus() (I2CBus, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bus == nil {
		bus, err := NewI2CBus(rpiI2CLocation, rpiSclPin)
		if err != nil {
			return nil, errors.Wrap(err, "NewI2CBus failed")
		}
		p.bus = bus
	}
	return p.bus, nil
}

func (p *piBridge) Close() error {
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
