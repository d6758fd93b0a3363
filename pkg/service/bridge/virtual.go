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

	"github.com/pkg/errors"
)

const (
	virtualPinCount = 28
)

// Addresses of devices on the I2C bus of the virtual bridge.
// They cover the default addresses of the supported expanders.
var virtualBusAddresses = []uint8{0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x40, 0x41}

type virtualBridge struct {
	ledPair
	bus  *MemoryBus
	pins *MemoryPins
}

// NewVirtualBridge implements the bridge without hardware, keeping
// all state in memory.
func NewVirtualBridge() (API, error) {
	return &virtualBridge{
		ledPair: ledPair{
			greenLed: statusLed{pin: &memoryPin{}},
			redLed:   statusLed{pin: &memoryPin{}},
		},
		bus:  NewMemoryBus(virtualBusAddresses...),
		pins: NewMemoryPins(virtualPinCount),
	}, nil
}

// Returns number of local pins
func (p *virtualBridge) PinCount() int {
	return p.pins.count
}

// Input initializes a GPIO input pin with the given pin number.
func (p *virtualBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	return p.pins.pin(pinNumber)
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *virtualBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	pin, err := p.pins.pin(pinNumber)
	if err != nil {
		return nil, err
	}
	pin.Write(initialValue)
	return pin, nil
}

// Open the I2C bus
func (p *virtualBridge) I2CBus() (I2CBus, error) {
	return p.bus, nil
}

func (p *virtualBridge) Close() error {
	p.closeLeds()
	return nil
}

// MemoryPins is a set of in-memory local pins.
type MemoryPins struct {
	mutex sync.Mutex
	count int
	pins  map[int]*memoryPin
}

// NewMemoryPins creates a set of given number of pins.
func NewMemoryPins(count int) *MemoryPins {
	return &MemoryPins{
		count: count,
		pins:  make(map[int]*memoryPin),
	}
}

// Level returns the level of the pin with given number.
func (p *MemoryPins) Level(pinNumber int) bool {
	pin, err := p.pin(pinNumber)
	if err != nil {
		return false
	}
	v, _ := pin.Read()
	return v
}

func (p *MemoryPins) pin(pinNumber int) (*memoryPin, error) {
	if pinNumber < 0 || pinNumber >= p.count {
		return nil, errors.Errorf("Invalid pin %d", pinNumber)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	pin, found := p.pins[pinNumber]
	if !found {
		pin = &memoryPin{}
		p.pins[pinNumber] = pin
	}
	return pin, nil
}

type memoryPin struct {
	mutex sync.Mutex
	value bool
}

func (p *memoryPin) Read() (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.value, nil
}

func (p *memoryPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.value = value
	return nil
}
