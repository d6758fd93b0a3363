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
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryBus is an in-memory I2C bus. Devices are register files that
// keep whatever is written to them.
type MemoryBus struct {
	mutex   sync.Mutex
	devices map[uint8]*MemoryDevice
	closed  bool
}

var _ I2CBus = &MemoryBus{}

// NewMemoryBus creates an in-memory bus with devices at the given addresses.
func NewMemoryBus(addresses ...uint8) *MemoryBus {
	b := &MemoryBus{
		devices: make(map[uint8]*MemoryDevice),
	}
	for _, addr := range addresses {
		b.AddDevice(addr)
	}
	return b
}

// AddDevice adds a device at the given address, or returns the
// existing device at that address.
func (b *MemoryBus) AddDevice(address uint8) *MemoryDevice {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if d, found := b.devices[address]; found {
		return d
	}
	d := &MemoryDevice{address: address}
	b.devices[address] = d
	return d
}

// Device returns the device at the given address.
func (b *MemoryBus) Device(address uint8) (*MemoryDevice, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	d, found := b.devices[address]
	return d, found
}

// Execute an operation on the device with given address.
func (b *MemoryBus) Execute(ctx context.Context, address uint8, op func(ctx context.Context, dev I2CDevice) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return errors.New("bus closed")
	}
	d, found := b.devices[address]
	if !found {
		return errors.Errorf("device 0x%02x not found", address)
	}
	i2cExecuteCounters.WithLabelValues("memory").Inc()
	if err := op(ctx, d); err != nil {
		return errors.Wrapf(err, "i2c operation on 0x%02x failed", address)
	}
	return nil
}

// DetectSlaveAddresses returns the addresses of all devices.
func (b *MemoryBus) DetectSlaveAddresses() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	result := make([]byte, 0, len(b.devices))
	for addr := range b.devices {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Close the bus.
func (b *MemoryBus) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.closed = true
	return nil
}

// MemoryDevice is a register file on a MemoryBus.
// It must only be accessed through MemoryBus.Execute or after all
// operations have finished.
type MemoryDevice struct {
	address   uint8
	registers [256]uint8
	value     uint8
	failures  error
}

var _ I2CDevice = &MemoryDevice{}

// Register returns the value of the given register.
func (d *MemoryDevice) Register(reg uint8) uint8 {
	return d.registers[reg]
}

// Value returns the last byte written with SendByte.
func (d *MemoryDevice) Value() uint8 {
	return d.value
}

// SetValue sets the byte returned by ReceiveByte.
func (d *MemoryDevice) SetValue(v uint8) {
	d.value = v
}

// Fail makes all subsequent operations return the given error.
func (d *MemoryDevice) Fail(err error) {
	d.failures = err
}

// Read a byte from given register
func (d *MemoryDevice) ReadByteReg(reg uint8) (uint8, error) {
	if d.failures != nil {
		return 0, d.failures
	}
	return d.registers[reg], nil
}

// Write a byte to given register
func (d *MemoryDevice) WriteByteReg(reg uint8, val uint8) error {
	if d.failures != nil {
		return d.failures
	}
	d.registers[reg] = val
	return nil
}

// Read a byte from device
func (d *MemoryDevice) ReceiveByte() (uint8, error) {
	if d.failures != nil {
		return 0, d.failures
	}
	return d.value, nil
}

// Write a byte to device
func (d *MemoryDevice) SendByte(val uint8) error {
	if d.failures != nil {
		return d.failures
	}
	d.value = val
	return nil
}

// ReadDevice reads registers starting at 0.
func (d *MemoryDevice) ReadDevice(data []byte) error {
	if d.failures != nil {
		return d.failures
	}
	copy(data, d.registers[:])
	return nil
}

// WriteDevice writes data[1:] to registers starting at data[0].
func (d *MemoryDevice) WriteDevice(data []byte) error {
	if d.failures != nil {
		return d.failures
	}
	if len(data) == 0 {
		return nil
	}
	copy(d.registers[data[0]:], data[1:])
	return nil
}
