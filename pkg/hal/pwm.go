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

package hal

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type attachment struct {
	pin        Pin
	resolution uint8
}

// channelPWM routes writes through channels taken from a shared allocator.
type channelPWM struct {
	mutex    sync.Mutex
	dev      PinDevice
	alloc    *ChannelAllocator
	channels map[Channel]attachment
}

// NewChannelPWM creates a channel based PWM provider.
// Every Attach takes the next channel from the given allocator, which may be
// shared between providers that use the same peripheral.
func NewChannelPWM(dev PinDevice, alloc *ChannelAllocator) PWM {
	return &channelPWM{
		dev:      dev,
		alloc:    alloc,
		channels: make(map[Channel]attachment),
	}
}

// Attach binds the given pin to the next channel.
// A channel is only taken when the device accepted the pin.
func (p *channelPWM) Attach(ctx context.Context, pin Pin, freq Frequency, resolution uint8) (Channel, error) {
	if resolution == 0 || resolution > MaxResolution {
		return 0, errors.Wrapf(ErrInvalidResolution, "got %d bits", resolution)
	}
	if p.alloc.Remaining() == 0 {
		return 0, errors.Wrapf(ErrChannelsExhausted, "cannot attach pin %d", pin)
	}
	if err := p.dev.AttachPin(ctx, pin, freq, resolution); err != nil {
		return 0, maskAny(err)
	}
	ch, err := p.alloc.Allocate()
	if err != nil {
		return 0, errors.Wrapf(err, "cannot attach pin %d", pin)
	}
	p.mutex.Lock()
	p.channels[ch] = attachment{pin: pin, resolution: resolution}
	p.mutex.Unlock()
	return ch, nil
}

// Write sets the duty cycle of the pin bound to the given channel.
func (p *channelPWM) Write(ctx context.Context, ch Channel, duty uint32) error {
	p.mutex.Lock()
	a, found := p.channels[ch]
	p.mutex.Unlock()
	if !found {
		return errors.Wrapf(ErrNotAttached, "channel %d", ch)
	}
	if max := MaxDuty(a.resolution); duty > max {
		duty = max
	}
	return p.dev.WritePin(ctx, a.pin, duty, a.resolution)
}

// pinPWM uses the pin itself as channel handle.
type pinPWM struct {
	mutex       sync.Mutex
	dev         PinDevice
	resolutions map[Pin]uint8
}

// NewPinPWM creates a pin direct PWM provider.
func NewPinPWM(dev PinDevice) PWM {
	return &pinPWM{
		dev:         dev,
		resolutions: make(map[Pin]uint8),
	}
}

// Attach configures the pin for PWM output and returns the pin as handle.
func (p *pinPWM) Attach(ctx context.Context, pin Pin, freq Frequency, resolution uint8) (Channel, error) {
	if resolution == 0 || resolution > MaxResolution {
		return 0, errors.Wrapf(ErrInvalidResolution, "got %d bits", resolution)
	}
	if err := p.dev.AttachPin(ctx, pin, freq, resolution); err != nil {
		return 0, maskAny(err)
	}
	p.mutex.Lock()
	p.resolutions[pin] = resolution
	p.mutex.Unlock()
	return Channel(pin), nil
}

// Write sets the duty cycle of the given pin.
func (p *pinPWM) Write(ctx context.Context, ch Channel, duty uint32) error {
	pin := Pin(ch)
	p.mutex.Lock()
	resolution, found := p.resolutions[pin]
	p.mutex.Unlock()
	if !found {
		return errors.Wrapf(ErrNotAttached, "pin %d", pin)
	}
	if max := MaxDuty(resolution); duty > max {
		duty = max
	}
	return p.dev.WritePin(ctx, pin, duty, resolution)
}
