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
	"sync"

	"github.com/pkg/errors"
)

// ChannelAllocator hands out ascending PWM channel IDs for a peripheral
// with a fixed number of channels. Channels are never returned.
type ChannelAllocator struct {
	mutex sync.Mutex
	next  Channel
	limit int
}

// NewChannelAllocator creates an allocator for a peripheral with the given
// number of channels. A limit <= 0 means unbounded.
func NewChannelAllocator(limit int) *ChannelAllocator {
	return &ChannelAllocator{limit: limit}
}

// Allocate returns the next free channel.
func (a *ChannelAllocator) Allocate() (Channel, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.limit > 0 && int(a.next) >= a.limit {
		return 0, errors.Wrapf(ErrChannelsExhausted, "all %d channels in use", a.limit)
	}
	ch := a.next
	a.next++
	return ch, nil
}

// Allocated returns the number of channels handed out so far.
func (a *ChannelAllocator) Allocated() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return int(a.next)
}

// Remaining returns the number of channels still available,
// or -1 when the allocator is unbounded.
func (a *ChannelAllocator) Remaining() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.limit <= 0 {
		return -1
	}
	return a.limit - int(a.next)
}
