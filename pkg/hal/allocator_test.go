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
	"testing"
)

func TestAllocatorAscending(t *testing.T) {
	a := NewChannelAllocator(4)
	for i := 0; i < 4; i++ {
		ch, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate %d failed: %v", i, err)
		}
		if ch != Channel(i) {
			t.Errorf("Expected channel %d, got %d", i, ch)
		}
	}
	if _, err := a.Allocate(); !IsChannelsExhausted(err) {
		t.Errorf("Expected exhausted error, got %v", err)
	}
	if a.Allocated() != 4 {
		t.Errorf("Expected 4 allocated, got %d", a.Allocated())
	}
	if a.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", a.Remaining())
	}
}

func TestAllocatorUnbounded(t *testing.T) {
	a := NewChannelAllocator(0)
	for i := 0; i < 100; i++ {
		if _, err := a.Allocate(); err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
	}
	if a.Remaining() != -1 {
		t.Errorf("Expected -1 remaining, got %d", a.Remaining())
	}
}

func TestAllocatorConcurrent(t *testing.T) {
	a := NewChannelAllocator(64)
	var wg sync.WaitGroup
	var mutex sync.Mutex
	seen := make(map[Channel]bool)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := a.Allocate()
			if err != nil {
				t.Errorf("Allocate failed: %v", err)
				return
			}
			mutex.Lock()
			defer mutex.Unlock()
			if seen[ch] {
				t.Errorf("Channel %d handed out twice", ch)
			}
			seen[ch] = true
		}()
	}
	wg.Wait()
	if len(seen) != 64 {
		t.Errorf("Expected 64 distinct channels, got %d", len(seen))
	}
}

func TestMaxDuty(t *testing.T) {
	tests := []struct {
		resolution uint8
		want       uint32
	}{
		{0, 0},
		{1, 1},
		{8, 255},
		{12, 4095},
		{16, 65535},
		{20, 65535},
	}
	for _, tt := range tests {
		if got := MaxDuty(tt.resolution); got != tt.want {
			t.Errorf("MaxDuty(%d): expected %d, got %d", tt.resolution, tt.want, got)
		}
	}
}

func TestScaleDuty(t *testing.T) {
	tests := []struct {
		duty       uint32
		resolution uint8
		toMax      uint32
		want       uint32
	}{
		{0, 8, 4095, 0},
		{255, 8, 4095, 4095},
		{300, 8, 4095, 4095},
		{128, 8, 4095, 2056},
		{1, 1, 100, 100},
		{4095, 12, 255, 255},
		{2048, 12, 255, 128},
	}
	for _, tt := range tests {
		if got := ScaleDuty(tt.duty, tt.resolution, tt.toMax); got != tt.want {
			t.Errorf("ScaleDuty(%d, %d, %d): expected %d, got %d", tt.duty, tt.resolution, tt.toMax, tt.want, got)
		}
	}
}
