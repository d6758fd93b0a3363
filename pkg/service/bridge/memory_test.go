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
	"errors"
	"testing"
	"time"
)

func TestMemoryBus(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(0x40, 0x20)
	if err := bus.Execute(ctx, 0x40, func(ctx context.Context, dev I2CDevice) error {
		if err := dev.WriteByteReg(0x06, 0x12); err != nil {
			return err
		}
		return dev.SendByte(0xAA)
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	d, found := bus.Device(0x40)
	if !found {
		t.Fatal("Expected device 0x40")
	}
	if d.Register(0x06) != 0x12 {
		t.Errorf("Expected 0x12, got 0x%02x", d.Register(0x06))
	}
	if d.Value() != 0xAA {
		t.Errorf("Expected 0xAA, got 0x%02x", d.Value())
	}
	d.SetValue(0x5A)
	var received uint8
	if err := bus.Execute(ctx, 0x40, func(ctx context.Context, dev I2CDevice) error {
		var err error
		received, err = dev.ReceiveByte()
		return err
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if received != 0x5A {
		t.Errorf("Expected 0x5A, got 0x%02x", received)
	}
	if err := bus.Execute(ctx, 0x41, func(ctx context.Context, dev I2CDevice) error { return nil }); err == nil {
		t.Error("Expected error for unknown address")
	}
	addrs := bus.DetectSlaveAddresses()
	if len(addrs) != 2 || addrs[0] != 0x20 || addrs[1] != 0x40 {
		t.Errorf("Unexpected addresses %v", addrs)
	}
}

func TestMemoryBusFailure(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	bus.AddDevice(0x20).Fail(errors.New("nack"))
	err := bus.Execute(ctx, 0x20, func(ctx context.Context, dev I2CDevice) error {
		return dev.WriteByteReg(0, 1)
	})
	if err == nil {
		t.Error("Expected error")
	}
	bus.Close()
	if err := bus.Execute(ctx, 0x20, func(ctx context.Context, dev I2CDevice) error { return nil }); err == nil {
		t.Error("Expected error on closed bus")
	}
}

func TestMemoryBusCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := NewMemoryBus(0x20)
	called := false
	err := bus.Execute(ctx, 0x20, func(ctx context.Context, dev I2CDevice) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("Expected canceled execute, got err=%v called=%v", err, called)
	}
}

func TestVirtualBridge(t *testing.T) {
	api, err := New(TypeVirtual)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer api.Close()
	out, err := api.Output(4, true, true)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	in, err := api.Input(4, true)
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if v, _ := in.Read(); !v {
		t.Error("Expected initial value true")
	}
	out.Write(false)
	if v, _ := in.Read(); v {
		t.Error("Expected value false")
	}
	if _, err := api.Output(api.PinCount(), true, false); err == nil {
		t.Error("Expected error for pin out of range")
	}
	bus, err := api.I2CBus()
	if err != nil {
		t.Fatalf("I2CBus failed: %v", err)
	}
	if len(bus.DetectSlaveAddresses()) == 0 {
		t.Error("Expected virtual devices on the bus")
	}
	if _, err := New("beaglebone"); err == nil {
		t.Error("Expected error for unknown bridge type")
	}
}

func TestStatusLed(t *testing.T) {
	pin := &memoryPin{}
	led := &statusLed{pin: pin}
	if err := led.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := pin.Read(); !v {
		t.Error("Expected led on")
	}
	led.Blink(time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if err := led.Set(false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if v, _ := pin.Read(); v {
		t.Error("Expected led off after blink is canceled")
	}
}
