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

package devices

import (
	"context"
	"testing"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

func noActivity() {}

func TestParseAddress(t *testing.T) {
	tests := map[string]uint8{
		"0x20": 0x20,
		"0X7f": 0x7f,
		"64":   64,
	}
	for input, expected := range tests {
		addr, err := parseAddress(input)
		if err != nil {
			t.Errorf("parseAddress('%s') failed: %v", input, err)
		} else if addr != expected {
			t.Errorf("parseAddress('%s'): expected 0x%02x, got 0x%02x", input, expected, addr)
		}
	}
	for _, input := range []string{"", "0x", "0x80", "300", "abc"} {
		if _, err := parseAddress(input); !IsInvalidAddress(err) {
			t.Errorf("parseAddress('%s'): expected invalid address error, got %v", input, err)
		}
	}
}

func TestPCA9685Prescale(t *testing.T) {
	tests := map[uint32]uint8{
		1000: 5,
		60:   101,
		50:   121,
		1526: 3,
		24:   253,
	}
	for freq, expected := range tests {
		if got := pca9685Prescale(freq); got != expected {
			t.Errorf("pca9685Prescale(%d): expected %d, got %d", freq, expected, got)
		}
	}
}

func TestPCA9685(t *testing.T) {
	ctx := context.Background()
	bus := bridge.NewMemoryBus(0x40)
	dev, err := newPCA9685(model.Device{ID: "pwm", Type: model.DeviceTypePCA9685, Address: "0x40"}, bus, noActivity)
	if err != nil {
		t.Fatalf("newPCA9685 failed: %v", err)
	}
	if err := dev.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	regs, _ := bus.Device(0x40)
	if regs.Register(pca9685PRESCALEReg) != 5 {
		t.Errorf("Expected prescale 5, got %d", regs.Register(pca9685PRESCALEReg))
	}
	if regs.Register(pca9685MODE1Reg) != pca9685Mode1Awake {
		t.Errorf("Expected device awake, got MODE1 0x%02x", regs.Register(pca9685MODE1Reg))
	}
	if regs.Register(pca9685AllLEDOffHReg) != pca9685FullBit {
		t.Error("Expected all outputs off")
	}

	// Output 2 at 50%
	if err := dev.SetPWM(ctx, 2, 0, 2048, true); err != nil {
		t.Fatalf("SetPWM failed: %v", err)
	}
	base := uint8(pca9685LEDBaseReg + pca9685RegIncrement)
	if regs.Register(base+pca9685OffLowRegOfs) != 0x00 || regs.Register(base+pca9685OffHighRegOfs) != 0x08 {
		t.Errorf("Unexpected off registers 0x%02x 0x%02x", regs.Register(base+pca9685OffLowRegOfs), regs.Register(base+pca9685OffHighRegOfs))
	}
	on, off, enabled, err := dev.GetPWM(ctx, 2)
	if err != nil || on != 0 || off != 2048 || !enabled {
		t.Errorf("GetPWM: expected 0,2048,true got %d,%d,%v,%v", on, off, enabled, err)
	}

	// Full on
	if err := dev.SetPWM(ctx, 2, 0, 4095, true); err != nil {
		t.Fatalf("SetPWM failed: %v", err)
	}
	if regs.Register(base+pca9685OnHighRegOfs) != pca9685FullBit {
		t.Error("Expected full on bit")
	}
	if _, off, enabled, _ := dev.GetPWM(ctx, 2); off != 4095 || !enabled {
		t.Errorf("Expected full on, got %d,%v", off, enabled)
	}

	// Disabled
	if err := dev.SetPWM(ctx, 2, 0, 1000, false); err != nil {
		t.Fatalf("SetPWM failed: %v", err)
	}
	if regs.Register(base+pca9685OffHighRegOfs)&pca9685FullBit == 0 {
		t.Error("Expected full off bit")
	}
	if _, _, enabled, _ := dev.GetPWM(ctx, 2); enabled {
		t.Error("Expected disabled output")
	}

	if err := dev.SetPWM(ctx, 17, 0, 0, false); !IsInvalidPin(err) {
		t.Errorf("Expected invalid pin error, got %v", err)
	}
	if err := dev.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if regs.Register(pca9685MODE1Reg) != pca9685Mode1Sleep {
		t.Error("Expected device asleep after close")
	}
}

func TestPCA9685InvalidConfig(t *testing.T) {
	bus := bridge.NewMemoryBus(0x40)
	if _, err := newPCA9685(model.Device{ID: "pwm", Type: model.DeviceTypePCA9685, Address: "0x40", Frequency: 5000}, bus, noActivity); err == nil {
		t.Error("Expected error for frequency out of range")
	}
	if _, err := newPCA9685(model.Device{ID: "pwm", Type: model.DeviceTypeMCP23008, Address: "0x40"}, bus, noActivity); !IsInvalidDeviceType(err) {
		t.Errorf("Expected invalid device type, got %v", err)
	}
}

func TestMCP23017(t *testing.T) {
	ctx := context.Background()
	bus := bridge.NewMemoryBus(0x20)
	dev, err := newMcp23017(model.Device{ID: "io", Type: model.DeviceTypeMCP23017, Address: "0x20"}, bus, noActivity)
	if err != nil {
		t.Fatalf("newMcp23017 failed: %v", err)
	}
	if err := dev.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	regs, _ := bus.Device(0x20)
	if regs.Register(mcp23017RegIODIRA) != 0xff || regs.Register(mcp23017RegIODIRA+1) != 0xff {
		t.Error("Expected all pins input after configure")
	}
	if err := dev.Set(ctx, 10, true); !IsInvalidDirection(err) {
		t.Errorf("Expected invalid direction, got %v", err)
	}
	if err := dev.SetDirection(ctx, 10, PinDirectionOutput); err != nil {
		t.Fatalf("SetDirection failed: %v", err)
	}
	if regs.Register(mcp23017RegIODIRA+1) != 0xfd {
		t.Errorf("Expected IODIRB 0xfd, got 0x%02x", regs.Register(mcp23017RegIODIRA+1))
	}
	if dir, _ := dev.GetDirection(ctx, 10); dir != PinDirectionOutput {
		t.Errorf("Expected output, got %s", dir)
	}
	if err := dev.Set(ctx, 10, true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if regs.Register(mcp23017RegOLATA+1) != 0x02 {
		t.Errorf("Expected OLATB 0x02, got 0x%02x", regs.Register(mcp23017RegOLATA+1))
	}
	if regs.Register(mcp23017RegOLATA) != 0 {
		t.Error("Expected OLATA unchanged")
	}
	if err := dev.SetDirection(ctx, 17, PinDirectionOutput); !IsInvalidPin(err) {
		t.Errorf("Expected invalid pin, got %v", err)
	}
	if err := dev.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if regs.Register(mcp23017RegOLATA+1) != 0 || regs.Register(mcp23017RegIODIRA+1) != 0xff {
		t.Error("Expected outputs low & input after close")
	}
}

func TestMCP23008(t *testing.T) {
	ctx := context.Background()
	bus := bridge.NewMemoryBus(0x21)
	dev, err := newMcp23008(model.Device{ID: "io", Type: model.DeviceTypeMCP23008, Address: "0x21"}, bus, noActivity)
	if err != nil {
		t.Fatalf("newMcp23008 failed: %v", err)
	}
	if err := dev.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	regs, _ := bus.Device(0x21)
	if regs.Register(mcp23008RegIOCON) != mcpIOCONDefault {
		t.Error("Expected IOCON to be set")
	}
	dev.SetDirection(ctx, 3, PinDirectionOutput)
	dev.SetDirection(ctx, 4, PinDirectionOutput)
	dev.Set(ctx, 3, true)
	dev.Set(ctx, 4, true)
	dev.Set(ctx, 3, false)
	if regs.Register(mcp23008RegIODIR) != 0xf3 {
		t.Errorf("Expected IODIR 0xf3, got 0x%02x", regs.Register(mcp23008RegIODIR))
	}
	if regs.Register(mcp23008RegOLAT) != 0x08 {
		t.Errorf("Expected OLAT 0x08, got 0x%02x", regs.Register(mcp23008RegOLAT))
	}
}

func TestPCF8574(t *testing.T) {
	ctx := context.Background()
	bus := bridge.NewMemoryBus(0x22)
	dev, err := newPCF8574(model.Device{ID: "io", Type: model.DeviceTypePCF8574, Address: "0x22"}, bus, noActivity)
	if err != nil {
		t.Fatalf("newPCF8574 failed: %v", err)
	}
	if err := dev.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	regs, _ := bus.Device(0x22)
	if regs.Value() != 0xff {
		t.Errorf("Expected all high after configure, got 0x%02x", regs.Value())
	}
	dev.SetDirection(ctx, 1, PinDirectionOutput)
	dev.SetDirection(ctx, 2, PinDirectionOutput)
	if regs.Value() != 0xfc {
		t.Errorf("Expected 0xfc, got 0x%02x", regs.Value())
	}
	dev.Set(ctx, 2, true)
	if regs.Value() != 0xfe {
		t.Errorf("Expected 0xfe, got 0x%02x", regs.Value())
	}
	if err := dev.Set(ctx, 5, true); !IsInvalidDirection(err) {
		t.Errorf("Expected invalid direction, got %v", err)
	}
	regs.SetValue(0x10)
	if v, _ := dev.Get(ctx, 5); !v {
		t.Error("Expected pin 5 high")
	}
}
