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

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/hal"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

func newTestSim(t *testing.T) *Sim {
	t.Helper()
	sim, err := newSim(model.Device{ID: "sim", Type: model.DeviceTypeSim}, noActivity)
	if err != nil {
		t.Fatalf("newSim failed: %v", err)
	}
	if err := sim.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return sim
}

func TestDigitalOutputOf(t *testing.T) {
	ctx := context.Background()
	sim := newTestSim(t)
	out := DigitalOutputOf("sim", sim)
	if err := out.WriteDigital(ctx, 3, true); !IsInvalidDirection(err) {
		t.Errorf("Expected invalid direction before configure, got %v", err)
	}
	if err := out.ConfigureOutput(ctx, 3); err != nil {
		t.Fatalf("ConfigureOutput failed: %v", err)
	}
	if err := out.WriteDigital(ctx, 3, true); err != nil {
		t.Fatalf("WriteDigital failed: %v", err)
	}
	if !sim.Level(3) {
		t.Error("Expected pin 3 high")
	}
}

func TestPinDeviceOfScalesDuty(t *testing.T) {
	ctx := context.Background()
	sim := newTestSim(t)
	dev := PinDeviceOf("sim", sim)
	if err := dev.AttachPin(ctx, 5, 2000, 8); err != nil {
		t.Fatalf("AttachPin failed: %v", err)
	}
	if sim.Frequency(5) != 2000 {
		t.Errorf("Expected frequency 2000, got %d", sim.Frequency(5))
	}
	tests := map[uint32]uint32{
		0:   0,
		128: 32896,
		255: 65535,
	}
	for duty, expected := range tests {
		if err := dev.WritePin(ctx, 5, duty, 8); err != nil {
			t.Fatalf("WritePin failed: %v", err)
		}
		if got := sim.Value(5); got != expected {
			t.Errorf("WritePin(%d): expected %d, got %d", duty, expected, got)
		}
	}
	if err := dev.AttachPin(ctx, 17, 2000, 8); !IsInvalidPin(err) {
		t.Errorf("Expected invalid pin, got %v", err)
	}
}

func TestPinDeviceOfPCA9685(t *testing.T) {
	ctx := context.Background()
	bus := bridge.NewMemoryBus(0x40)
	pca, _ := newPCA9685(model.Device{ID: "pwm", Type: model.DeviceTypePCA9685, Address: "0x40"}, bus, noActivity)
	pca.Configure(ctx)
	dev := PinDeviceOf("pwm", pca)
	if err := dev.AttachPin(ctx, 1, hal.DefaultFrequency, 8); err != nil {
		t.Fatalf("AttachPin failed: %v", err)
	}
	if err := dev.WritePin(ctx, 1, 128, 8); err != nil {
		t.Fatalf("WritePin failed: %v", err)
	}
	if _, off, enabled, _ := pca.GetPWM(ctx, 1); off != 2056 || !enabled {
		t.Errorf("Expected 2056 enabled, got %d %v", off, enabled)
	}
	dev.WritePin(ctx, 1, 0, 8)
	if _, _, enabled, _ := pca.GetPWM(ctx, 1); enabled {
		t.Error("Expected output disabled at duty 0")
	}
}

func TestPeriph(t *testing.T) {
	ctx := context.Background()
	pins := map[string]*gpiotest.Pin{
		"GPIO12": {N: "GPIO12", Num: 12},
		"GPIO13": {N: "GPIO13", Num: 13},
	}
	lookup := func(name string) (gpio.PinIO, error) {
		if p, found := pins[name]; found {
			return p, nil
		}
		return nil, InvalidPinError
	}
	cfg := model.Device{ID: "host", Type: model.DeviceTypePeriph, Pins: map[int]string{1: "GPIO12", 2: "GPIO13"}}
	dev, err := newPeriph(cfg, lookup, noActivity)
	if err != nil {
		t.Fatalf("newPeriph failed: %v", err)
	}
	if err := dev.Configure(ctx); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if dev.PinCount() != 2 {
		t.Errorf("Expected 2 pins, got %d", dev.PinCount())
	}

	out := DigitalOutputOf("host", dev)
	if err := out.ConfigureOutput(ctx, 1); err != nil {
		t.Fatalf("ConfigureOutput failed: %v", err)
	}
	if err := out.WriteDigital(ctx, 1, true); err != nil {
		t.Fatalf("WriteDigital failed: %v", err)
	}
	if pins["GPIO12"].L != gpio.High {
		t.Error("Expected GPIO12 high")
	}

	pwm := PinDeviceOf("host", dev)
	if err := pwm.AttachPin(ctx, 2, 20000, 8); err != nil {
		t.Fatalf("AttachPin failed: %v", err)
	}
	if err := pwm.WritePin(ctx, 2, 255, 8); err != nil {
		t.Fatalf("WritePin failed: %v", err)
	}
	if pins["GPIO13"].D != gpio.DutyMax {
		t.Errorf("Expected full duty, got %d", pins["GPIO13"].D)
	}
	if pins["GPIO13"].F != 20*physic.KiloHertz {
		t.Errorf("Expected 20kHz, got %s", pins["GPIO13"].F)
	}

	if err := dev.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if pins["GPIO12"].L != gpio.Low || pins["GPIO13"].L != gpio.Low {
		t.Error("Expected all pins low after close")
	}
	if err := out.WriteDigital(ctx, 3, true); !IsInvalidPin(err) {
		t.Errorf("Expected invalid pin, got %v", err)
	}
}

func TestPeriphUnknownPin(t *testing.T) {
	lookup := func(name string) (gpio.PinIO, error) {
		return nil, InvalidPinError
	}
	cfg := model.Device{ID: "host", Type: model.DeviceTypePeriph, Pins: map[int]string{1: "GPIO99"}}
	dev, _ := newPeriph(cfg, lookup, noActivity)
	if err := dev.Configure(context.Background()); err == nil {
		t.Error("Expected configure error")
	}
	if err := dev.Set(context.Background(), 1, true); !IsNotConfigured(err) {
		t.Errorf("Expected not configured error, got %v", err)
	}
}
