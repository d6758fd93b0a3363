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
	"sort"
	"sync"
	"sync/atomic"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
)

// Service contains the API that is exposed by the device service.
type Service interface {
	// DeviceByID returns the device with given ID.
	// Return false if not found or not configured.
	DeviceByID(id string) (Device, bool)
	// GPIOByID returns the configured GPIO device with given ID.
	GPIOByID(id string) (GPIO, error)
	// PWMByID returns the configured PWM device with given ID.
	PWMByID(id string) (PWM, error)
	// Configure is called once to put all devices in the desired state.
	Configure(ctx context.Context) error
	// Run the service until the given context is canceled.
	Run(ctx context.Context) error
	// Close brings all devices back to a safe state.
	Close(context.Context) error
	// Get a list of configured device IDs
	GetConfiguredDeviceIDs() []string
	// Get a list of unconfigured device IDs
	GetUnconfiguredDeviceIDs() []string
}

// Dependencies of the device service.
type Dependencies struct {
	Log zerolog.Logger
	// Bridge providing local GPIO & status leds
	Bridge bridge.API
	// I2C bus, required for I2C devices only
	Bus bridge.I2CBus
	// Host pin lookup for periph devices, defaults to HostPinLookup
	PinLookup PinLookup
}

type service struct {
	Dependencies
	mutex             sync.RWMutex
	log               zerolog.Logger
	devices           map[string]Device
	configuredDevices map[string]Device
	activeCount       uint32
}

// NewService instantiates a new Service and Device's for the given
// device configurations.
func NewService(configs []model.Device, deps Dependencies) (Service, error) {
	s := &service{
		Dependencies:      deps,
		log:               deps.Log.With().Str("component", "device-service").Logger(),
		devices:           make(map[string]Device),
		configuredDevices: make(map[string]Device),
	}
	for _, c := range configs {
		var dev Device
		var err error
		if c.Type.IsI2C() && deps.Bus == nil {
			return nil, errors.Errorf("device '%s' requires an I2C bus", c.ID)
		}
		switch c.Type {
		case model.DeviceTypeGPIO:
			if deps.Bridge == nil {
				return nil, errors.Errorf("device '%s' requires a bridge", c.ID)
			}
			dev, err = newLocalGPIO(c, deps.Bridge, s.onActive)
		case model.DeviceTypeMCP23008:
			dev, err = newMcp23008(c, deps.Bus, s.onActive)
		case model.DeviceTypeMCP23017:
			dev, err = newMcp23017(c, deps.Bus, s.onActive)
		case model.DeviceTypePCF8574:
			dev, err = newPCF8574(c, deps.Bus, s.onActive)
		case model.DeviceTypePCA9685:
			dev, err = newPCA9685(c, deps.Bus, s.onActive)
		case model.DeviceTypePeriph:
			dev, err = newPeriph(c, deps.PinLookup, s.onActive)
		case model.DeviceTypeSim:
			dev, err = newSim(c, s.onActive)
		default:
			return nil, errors.Wrapf(InvalidDeviceTypeError, "Unsupported device type '%s'", c.Type)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "device '%s'", c.ID)
		}
		s.devices[c.ID] = dev
	}
	devicesCreatedTotal.Set(float64(len(s.devices)))
	return s, nil
}

// DeviceByID returns the device with given ID.
// Return false if not found or not configured.
func (s *service) DeviceByID(id string) (Device, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	dev, ok := s.configuredDevices[id]
	return dev, ok
}

// GPIOByID returns the configured GPIO device with given ID.
func (s *service) GPIOByID(id string) (GPIO, error) {
	dev, found := s.DeviceByID(id)
	if !found {
		return nil, errors.Wrapf(NotConfiguredError, "device '%s'", id)
	}
	gpio, ok := dev.(GPIO)
	if !ok {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "device '%s' is not a GPIO device", id)
	}
	return gpio, nil
}

// PWMByID returns the configured PWM device with given ID.
func (s *service) PWMByID(id string) (PWM, error) {
	dev, found := s.DeviceByID(id)
	if !found {
		return nil, errors.Wrapf(NotConfiguredError, "device '%s'", id)
	}
	pwm, ok := dev.(PWM)
	if !ok {
		return nil, errors.Wrapf(InvalidDeviceTypeError, "device '%s' is not a PWM device", id)
	}
	return pwm, nil
}

// Configure is called once to put all devices in the desired state.
// Devices that fail to configure are left out.
func (s *service) Configure(ctx context.Context) error {
	log := s.log
	var ae aerr.AggregateError
	configuredDevices := make(map[string]Device)
	for id, d := range s.devices {
		log := log.With().Str("device-id", id).Logger()
		log.Debug().Msg("configuring device...")
		if err := d.Configure(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to configure device")
			ae.Add(errors.Wrapf(err, "device '%s'", id))
		} else {
			configuredDevices[id] = d
			log.Debug().Msg("configured device")
		}
	}
	s.mutex.Lock()
	s.configuredDevices = configuredDevices
	s.mutex.Unlock()
	log.Info().Int("count", len(configuredDevices)).Msg("Configured devices")
	devicesConfiguredTotal.Set(float64(len(configuredDevices)))
	return ae.AsError()
}

// Run the activity notifier until the given context is canceled.
func (s *service) Run(ctx context.Context) error {
	if s.Bridge == nil {
		<-ctx.Done()
		return nil
	}
	return s.runActiveNotify(ctx)
}

// Close brings all devices back to a safe state.
func (s *service) Close(ctx context.Context) error {
	var ae aerr.AggregateError
	for id, d := range s.devices {
		if err := d.Close(ctx); err != nil {
			ae.Add(errors.Wrapf(err, "device '%s'", id))
		}
	}
	return ae.AsError()
}

// onActive is called when a device change is activated.
func (s *service) onActive() {
	atomic.AddUint32(&s.activeCount, 1)
}

// runActiveNotify blinks the red led while devices are active
func (s *service) runActiveNotify(ctx context.Context) error {
	lastActiveCount := uint32(0)
	count := 0
	for {
		select {
		case <-ctx.Done():
			// Context canceled
			return nil
		case <-time.After(time.Second / 10):
			newActiveCount := atomic.LoadUint32(&s.activeCount)
			if newActiveCount != lastActiveCount {
				lastActiveCount = newActiveCount
				s.Bridge.BlinkRedLED(time.Second / 10)
				count = 0
			} else if count < 20 {
				count++
			} else {
				count = 0
				s.Bridge.SetRedLED(false)
			}
		}
	}
}

// Get a list of configured device IDs
func (s *service) GetConfiguredDeviceIDs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	result := make([]string, 0, len(s.configuredDevices))
	for k := range s.configuredDevices {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Get a list of unconfigured device IDs
func (s *service) GetUnconfiguredDeviceIDs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	result := make([]string, 0, len(s.devices))
	for id := range s.devices {
		if _, found := s.configuredDevices[id]; !found {
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}
