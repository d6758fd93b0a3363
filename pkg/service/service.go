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

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/service/bridge"
	"github.com/binkynet/MotorControl/pkg/service/devices"
	"github.com/binkynet/MotorControl/pkg/service/motors"
)

// Service runs the motor controller.
type Service interface {
	// Run the controller until the given context is cancelled.
	Run(ctx context.Context) error
	// Motors returns the motor service.
	Motors() motors.Service
	// Devices returns the device service.
	Devices() devices.Service
	// Ready returns true once all devices & motors are configured.
	Ready() bool
	// StartedAt returns the time the service was created.
	StartedAt() time.Time
}

// Config of the controller.
type Config struct {
	ProgramVersion string
	// Hardware & motor configuration
	Configuration model.Configuration
	// Speeds applied once after configuration, per motor ID
	InitialSpeeds map[string]int
}

// Dependencies of the controller.
type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
}

type service struct {
	Config
	Dependencies

	mutex     sync.Mutex
	ready     bool
	startedAt time.Time
	devices   devices.Service
	motors    motors.Service
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	if deps.Bridge == nil {
		return nil, errors.New("bridge is required")
	}
	// Open the I2C bus only when needed
	var bus bridge.I2CBus
	for _, d := range conf.Configuration.Devices {
		if d.Type.IsI2C() {
			var err error
			if bus, err = deps.Bridge.I2CBus(); err != nil {
				return nil, errors.Wrap(err, "Failed to open I2C bus")
			}
			break
		}
	}
	devService, err := devices.NewService(conf.Configuration.Devices, devices.Dependencies{
		Log:    deps.Logger,
		Bridge: deps.Bridge,
		Bus:    bus,
	})
	if err != nil {
		return nil, errors.Wrap(err, "devices.NewService failed")
	}
	motorService, err := motors.NewService(conf.Configuration, motors.Dependencies{
		Log:     deps.Logger,
		Devices: devService,
	})
	if err != nil {
		return nil, errors.Wrap(err, "motors.NewService failed")
	}
	return &service{
		Config:       conf,
		Dependencies: deps,
		startedAt:    time.Now(),
		devices:      devService,
		motors:       motorService,
	}, nil
}

// Motors returns the motor service.
func (s *service) Motors() motors.Service { return s.motors }

// Devices returns the device service.
func (s *service) Devices() devices.Service { return s.devices }

// StartedAt returns the time the service was created.
func (s *service) StartedAt() time.Time { return s.startedAt }

// Ready returns true once all devices & motors are configured.
func (s *service) Ready() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.ready
}

// Run configures all devices & motors, applies the initial speeds
// and then keeps the devices running until the given context is cancelled.
// On exit all motors are stopped and all devices are closed.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer s.Bridge.Close()

	s.Bridge.BlinkGreenLED(time.Millisecond * 250)
	s.Bridge.SetRedLED(false)

	// Configure devices
	log.Debug().Msg("configure devices")
	if err := s.devices.Configure(ctx); err != nil {
		configureErrorsTotal.WithLabelValues("devices").Inc()
		log.Error().Err(err).Msg("Not all devices are configured")
	}
	defer func() {
		log.Debug().Msg("closing devices service")
		if err := s.devices.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to close devices")
		}
	}()
	// Stop fast if context canceled
	if ctx.Err() != nil {
		return nil
	}

	// Create motors
	log.Debug().Msg("configure motors")
	if err := s.motors.Configure(ctx); err != nil {
		configureErrorsTotal.WithLabelValues("motors").Inc()
		log.Error().Err(err).Msg("Not all motors are configured")
	}
	defer func() {
		log.Debug().Msg("stopping all motors")
		if err := s.motors.StopAll(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to stop all motors")
		}
	}()
	s.applyInitialSpeeds(ctx)

	s.mutex.Lock()
	s.ready = true
	s.mutex.Unlock()
	readyGauge.Set(1)
	defer func() {
		s.mutex.Lock()
		s.ready = false
		s.mutex.Unlock()
		readyGauge.Set(0)
	}()
	s.Bridge.SetGreenLED(true)
	defer s.Bridge.SetGreenLED(false)
	log.Info().
		Int("devices", len(s.devices.GetConfiguredDeviceIDs())).
		Int("motors", len(s.motors.IDs())).
		Msg("Motor controller ready")

	// Run devices
	g, lctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Debug().Msg("run devices")
		if err := s.devices.Run(lctx); err != nil {
			log.Error().Err(err).Msg("Run devices failed")
			return errors.Wrap(err, "failed to run devices")
		}
		log.Debug().Msg("run devices ended")
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "Wait failed")
	}
	return nil
}

// applyInitialSpeeds sets the configured initial speed of motors.
func (s *service) applyInitialSpeeds(ctx context.Context) {
	ids := make([]string, 0, len(s.InitialSpeeds))
	for id := range s.InitialSpeeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		speed := s.InitialSpeeds[id]
		if _, err := s.motors.SetSpeed(ctx, id, speed); err != nil {
			s.Logger.Warn().Err(err).
				Str("motor-id", id).
				Int("speed", speed).
				Msg("Failed to apply initial speed")
		} else {
			initialSpeedsTotal.Inc()
		}
	}
}
