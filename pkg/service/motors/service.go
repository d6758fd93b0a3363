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

package motors

import (
	"context"
	"sort"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/MotorControl/model"
	"github.com/binkynet/MotorControl/pkg/hal"
	"github.com/binkynet/MotorControl/pkg/motor"
	"github.com/binkynet/MotorControl/pkg/service/devices"
)

// Service contains the API that is exposed by the motor service.
type Service interface {
	// Configure creates a driver for every configured motor.
	// Motors that fail to be created are left out.
	Configure(ctx context.Context) error
	// IDs returns the sorted IDs of all created motors.
	IDs() []string
	// Status returns the status of the motor with given ID.
	Status(id string) (Status, error)
	// Statuses returns the status of all created motors, sorted by ID.
	Statuses() []Status
	// SetSpeed sets the speed (-100..100) of the motor with given ID.
	SetSpeed(ctx context.Context, id string, speed int) (Status, error)
	// Brake actively brakes the motor with given ID.
	Brake(ctx context.Context, id string) (Status, error)
	// Stop lets the motor with given ID coast to a stop.
	Stop(ctx context.Context, id string) (Status, error)
	// StopAll stops every motor.
	StopAll(ctx context.Context) error
	// Subscribe calls the given callback on every status change,
	// until the returned function is called.
	Subscribe(cb func(Status)) context.CancelFunc
}

// Status of a single motor.
type Status struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Speed     int        `json:"speed"`
	Braking   bool       `json:"braking"`
	Commands  uint64     `json:"commands"`
	LastError string     `json:"last_error,omitempty"`
	Pins      motor.Pins `json:"pins"`
	MaxDuty   uint32     `json:"max_duty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Dependencies of the motor service.
type Dependencies struct {
	Log zerolog.Logger
	// Configured devices providing pins
	Devices devices.Service
}

type service struct {
	Dependencies
	log    zerolog.Logger
	config model.Configuration
	ps     *pubsub.PubSub

	subscriberMutex  sync.Mutex
	subscribers      map[uint64]func(Status)
	lastSubscriberID uint64

	mutex       sync.RWMutex
	motors      map[string]*motorEntry
	pinPWMs     map[string]hal.PWM
	channelPWMs map[string]hal.PWM
	allocators  map[string]*hal.ChannelAllocator
}

type motorEntry struct {
	mutex     sync.Mutex
	id        string
	driver    *motor.Driver
	braking   bool
	commands  uint64
	lastError string
	updatedAt time.Time
}

// NewService instantiates a new motor Service for the motors
// in the given configuration.
func NewService(conf model.Configuration, deps Dependencies) (Service, error) {
	if deps.Devices == nil {
		return nil, errors.New("device service is required")
	}
	s := &service{
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "motor-service").Logger(),
		config:       conf,
		ps:           pubsub.New(),
		subscribers:  make(map[uint64]func(Status)),
		motors:       make(map[string]*motorEntry),
		pinPWMs:      make(map[string]hal.PWM),
		channelPWMs:  make(map[string]hal.PWM),
		allocators:   make(map[string]*hal.ChannelAllocator),
	}
	s.ps.Sub(s.notifySubscribers)
	return s, nil
}

// Configure creates a driver for every configured motor.
// Motors that fail to be created are left out.
func (s *service) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, mc := range s.config.Motors {
		log := s.log.With().Str("motor-id", mc.ID).Logger()
		drv, err := s.createDriver(ctx, mc, log)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create motor")
			ae.Add(errors.Wrapf(err, "motor '%s'", mc.ID))
			continue
		}
		s.mutex.Lock()
		s.motors[mc.ID] = &motorEntry{
			id:        mc.ID,
			driver:    drv,
			updatedAt: time.Now(),
		}
		s.mutex.Unlock()
		motorSpeedGauge.WithLabelValues(mc.ID).Set(0)
		log.Debug().Str("mode", drv.Mode().String()).Msg("created motor")
	}
	s.mutex.RLock()
	count := len(s.motors)
	s.mutex.RUnlock()
	motorsCreatedTotal.Set(float64(count))
	s.log.Info().Int("count", count).Msg("Created motors")
	return ae.AsError()
}

// createDriver builds the driver for a single motor.
func (s *service) createDriver(ctx context.Context, mc model.Motor, log zerolog.Logger) (*motor.Driver, error) {
	cfg, err := mc.DriverConfig()
	if err != nil {
		return nil, maskAny(err)
	}
	deps := motor.Dependencies{Log: log}
	if cfg.Mode.UsesDigital() {
		gpio, err := s.Devices.GPIOByID(mc.GPIODevice)
		if err != nil {
			return nil, maskAny(err)
		}
		deps.Digital = devices.DigitalOutputOf(mc.GPIODevice, gpio)
	}
	if cfg.Mode.UsesPWM() {
		pwm, err := s.pwmFor(mc.PWMDevice, mc.Backend())
		if err != nil {
			return nil, maskAny(err)
		}
		deps.PWM = pwm
	}
	drv, err := motor.New(ctx, cfg, deps)
	s.reportAllocated(mc.PWMDevice)
	if err != nil {
		return nil, maskAny(err)
	}
	return drv, nil
}

// pwmFor returns the PWM provider of the given device & backend.
// Providers are shared by all motors on the same device, so a channel
// backend hands out channels from a single allocator per device.
func (s *service) pwmFor(deviceID string, backend model.PWMBackend) (hal.PWM, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cache := s.pinPWMs
	if backend == model.PWMBackendChannel {
		cache = s.channelPWMs
	}
	if p, found := cache[deviceID]; found {
		return p, nil
	}
	pwm, err := s.Devices.PWMByID(deviceID)
	if err != nil {
		return nil, maskAny(err)
	}
	dev := devices.PinDeviceOf(deviceID, pwm)
	var p hal.PWM
	switch backend {
	case model.PWMBackendChannel:
		limit := pwm.PWMPinCount()
		if dc, found := s.config.DeviceByID(deviceID); found && dc.Channels > 0 {
			limit = dc.Channels
		}
		alloc := hal.NewChannelAllocator(limit)
		s.allocators[deviceID] = alloc
		p = hal.NewChannelPWM(dev, alloc)
	default:
		p = hal.NewPinPWM(dev)
	}
	cache[deviceID] = p
	return p, nil
}

// reportAllocated updates the channel gauge of the given device.
func (s *service) reportAllocated(deviceID string) {
	s.mutex.RLock()
	alloc, found := s.allocators[deviceID]
	s.mutex.RUnlock()
	if found {
		channelsAllocatedGauge.WithLabelValues(deviceID).Set(float64(alloc.Allocated()))
	}
}

// IDs returns the sorted IDs of all created motors.
func (s *service) IDs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	result := make([]string, 0, len(s.motors))
	for id := range s.motors {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Status returns the status of the motor with given ID.
func (s *service) Status(id string) (Status, error) {
	m, err := s.motorByID(id)
	if err != nil {
		return Status{}, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.status(), nil
}

// Statuses returns the status of all created motors, sorted by ID.
func (s *service) Statuses() []Status {
	ids := s.IDs()
	result := make([]Status, 0, len(ids))
	for _, id := range ids {
		if st, err := s.Status(id); err == nil {
			result = append(result, st)
		}
	}
	return result
}

// SetSpeed sets the speed (-100..100) of the motor with given ID.
func (s *service) SetSpeed(ctx context.Context, id string, speed int) (Status, error) {
	return s.execute(ctx, id, "speed", false, func(ctx context.Context, d *motor.Driver) error {
		return d.SetSpeed(ctx, speed)
	})
}

// Brake actively brakes the motor with given ID.
func (s *service) Brake(ctx context.Context, id string) (Status, error) {
	return s.execute(ctx, id, "brake", true, func(ctx context.Context, d *motor.Driver) error {
		return d.Brake(ctx)
	})
}

// Stop lets the motor with given ID coast to a stop.
func (s *service) Stop(ctx context.Context, id string) (Status, error) {
	return s.execute(ctx, id, "stop", false, func(ctx context.Context, d *motor.Driver) error {
		return d.Stop(ctx)
	})
}

// StopAll stops every motor.
func (s *service) StopAll(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, id := range s.IDs() {
		if _, err := s.Stop(ctx, id); err != nil {
			ae.Add(errors.Wrapf(err, "motor '%s'", id))
		}
	}
	return ae.AsError()
}

// Subscribe calls the given callback on every status change,
// until the returned function is called.
func (s *service) Subscribe(cb func(Status)) context.CancelFunc {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()
	s.lastSubscriberID++
	id := s.lastSubscriberID
	s.subscribers[id] = cb
	return func() {
		s.subscriberMutex.Lock()
		defer s.subscriberMutex.Unlock()
		delete(s.subscribers, id)
	}
}

// notifySubscribers passes a published status to all current subscribers.
func (s *service) notifySubscribers(st Status) {
	s.subscriberMutex.Lock()
	cbs := make([]func(Status), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		cbs = append(cbs, cb)
	}
	s.subscriberMutex.Unlock()
	for _, cb := range cbs {
		cb(st)
	}
}

// execute runs a single command on the motor with given ID,
// updates its status and publishes the result.
func (s *service) execute(ctx context.Context, id, command string, braking bool, fn func(context.Context, *motor.Driver) error) (Status, error) {
	m, err := s.motorByID(id)
	if err != nil {
		return Status{}, err
	}
	m.mutex.Lock()
	err = fn(ctx, m.driver)
	m.commands++
	m.braking = braking
	m.updatedAt = time.Now()
	if err != nil {
		m.lastError = err.Error()
	} else {
		m.lastError = ""
	}
	st := m.status()
	m.mutex.Unlock()

	motorCommandsTotal.WithLabelValues(id, command).Inc()
	motorSpeedGauge.WithLabelValues(id).Set(float64(st.Speed))
	if err != nil {
		motorCommandErrorsTotal.WithLabelValues(id).Inc()
		s.log.Warn().Err(err).
			Str("motor-id", id).
			Str("command", command).
			Msg("Motor command failed")
	} else {
		s.log.Debug().
			Str("motor-id", id).
			Str("command", command).
			Int("speed", st.Speed).
			Msg("Motor command executed")
	}
	s.ps.Pub(st)
	if err != nil {
		return st, maskAny(err)
	}
	return st, nil
}

// motorByID returns the motor with given ID or a NotFoundError.
func (s *service) motorByID(id string) (*motorEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	m, found := s.motors[id]
	if !found {
		return nil, errors.Wrapf(NotFoundError, "motor '%s'", id)
	}
	return m, nil
}

// status returns a snapshot of the motor.
// Caller must hold the motor mutex.
func (m *motorEntry) status() Status {
	return Status{
		ID:        m.id,
		Mode:      m.driver.Mode().String(),
		Speed:     m.driver.Speed(),
		Braking:   m.braking,
		Commands:  m.commands,
		LastError: m.lastError,
		Pins:      m.driver.Pins(),
		MaxDuty:   m.driver.MaxDuty(),
		UpdatedAt: m.updatedAt,
	}
}
