package model

import (
	"github.com/pkg/errors"

	"github.com/binkynet/MotorControl/pkg/hal"
	"github.com/binkynet/MotorControl/pkg/motor"
)

// PWMBackend selects how a motor obtains its PWM handles.
type PWMBackend string

const (
	// PWMBackendPin uses the pin number as handle.
	PWMBackendPin PWMBackend = "pin"
	// PWMBackendChannel hands out channels from an allocator owned per PWM device.
	PWMBackendChannel PWMBackend = "channel"
)

// Validate the given backend, returning nil on ok,
// or an error upon validation issues.
func (b PWMBackend) Validate() error {
	switch b {
	case "", PWMBackendPin, PWMBackendChannel:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid pwm backend '%s'", string(b))
	}
}

// Motor holds the configuration of a single motor.
type Motor struct {
	// Unique identifier of the motor
	ID string `yaml:"id" json:"id"`
	// Wiring mode (dir-pwm|pwm-pwm|dir-dir-pwm|dir-dir)
	Mode string `yaml:"mode" json:"mode"`
	// Device providing the direction pins
	GPIODevice string `yaml:"gpio_device,omitempty" json:"gpio_device,omitempty"`
	// Device providing the PWM pins
	PWMDevice string `yaml:"pwm_device,omitempty" json:"pwm_device,omitempty"`
	// Pin indexes (1...) on the devices
	Pin1   int  `yaml:"pin1" json:"pin1"`
	Pin2   int  `yaml:"pin2" json:"pin2"`
	PWMPin *int `yaml:"pwm_pin,omitempty" json:"pwm_pin,omitempty"`
	// PWM frequency in Hz
	Frequency uint32 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	// PWM resolution in bits
	Resolution uint8 `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	// Brake polarity of a dir-pwm motor (low|high)
	Brake      string     `yaml:"brake,omitempty" json:"brake,omitempty"`
	PWMBackend PWMBackend `yaml:"pwm_backend,omitempty" json:"pwm_backend,omitempty"`
}

// ParsedMode returns the parsed Mode field.
func (m Motor) ParsedMode() (motor.Mode, error) {
	return motor.ParseMode(m.Mode)
}

// Backend returns the PWM backend, defaulting to PWMBackendPin.
func (m Motor) Backend() PWMBackend {
	if m.PWMBackend == "" {
		return PWMBackendPin
	}
	return m.PWMBackend
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (m Motor) Validate() error {
	if m.ID == "" {
		return errors.Wrap(ValidationError, "ID is empty")
	}
	mode, err := m.ParsedMode()
	if err != nil {
		return errors.Wrapf(ValidationError, "Error in Mode of '%s': %s", m.ID, err.Error())
	}
	if m.Pin1 < 1 || m.Pin2 < 1 {
		return errors.Wrapf(ValidationError, "Pins of '%s' must be 1 or higher", m.ID)
	}
	if m.Pin1 == m.Pin2 {
		return errors.Wrapf(ValidationError, "Pin1 & Pin2 of '%s' are the same", m.ID)
	}
	if mode.NeedsPWMPin() {
		if m.PWMPin == nil {
			return errors.Wrapf(ValidationError, "Mode '%s' of '%s' requires a pwm_pin", mode, m.ID)
		}
		if *m.PWMPin < 1 {
			return errors.Wrapf(ValidationError, "PWM pin of '%s' must be 1 or higher", m.ID)
		}
		if m.GPIODevice == m.PWMDevice && (*m.PWMPin == m.Pin1 || *m.PWMPin == m.Pin2) {
			return errors.Wrapf(ValidationError, "PWM pin of '%s' collides with a direction pin", m.ID)
		}
	} else if m.PWMPin != nil {
		return errors.Wrapf(ValidationError, "Mode '%s' of '%s' does not use a pwm_pin", mode, m.ID)
	}
	if mode.UsesDigital() && m.GPIODevice == "" {
		return errors.Wrapf(ValidationError, "GPIO device of '%s' is empty", m.ID)
	}
	if mode.UsesPWM() && m.PWMDevice == "" {
		return errors.Wrapf(ValidationError, "PWM device of '%s' is empty", m.ID)
	}
	if m.Resolution > hal.MaxResolution {
		return errors.Wrapf(ValidationError, "Resolution of '%s' must be at most %d bits", m.ID, hal.MaxResolution)
	}
	if _, err := motor.ParseBrakePolarity(m.Brake); err != nil {
		return errors.Wrapf(ValidationError, "Error in Brake of '%s': %s", m.ID, err.Error())
	}
	if err := m.PWMBackend.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in PWMBackend of '%s': %s", m.ID, err.Error())
	}
	return nil
}

// DriverConfig converts the motor configuration into a driver configuration.
func (m Motor) DriverConfig() (motor.Config, error) {
	mode, err := m.ParsedMode()
	if err != nil {
		return motor.Config{}, maskAny(err)
	}
	brake, err := motor.ParseBrakePolarity(m.Brake)
	if err != nil {
		return motor.Config{}, maskAny(err)
	}
	cfg := motor.Config{
		Mode:          mode,
		Pin1:          hal.Pin(m.Pin1),
		Pin2:          hal.Pin(m.Pin2),
		Frequency:     hal.Frequency(m.Frequency),
		Resolution:    m.Resolution,
		BrakePolarity: brake,
	}
	if m.PWMPin != nil {
		pwmPin := hal.Pin(*m.PWMPin)
		cfg.PWMPin = &pwmPin
	}
	return cfg, nil
}
