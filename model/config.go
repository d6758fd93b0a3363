package model

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Configuration holds the hardware & motor configuration of a motor controller.
type Configuration struct {
	// List of devices attached to the controller
	Devices []Device `yaml:"devices,omitempty" json:"devices,omitempty"`
	// List of motors driven by the controller
	Motors []Motor `yaml:"motors,omitempty" json:"motors,omitempty"`
}

// Load reads & validates the configuration from the file with given path.
func Load(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, errors.Wrapf(err, "failed to read configuration '%s'", path)
	}
	c, err := Parse(data)
	if err != nil {
		return Configuration{}, errors.Wrapf(err, "in '%s'", path)
	}
	return c, nil
}

// Parse decodes & validates a YAML encoded configuration.
// Unknown fields are rejected.
func Parse(data []byte) (Configuration, error) {
	var c Configuration
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Configuration{}, errors.Wrapf(ValidationError, "invalid YAML: %s", err)
	}
	if err := c.Validate(); err != nil {
		return Configuration{}, maskAny(err)
	}
	return c, nil
}

// DeviceByID returns the device with given ID.
// Return false if not found.
func (c Configuration) DeviceByID(id string) (Device, bool) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// MotorByID returns the motor with given ID.
// Return false if not found.
func (c Configuration) MotorByID(id string) (Motor, bool) {
	for _, m := range c.Motors {
		if m.ID == id {
			return m, true
		}
	}
	return Motor{}, false
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c Configuration) Validate() error {
	deviceIDs := make(map[string]struct{})
	for _, d := range c.Devices {
		if err := d.Validate(); err != nil {
			return maskAny(err)
		}
		if _, found := deviceIDs[d.ID]; found {
			return errors.Wrapf(ValidationError, "Duplicate device ID '%s'", d.ID)
		}
		deviceIDs[d.ID] = struct{}{}
	}
	motorIDs := make(map[string]struct{})
	for _, m := range c.Motors {
		if err := m.Validate(); err != nil {
			return maskAny(err)
		}
		if _, found := motorIDs[m.ID]; found {
			return errors.Wrapf(ValidationError, "Duplicate motor ID '%s'", m.ID)
		}
		motorIDs[m.ID] = struct{}{}
		mode, _ := m.ParsedMode()
		if mode.UsesDigital() {
			d, found := c.DeviceByID(m.GPIODevice)
			if !found {
				return errors.Wrapf(ValidationError, "GPIO device '%s' of motor '%s' not found", m.GPIODevice, m.ID)
			}
			if !d.Type.IsDigital() {
				return errors.Wrapf(ValidationError, "Device '%s' of motor '%s' has no digital outputs", d.ID, m.ID)
			}
		}
		if mode.UsesPWM() {
			d, found := c.DeviceByID(m.PWMDevice)
			if !found {
				return errors.Wrapf(ValidationError, "PWM device '%s' of motor '%s' not found", m.PWMDevice, m.ID)
			}
			if !d.Type.IsPWM() {
				return errors.Wrapf(ValidationError, "Device '%s' of motor '%s' has no PWM outputs", d.ID, m.ID)
			}
		}
	}
	return nil
}
