package model

import (
	"github.com/pkg/errors"
)

// DeviceType identifies a type of devices (typically chip name)
type DeviceType string

const (
	DeviceTypeGPIO     DeviceType = "gpio"
	DeviceTypeMCP23008 DeviceType = "mcp23008"
	DeviceTypeMCP23017 DeviceType = "mcp23017"
	DeviceTypePCF8574  DeviceType = "pcf8574"
	DeviceTypePCA9685  DeviceType = "pca9685"
	DeviceTypePeriph   DeviceType = "periph"
	DeviceTypeSim      DeviceType = "sim"
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t DeviceType) Validate() error {
	switch t {
	case DeviceTypeGPIO, DeviceTypeMCP23008, DeviceTypeMCP23017, DeviceTypePCF8574,
		DeviceTypePCA9685, DeviceTypePeriph, DeviceTypeSim:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid device type '%s'", string(t))
	}
}

// IsDigital returns true when devices of this type provide digital outputs.
func (t DeviceType) IsDigital() bool {
	return t != DeviceTypePCA9685
}

// IsPWM returns true when devices of this type provide PWM outputs.
func (t DeviceType) IsPWM() bool {
	switch t {
	case DeviceTypePCA9685, DeviceTypePeriph, DeviceTypeSim:
		return true
	default:
		return false
	}
}

// IsI2C returns true when devices of this type are connected through the I2C bus.
func (t DeviceType) IsI2C() bool {
	switch t {
	case DeviceTypeMCP23008, DeviceTypeMCP23017, DeviceTypePCF8574, DeviceTypePCA9685:
		return true
	default:
		return false
	}
}

// Device holds the configuration of a single hardware device.
type Device struct {
	// Unique identifier of the device
	ID   string     `yaml:"id" json:"id"`
	Type DeviceType `yaml:"type" json:"type"`
	// I2C address (0x.. or decimal), only for I2C devices
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	// PWM frequency of the entire device in Hz (pca9685 only)
	Frequency uint32 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	// Number of PWM channels handed out to motors with a channel backend.
	// 0 means the number of PWM outputs of the device.
	Channels int `yaml:"channels,omitempty" json:"channels,omitempty"`
	// Pin index (1...) to host pin name (periph only)
	Pins map[int]string `yaml:"pins,omitempty" json:"pins,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.Wrap(ValidationError, "ID is empty")
	}
	if err := d.Type.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in Type of '%s': %s", d.ID, err.Error())
	}
	if d.Type.IsI2C() && d.Address == "" {
		return errors.Wrapf(ValidationError, "Address of '%s' is empty", d.ID)
	}
	if d.Channels < 0 {
		return errors.Wrapf(ValidationError, "Channels of '%s' must not be negative", d.ID)
	}
	if d.Type == DeviceTypePeriph {
		if len(d.Pins) == 0 {
			return errors.Wrapf(ValidationError, "Pins of '%s' are empty", d.ID)
		}
		for index, name := range d.Pins {
			if index < 1 {
				return errors.Wrapf(ValidationError, "Pin index %d of '%s' must be 1 or higher", index, d.ID)
			}
			if name == "" {
				return errors.Wrapf(ValidationError, "Pin %d of '%s' has no name", index, d.ID)
			}
		}
	}
	return nil
}
