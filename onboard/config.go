package onboard

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	lifterrors "github.com/CodedInternet/golift/onboard/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

const (
	DriverCAN    = "can"
	DriverSerial = "serial"
	DriverSim    = "sim"
)

type LiftConfig struct {
	Version       int            `yaml:"version" toml:"version"`
	Ramp          RampConfig     `yaml:"ramp" toml:"ramp"`
	EncoderScale  float64        `yaml:"encoder_scale" toml:"encoder_scale"` // distance per encoder tick
	StopOnReverse bool           `yaml:"stop_on_reverse" toml:"stop_on_reverse"`
	TickRate      int            `yaml:"tick_rate" toml:"tick_rate"` // control cycles per second
	Hardware      HardwareConfig `yaml:"hardware" toml:"hardware"`
}

type HardwareConfig struct {
	Driver       string       `yaml:"driver" toml:"driver"`
	CAN          CANConfig    `yaml:"can" toml:"can"`
	Serial       SerialConfig `yaml:"serial" toml:"serial"`
	Sim          SimConfig    `yaml:"sim" toml:"sim"`
	TopSwitch    int          `yaml:"top_switch" toml:"top_switch"` // host gpio numbers for the can driver
	BottomSwitch int          `yaml:"bottom_switch" toml:"bottom_switch"`
	Brake        bool         `yaml:"brake" toml:"brake"`
	OpenLoopRamp float64      `yaml:"open_loop_ramp" toml:"open_loop_ramp"` // seconds
	CurrentLimit uint8        `yaml:"current_limit" toml:"current_limit"`   // amps
	LimitCurrent bool         `yaml:"limit_current" toml:"limit_current"`
}

type CANConfig struct {
	Bus          string   `yaml:"bus" toml:"bus"`
	Leader       uint32   `yaml:"leader" toml:"leader"`
	Followers    []uint32 `yaml:"followers,flow" toml:"followers"`
	LeftEncoder  uint32   `yaml:"left_encoder" toml:"left_encoder"`
	RightEncoder uint32   `yaml:"right_encoder" toml:"right_encoder"`
}

type SerialConfig struct {
	Port         string `yaml:"port" toml:"port"`
	Baud         int    `yaml:"baud" toml:"baud"`
	Drive        int    `yaml:"drive" toml:"drive"`
	LeftEncoder  int    `yaml:"left_encoder" toml:"left_encoder"`
	RightEncoder int    `yaml:"right_encoder" toml:"right_encoder"`
	TopPin       int    `yaml:"top_pin" toml:"top_pin"`
	BottomPin    int    `yaml:"bottom_pin" toml:"bottom_pin"`
}

type SimConfig struct {
	FullSpeed   float64 `yaml:"full_speed" toml:"full_speed"`     // distance per second at full output
	StartHeight float64 `yaml:"start_height" toml:"start_height"` // true height at power on, encoders read zero
	RightDrift  float64 `yaml:"right_drift" toml:"right_drift"`   // fractional over-count of the right encoder
}

func DefaultLiftConfig() LiftConfig {
	return LiftConfig{
		Version: 1,
		Ramp: RampConfig{
			MinSpeed:        0.1,
			HeightThreshold: 20,
			Slope:           0.02,
			TotalTravel:     100,
		},
		EncoderScale: 0.01,
		TickRate:     50,
		Hardware: HardwareConfig{
			Driver:       DriverSim,
			Brake:        true,
			OpenLoopRamp: 0.2,
			CurrentLimit: 23,
			Serial: SerialConfig{
				Baud: 115200,
			},
			Sim: SimConfig{
				FullSpeed: 50,
			},
		},
	}
}

// LoadConfig reads a YAML or TOML lift file over the defaults and validates it.
func LoadConfig(filename string) (config LiftConfig, err error) {
	config = DefaultLiftConfig()

	raw, err := os.ReadFile(filename)
	if err != nil {
		return
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		_, err = toml.Decode(string(raw), &config)
	default:
		err = yaml.UnmarshalStrict(raw, &config)
	}
	if err != nil {
		return
	}

	err = config.Validate()
	return
}

func fieldError(field string, value interface{}, reason string) error {
	return lifterrors.ConfigFieldError{Field: field, Value: value, Reason: reason}
}

// Validate reports every problem with the config at once. Ramp values that fail here
// would make the ramp non-monotonic or flip its sign.
func (c LiftConfig) Validate() (err error) {
	if c.Version != 1 {
		err = multierr.Append(err, lifterrors.UnsupportedVersionError{Version: c.Version})
	}

	r := c.Ramp
	if r.TotalTravel <= 0 {
		err = multierr.Append(err, fieldError("ramp.total_travel", r.TotalTravel, "must be positive"))
	}
	if r.HeightThreshold < 0 {
		err = multierr.Append(err, fieldError("ramp.height_threshold", r.HeightThreshold, "must not be negative"))
	} else if r.HeightThreshold > r.TotalTravel/2 {
		err = multierr.Append(err, fieldError("ramp.height_threshold", r.HeightThreshold, "must not exceed half of total_travel"))
	}
	if r.Slope < 0 {
		err = multierr.Append(err, fieldError("ramp.slope", r.Slope, "must not be negative"))
	}
	if r.MinSpeed < 0 || r.MinSpeed > 1 {
		err = multierr.Append(err, fieldError("ramp.min_speed", r.MinSpeed, "must be within [0, 1]"))
	}

	if c.EncoderScale == 0 {
		err = multierr.Append(err, fieldError("encoder_scale", c.EncoderScale, "must not be zero"))
	}
	if c.TickRate <= 0 {
		err = multierr.Append(err, fieldError("tick_rate", c.TickRate, "must be positive"))
	}

	switch c.Hardware.Driver {
	case DriverSim:
		if c.Hardware.Sim.FullSpeed <= 0 {
			err = multierr.Append(err, fieldError("hardware.sim.full_speed", c.Hardware.Sim.FullSpeed, "must be positive"))
		}
	case DriverCAN:
		if c.Hardware.CAN.Bus == "" {
			err = multierr.Append(err, fieldError("hardware.can.bus", c.Hardware.CAN.Bus, "is required"))
		}
	case DriverSerial:
		if c.Hardware.Serial.Port == "" {
			err = multierr.Append(err, fieldError("hardware.serial.port", c.Hardware.Serial.Port, "is required"))
		}
	default:
		err = multierr.Append(err, fieldError("hardware.driver", c.Hardware.Driver, "must be one of can, serial, sim"))
	}

	return
}
