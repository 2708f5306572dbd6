package onboard

import (
	"fmt"
	"math"
)

// Direction is the sign given to every speed request.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

// Apply discards the sign of speed and gives it this direction.
func (d Direction) Apply(speed float64) float64 {
	return math.Abs(speed) * float64(d)
}

func (d Direction) Invert() Direction {
	return -d
}

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up":
		*d = Up
	case "down":
		*d = Down
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Limits is a sample of both limit switches.
type Limits struct {
	Top, Bottom bool
}

// RampConfig shapes speed near the ends of travel. All distances share the unit of
// TotalTravel.
type RampConfig struct {
	MinSpeed        float64 `yaml:"min_speed" toml:"min_speed"`
	HeightThreshold float64 `yaml:"height_threshold" toml:"height_threshold"`
	Slope           float64 `yaml:"slope" toml:"slope"`
	TotalTravel     float64 `yaml:"total_travel" toml:"total_travel"`
}

// Ramp returns the speed to use at height. Within HeightThreshold of either end the
// speed falls linearly towards MinSpeed; the ramp can only ever slow a request down.
// Below zero retraction is limited to MinSpeed.
func (c RampConfig) Ramp(height, speed float64) float64 {
	switch {
	case height < 0:
		return math.Max(-c.MinSpeed, speed)

	case speed < 0:
		if height < c.HeightThreshold {
			ramped := -(c.Slope*height + c.MinSpeed)
			return math.Max(ramped, speed)
		}

	case speed > 0:
		if height > c.TotalTravel-c.HeightThreshold {
			ramped := c.Slope*(c.TotalTravel-height) + c.MinSpeed
			return math.Min(ramped, speed)
		}
	}

	return speed
}

// Bound is the limit bookkeeping for one output. Driving into a contacted switch
// reverses the direction used for later requests; speed itself passes through, so
// the cycle that flips still sends it.
func Bound(dir Direction, limits Limits, speed float64) (Direction, float64) {
	if (limits.Top && speed > 0) || (limits.Bottom && speed < 0) {
		return dir.Invert(), speed
	}
	return dir, speed
}
