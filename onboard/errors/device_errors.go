package errors

import "fmt"

// ConfigFieldError reports a single rejected configuration value.
type ConfigFieldError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (err ConfigFieldError) Error() string {
	if len(err.Field) == 0 {
		err.Field = "UNKNOWN"
	}

	return fmt.Sprintf("invalid config %s=%v: %s", err.Field, err.Value, err.Reason)
}

type UnsupportedVersionError struct {
	Version int
}

func (err UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unable to work with config version %d", err.Version)
}

type DriverError struct {
	Driver string
	Action string
}

func (err DriverError) Error() string {
	if len(err.Action) == 0 {
		err.Action = "UNKNOWN"
	}

	return fmt.Sprintf("driver %s is unable to perform action %s", err.Driver, err.Action)
}

// DemandError is returned when a lift request carries a value that is not a finite
// number. Nothing is sent to the drive.
type DemandError struct {
	Request string
	Value   float64
}

func (err DemandError) Error() string {
	return fmt.Sprintf("%s demand %v is not a finite number", err.Request, err.Value)
}
