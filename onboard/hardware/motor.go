package hardware

// Drive is a single logical motor output. Follower controllers are wired to the
// leader by the backend, callers only ever see one drive.
type Drive interface {
	// SetPercentOutput commands open loop output, clamped to [-1, 1].
	SetPercentOutput(value float64) error
	// SetPosition commands a closed loop position target in raw encoder ticks.
	SetPosition(ticks float64) error
	// Get returns the last demand passed to the drive.
	Get() float64
}

// Encoder reports raw ticks from one side of the lift.
type Encoder interface {
	Position() (ticks float64, err error)
	// ResetPosition redefines the current position as ticks.
	ResetPosition(ticks float64) error
}

// DigitalInput is the electrical level of a switch input.
type DigitalInput interface {
	Get() bool
}

type LimitSwitch interface {
	Contacted() bool
}

// ActiveLow treats a pulled up switch that shorts to ground as contacted.
type ActiveLow struct {
	Input DigitalInput
}

func (s ActiveLow) Contacted() bool {
	return !s.Input.Get()
}
