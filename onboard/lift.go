package onboard

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/CodedInternet/golift/logger"
	lifterrors "github.com/CodedInternet/golift/onboard/errors"
	"github.com/CodedInternet/golift/onboard/hardware"
	"github.com/petermattis/goid"
)

var (
	ErrNotOwner = errors.New("lift moved from a goroutine that does not own it")
)

// LiftHardware is everything the lift reads from or writes to.
type LiftHardware struct {
	Drive  hardware.Drive
	Left   hardware.Encoder
	Right  hardware.Encoder
	Top    hardware.LimitSwitch
	Bottom hardware.LimitSwitch
}

// Lift is the motion limiter for a lift bounded by two limit switches.
//
// A Lift is not safe for concurrent use. Once bound to a goroutine (see Controller)
// any call that moves the lift or homes it from another goroutine panics.
type Lift struct {
	config    LiftConfig
	hw        LiftHardware
	homing    *HomingMonitor
	direction Direction
	owner     int64
}

func NewLift(config LiftConfig, hw LiftHardware) (l *Lift, err error) {
	if err = config.Validate(); err != nil {
		return
	}
	if hw.Drive == nil || hw.Left == nil || hw.Right == nil || hw.Top == nil || hw.Bottom == nil {
		return nil, errors.New("lift hardware is incomplete")
	}

	l = &Lift{
		config:    config,
		hw:        hw,
		direction: Up,
		homing: &HomingMonitor{
			Bottom:   hw.Bottom,
			Encoders: []hardware.Encoder{hw.Left, hw.Right},
		},
	}
	return
}

// bind makes the calling goroutine the only one allowed to move the lift.
func (l *Lift) bind() {
	atomic.StoreInt64(&l.owner, goid.Get())
}

func (l *Lift) unbind() {
	atomic.StoreInt64(&l.owner, 0)
}

func (l *Lift) checkOwner() {
	owner := atomic.LoadInt64(&l.owner)
	if owner != 0 && owner != goid.Get() {
		panic(ErrNotOwner)
	}
}

func checkDemand(request string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return lifterrors.DemandError{Request: request, Value: value}
	}
	return nil
}

// Tick runs the homing monitor, call it once per control cycle.
func (l *Lift) Tick() error {
	l.checkOwner()
	return l.homing.Tick()
}

// MoveDangerous drives at |speed| in the current direction with no ramping.
func (l *Lift) MoveDangerous(speed float64) error {
	l.checkOwner()
	if err := checkDemand("dangerous", speed); err != nil {
		return err
	}
	return l.move(l.direction.Apply(speed))
}

// MoveRamp drives at |speed| in the current direction, slowing down near either end.
func (l *Lift) MoveRamp(speed float64) error {
	l.checkOwner()
	if err := checkDemand("ramp", speed); err != nil {
		return err
	}

	desired := l.direction.Apply(speed)

	height, err := l.Height()
	if err != nil {
		// without a height the ramp can't be trusted, leave the lift stopped
		if stopErr := l.hw.Drive.SetPercentOutput(0); stopErr != nil {
			logger.Errorf("stopping lift after height error: %v", stopErr)
		}
		return err
	}

	actual := l.config.Ramp.Ramp(height, desired)
	logger.Debugf("given: %.3f, actual: %.3f, height: %.2f", desired, actual, height)

	return l.move(actual)
}

func (l *Lift) move(speed float64) error {
	limits := Limits{Top: l.AtTop(), Bottom: l.AtBottom()}

	dir, out := Bound(l.direction, limits, speed)
	if dir != l.direction {
		logger.Infof("lift limit reached, direction %s -> %s", l.direction, dir)
		if l.config.StopOnReverse {
			out = 0
		}
		l.direction = dir
	}

	if err := l.hw.Drive.SetPercentOutput(out); err != nil {
		return fmt.Errorf("lift output %.3f: %w", out, err)
	}
	return nil
}

// SetHeight sends the lift to height under closed loop control, bypassing the ramp.
func (l *Lift) SetHeight(height float64) error {
	l.checkOwner()
	if err := checkDemand("height", height); err != nil {
		return err
	}

	if err := l.hw.Drive.SetPosition(height / l.config.EncoderScale); err != nil {
		return fmt.Errorf("lift height %.2f: %w", height, err)
	}
	return nil
}

func (l *Lift) Stop() error {
	l.checkOwner()
	return l.hw.Drive.SetPercentOutput(0)
}

func (l *Lift) Direction() Direction {
	return l.direction
}

// Speed is the last demand sent to the drive.
func (l *Lift) Speed() float64 {
	return l.hw.Drive.Get()
}

func (l *Lift) AtTop() bool {
	return l.hw.Top.Contacted()
}

func (l *Lift) AtBottom() bool {
	return l.hw.Bottom.Contacted()
}

func (l *Lift) LeftRawDistance() (float64, error) {
	return l.hw.Left.Position()
}

func (l *Lift) RightRawDistance() (float64, error) {
	return l.hw.Right.Position()
}

func (l *Lift) LeftHeight() (float64, error) {
	raw, err := l.LeftRawDistance()
	return raw * l.config.EncoderScale, err
}

func (l *Lift) RightHeight() (float64, error) {
	raw, err := l.RightRawDistance()
	return raw * l.config.EncoderScale, err
}

// Height is the larger of the two sides, so the lift never under-estimates how
// close it is to the top.
func (l *Lift) Height() (float64, error) {
	left, err := l.LeftHeight()
	if err != nil {
		return 0, fmt.Errorf("left encoder: %w", err)
	}
	right, err := l.RightHeight()
	if err != nil {
		return 0, fmt.Errorf("right encoder: %w", err)
	}
	return math.Max(left, right), nil
}
