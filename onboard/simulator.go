package onboard

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/CodedInternet/golift/onboard/hardware"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	SIM_INTERVAL = time.Second / 100
	SIM_LOG_SIZE = 1024 // open loop outputs kept for Outputs
)

// SimulatedLift is a plant model of the lift: a carriage between two hard stops with
// a switch at each end and an encoder on each side. It provides every piece of
// LiftHardware.
type SimulatedLift struct {
	lock sync.Mutex

	position    float64 // true height in ticks, 0 is the bottom stop
	travel      float64 // ticks between the stops
	fullSpeed   float64 // ticks per second at full output
	output      float64
	target      float64
	closedLoop  bool
	demand      float64
	offsets     [2]float64 // encoder reference per side
	rightDrift  float64
	percentLogs []float64
}

func NewSimulatedLift(config LiftConfig) (sim *SimulatedLift) {
	scale := config.EncoderScale
	sim = &SimulatedLift{
		travel:     config.Ramp.TotalTravel / scale,
		fullSpeed:  config.Hardware.Sim.FullSpeed / scale,
		rightDrift: config.Hardware.Sim.RightDrift,
	}

	// encoders power up reading zero wherever the carriage is
	sim.position = mgl64.Clamp(config.Hardware.Sim.StartHeight/scale, 0, sim.travel)
	sim.offsets[0] = sim.position
	sim.offsets[1] = sim.position
	return
}

func (s *SimulatedLift) Hardware() LiftHardware {
	return LiftHardware{
		Drive:  s,
		Left:   simEncoder{s, 0},
		Right:  simEncoder{s, 1},
		Top:    hardware.ActiveLow{Input: simSwitch{s, true}},
		Bottom: hardware.ActiveLow{Input: simSwitch{s, false}},
	}
}

func (s *SimulatedLift) SetPercentOutput(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return hardware.ERR_NOT_FINITE
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.output = mgl64.Clamp(value, -1, 1)
	s.demand = s.output
	s.closedLoop = false

	if len(s.percentLogs) == SIM_LOG_SIZE {
		copy(s.percentLogs, s.percentLogs[1:])
		s.percentLogs = s.percentLogs[:SIM_LOG_SIZE-1]
	}
	s.percentLogs = append(s.percentLogs, s.output)
	return nil
}

// SetPosition targets ticks as read by the left encoder.
func (s *SimulatedLift) SetPosition(ticks float64) error {
	if math.IsNaN(ticks) || math.IsInf(ticks, 0) {
		return hardware.ERR_NOT_FINITE
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.target = ticks + s.offsets[0]
	s.demand = ticks
	s.closedLoop = true
	return nil
}

func (s *SimulatedLift) Get() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.demand
}

// Outputs returns the most recent open loop outputs, oldest first.
func (s *SimulatedLift) Outputs() []float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]float64(nil), s.percentLogs...)
}

// TrueHeight is the carriage height in ticks regardless of encoder state.
func (s *SimulatedLift) TrueHeight() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.position
}

// Step advances the model by dt.
func (s *SimulatedLift) Step(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()

	maxStep := s.fullSpeed * dt.Seconds()
	if s.closedLoop {
		// proportional approach, never faster than full output
		delta := mgl64.Clamp(s.target-s.position, -maxStep, maxStep)
		s.position += delta
	} else {
		s.position += s.output * maxStep
	}

	s.position = mgl64.Clamp(s.position, 0, s.travel)
}

func (s *SimulatedLift) Run(ctx context.Context) {
	ticker := time.NewTicker(SIM_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Step(SIM_INTERVAL)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SimulatedLift) read(side int) float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	ticks := s.position - s.offsets[side]
	if side == 1 {
		ticks += s.position * s.rightDrift
	}
	return math.Round(ticks)
}

func (s *SimulatedLift) reset(side int, ticks float64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.offsets[side] = s.position - ticks
	if side == 1 {
		s.offsets[side] += s.position * s.rightDrift
	}
}

// level is the electrical level of a switch, low when the carriage is on it.
func (s *SimulatedLift) level(top bool) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if top {
		return s.position < s.travel
	}
	return s.position > 0
}

type simEncoder struct {
	sim  *SimulatedLift
	side int
}

func (e simEncoder) Position() (float64, error) {
	return e.sim.read(e.side), nil
}

func (e simEncoder) ResetPosition(ticks float64) error {
	e.sim.reset(e.side, ticks)
	return nil
}

type simSwitch struct {
	sim *SimulatedLift
	top bool
}

func (sw simSwitch) Get() bool {
	return sw.sim.level(sw.top)
}
