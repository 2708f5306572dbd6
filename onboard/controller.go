package onboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodedInternet/golift/logger"
	uuid "github.com/satori/go.uuid"
)

var (
	ErrControllerStopped = errors.New("lift controller is not running")
)

type RequestKind int

const (
	RequestState RequestKind = iota
	RequestMoveDangerous
	RequestMoveRamp
	RequestSetHeight
	RequestStop
)

func (k RequestKind) String() string {
	switch k {
	case RequestState:
		return "state"
	case RequestMoveDangerous:
		return "dangerous"
	case RequestMoveRamp:
		return "ramp"
	case RequestSetHeight:
		return "height"
	case RequestStop:
		return "stop"
	default:
		return fmt.Sprintf("RequestKind(%d)", int(k))
	}
}

type Request struct {
	ID    uuid.UUID
	Kind  RequestKind
	Value float64
}

// LiftState is a snapshot taken by the controller after serving a request.
type LiftState struct {
	Direction Direction `json:"direction"`
	Height    float64   `json:"height"`
	Left      float64   `json:"left"`
	Right     float64   `json:"right"`
	AtTop     bool      `json:"at_top"`
	AtBottom  bool      `json:"at_bottom"`
	Output    float64   `json:"output"`
}

type result struct {
	state LiftState
	err   error
}

type pendingRequest struct {
	req  Request
	resp chan result
}

// Controller owns a Lift. It runs the homing monitor every cycle and serves at most
// one request per cycle, so requests from any number of goroutines reach the lift
// one at a time and always from the same goroutine.
type Controller struct {
	lift     *Lift
	period   time.Duration
	requests chan pendingRequest
	done     chan struct{}
}

func NewController(lift *Lift) *Controller {
	return &Controller{
		lift:     lift,
		period:   time.Second / time.Duration(lift.config.TickRate),
		requests: make(chan pendingRequest, 16),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is done, leaving the lift stopped.
func (c *Controller) Run(ctx context.Context) error {
	c.lift.bind()
	defer c.lift.unbind()
	defer close(c.done)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	logger.Infof("lift controller running every %s", c.period)
	for {
		select {
		case <-ticker.C:
			c.cycle()

		case <-ctx.Done():
			if err := c.lift.Stop(); err != nil {
				logger.Errorf("stopping lift on shutdown: %v", err)
			}
			c.drain()
			return ctx.Err()
		}
	}
}

func (c *Controller) cycle() {
	if err := c.lift.Tick(); err != nil {
		logger.Warnf("homing: %v", err)
	}

	select {
	case p := <-c.requests:
		p.resp <- c.apply(p.req)
	default:
	}
}

func (c *Controller) drain() {
	for {
		select {
		case p := <-c.requests:
			p.resp <- result{err: ErrControllerStopped}
		default:
			return
		}
	}
}

func (c *Controller) apply(req Request) result {
	var err error
	switch req.Kind {
	case RequestState:
	case RequestMoveDangerous:
		err = c.lift.MoveDangerous(req.Value)
	case RequestMoveRamp:
		err = c.lift.MoveRamp(req.Value)
	case RequestSetHeight:
		err = c.lift.SetHeight(req.Value)
	case RequestStop:
		err = c.lift.Stop()
	default:
		err = fmt.Errorf("unknown request %s", req.Kind)
	}

	if err != nil {
		logger.Warnf("request %s %s(%.3f): %v", req.ID, req.Kind, req.Value, err)
	} else if req.Kind != RequestState {
		logger.Debugf("request %s %s(%.3f)", req.ID, req.Kind, req.Value)
	}

	state, stateErr := c.snapshot()
	if err == nil {
		err = stateErr
	}
	return result{state: state, err: err}
}

func (c *Controller) snapshot() (state LiftState, err error) {
	l := c.lift
	state.Direction = l.Direction()
	state.AtTop = l.AtTop()
	state.AtBottom = l.AtBottom()
	state.Output = l.Speed()

	if state.Height, err = l.Height(); err != nil {
		return
	}
	if state.Left, err = l.LeftHeight(); err != nil {
		return
	}
	state.Right, err = l.RightHeight()
	return
}

// Submit queues a request for the next free cycle and waits for its result.
func (c *Controller) Submit(ctx context.Context, req Request) (LiftState, error) {
	if uuid.Equal(req.ID, uuid.Nil) {
		req.ID = uuid.NewV4()
	}

	p := pendingRequest{req: req, resp: make(chan result, 1)}

	select {
	case c.requests <- p:
	case <-c.done:
		return LiftState{}, ErrControllerStopped
	case <-ctx.Done():
		return LiftState{}, ctx.Err()
	}

	select {
	case r := <-p.resp:
		return r.state, r.err
	case <-c.done:
		// Run may have answered just before it returned
		select {
		case r := <-p.resp:
			return r.state, r.err
		default:
			return LiftState{}, ErrControllerStopped
		}
	case <-ctx.Done():
		return LiftState{}, ctx.Err()
	}
}

func (c *Controller) State(ctx context.Context) (LiftState, error) {
	return c.Submit(ctx, Request{Kind: RequestState})
}
