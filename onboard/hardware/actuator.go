package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type DriveConfig struct {
	Brake        bool          // hold position in neutral
	OpenLoopRamp time.Duration // neutral to full output
	CurrentLimit uint8         // amps, 0 leaves the controller default
	LimitCurrent bool
}

// NodeDrive is a ganged set of controllers: the leader takes every demand and the
// followers mirror it in hardware.
type NodeDrive struct {
	Leader    *ControlNode
	Followers []*ControlNode

	lock   sync.Mutex
	demand float64
}

func NewNodeDrive(leader *ControlNode, followers []*ControlNode, config DriveConfig) (d *NodeDrive, err error) {
	d = &NodeDrive{
		Leader:    leader,
		Followers: followers,
	}

	nodes := append([]*ControlNode{leader}, followers...)
	for _, n := range nodes {
		if err = n.SetNeutralMode(config.Brake); err != nil {
			return nil, fmt.Errorf("node 0x%x neutral mode: %w", n.id, err)
		}
		if config.CurrentLimit > 0 {
			if err = n.SetCurrentLimit(config.CurrentLimit, config.LimitCurrent); err != nil {
				return nil, fmt.Errorf("node 0x%x current limit: %w", n.id, err)
			}
		}
	}

	for _, f := range followers {
		if err = f.Follow(leader); err != nil {
			return nil, fmt.Errorf("node 0x%x follow: %w", f.id, err)
		}
	}

	if config.OpenLoopRamp > 0 {
		if err = leader.SetOpenLoopRamp(config.OpenLoopRamp); err != nil {
			return nil, fmt.Errorf("node 0x%x open loop ramp: %w", leader.id, err)
		}
	}

	return d, nil
}

func (d *NodeDrive) SetPercentOutput(value float64) error {
	if err := checkFinite(value); err != nil {
		return err
	}
	value = mgl64.Clamp(value, -1, 1)

	d.lock.Lock()
	defer d.lock.Unlock()

	d.demand = value
	return d.Leader.SetPercentOutput(value)
}

func (d *NodeDrive) SetPosition(ticks float64) error {
	if _, err := roundInt32(ticks); err != nil {
		return err
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	d.demand = ticks
	return d.Leader.SetPosition(ticks)
}

func (d *NodeDrive) Get() float64 {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.demand
}

// Close neutralises every controller in the gang.
func (d *NodeDrive) Close() (err error) {
	for _, n := range append([]*ControlNode{d.Leader}, d.Followers...) {
		if e := n.AllStop(); e != nil && err == nil {
			err = e
		}
	}
	return
}

// NodeEncoder reads the quadrature encoder attached to a controller.
type NodeEncoder struct {
	Node *ControlNode
}

func (e NodeEncoder) Position() (float64, error) {
	return e.Node.Position()
}

func (e NodeEncoder) ResetPosition(ticks float64) error {
	return e.Node.SetSensorPosition(ticks)
}
