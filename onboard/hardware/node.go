package hardware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/CodedInternet/golift/logger"
	"github.com/CodedInternet/golift/onboard/canbus"
	"github.com/Masterminds/semver"
)

const (
	NODE_VERSION = "~1.2.0"
)

var (
	ERR_NODE_VERSION = errors.New("motor controller firmware is not supported")
)

// ControlNode is a single motor controller on the CAN bus.
type ControlNode struct {
	id          uint32
	bus         canbus.CANBusInterface
	lock        *sync.Mutex
	pending     sync.WaitGroup
	pendingLock sync.Mutex
	pendingCmd  map[uint16]NodeCommand
	rx          chan canbus.CANMsg
	version     string
}

func newNode(bus canbus.CANBusInterface, id uint32) (n *ControlNode) {
	n = &ControlNode{
		id:         id,
		bus:        bus,
		lock:       new(sync.Mutex),
		pendingCmd: make(map[uint16]NodeCommand),
		rx:         make(chan canbus.CANMsg, 8),
	}

	bus.AddListener(id, n.rx)
	go n.listen()

	return
}

// NewControlNode starts listening for the node and checks its firmware version.
// A node reporting "DEV" is accepted with a warning.
func NewControlNode(bus canbus.CANBusInterface, id uint32) (n *ControlNode, err error) {
	n = newNode(bus, id)

	n.version, err = n.Version()
	if err != nil {
		return nil, fmt.Errorf("node 0x%x: %w", id, err)
	}

	if n.version == "DEV" {
		logger.Warnf("node 0x%x is running a development firmware build", id)
		return n, nil
	}

	if err = checkVersion(n.version); err != nil {
		return nil, fmt.Errorf("node 0x%x: %w", id, err)
	}

	logger.Infof("node 0x%x firmware %s", id, n.version)
	return n, nil
}

func checkVersion(versionString string) error {
	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		return fmt.Errorf("%w: unparsable version %q", ERR_NODE_VERSION, versionString)
	}

	semVerConstraint, err := semver.NewConstraint(NODE_VERSION)
	if err != nil {
		return err
	}

	if !semVerConstraint.Check(semVer) {
		return fmt.Errorf("%w: recieved version %s - require %s", ERR_NODE_VERSION, versionString, NODE_VERSION)
	}

	return nil
}

func (n *ControlNode) NodeID() uint32 {
	return n.id
}

func (n *ControlNode) SendMsg(msg canbus.CANMsg) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.bus.SendMsg(msg)
}

func (n *ControlNode) Version() (string, error) {
	resp, err := newQuery(n, CMD_VERSION).Process()
	if err != nil {
		return "", err
	}

	return strings.TrimRight(string(resp.Data), "\x00"), nil
}

func (n *ControlNode) SetPercentOutput(value float64) error {
	if err := checkFinite(value); err != nil {
		return err
	}

	_, err := newCommand(n, CMD_PERCENT_OUTPUT, float32Payload(value)).Process()
	return err
}

func (n *ControlNode) SetPosition(ticks float64) error {
	data, err := int32Payload(ticks)
	if err != nil {
		return err
	}

	_, err = newCommand(n, CMD_POSITION, data).Process()
	return err
}

func (n *ControlNode) Position() (float64, error) {
	resp, err := newQuery(n, CMD_GET_POS).Process()
	if err != nil {
		return 0, err
	}

	return int32FromPayload(resp.Data)
}

func (n *ControlNode) SetSensorPosition(ticks float64) error {
	data, err := int32Payload(ticks)
	if err != nil {
		return err
	}

	_, err = newCommand(n, CMD_SET_SENSOR_POS, data).Process()
	return err
}

// Follow makes the node mirror the output of the leader node.
func (n *ControlNode) Follow(leader *ControlNode) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, leader.id)

	_, err := newCommand(n, CMD_FOLLOW, data).Process()
	return err
}

func (n *ControlNode) SetNeutralMode(brake bool) error {
	mode := byte(NEUTRAL_MODE_COAST)
	if brake {
		mode = NEUTRAL_MODE_BRAKE
	}

	_, err := newCommand(n, CMD_NEUTRAL_MODE, []byte{mode}).Process()
	return err
}

// SetOpenLoopRamp limits how fast open loop output may go from neutral to full.
func (n *ControlNode) SetOpenLoopRamp(ramp time.Duration) error {
	ms := ramp.Milliseconds()
	if ms > 0xffff {
		ms = 0xffff
	}

	_, err := newCommand(n, CMD_OPEN_LOOP_RAMP, []byte{byte(ms), byte(ms >> 8)}).Process()
	return err
}

func (n *ControlNode) SetCurrentLimit(amps uint8, enabled bool) error {
	var enable byte
	if enabled {
		enable = CURRENT_LIMIT_ENABLE
	}

	_, err := newCommand(n, CMD_CURRENT_LIMIT, []byte{amps, enable}).Process()
	return err
}

// AllStop abandons any in flight commands and neutralises the node output.
func (n *ControlNode) AllStop() error {
	n.abortPending()

	_, err := newCommand(n, CMD_ALLSTOP, nil).Process()
	return err
}

// Wait blocks until all in flight commands have finished or the timeout passes.
func (n *ControlNode) Wait(timeout time.Duration) error {
	ready := make(chan struct{})

	go func() {
		defer close(ready)
		n.pending.Wait()
	}()

	select {
	case <-ready:
		return nil
	case <-time.After(timeout):
		return errors.New("timed out waiting for pending commands")
	}
}

func (n *ControlNode) register(cmd NodeCommand) {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	n.pendingCmd[cmd.ID()] = cmd
}

func (n *ControlNode) unregister(cmd NodeCommand) {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	if n.pendingCmd[cmd.ID()] == cmd {
		delete(n.pendingCmd, cmd.ID())
	}
}

func (n *ControlNode) abortPending() {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	for _, cmd := range n.pendingCmd {
		cmd.Abort()
	}
}

func (n *ControlNode) listen() {
	for msg := range n.rx {
		n.routeACK(msg)
	}
}

func (n *ControlNode) routeACK(msg canbus.CANMsg) {
	n.pendingLock.Lock()
	cmd, ok := n.pendingCmd[msg.Cmd]
	n.pendingLock.Unlock()

	if !ok {
		logger.Debugf("node 0x%x: unsolicited response 0x%04x", n.id, msg.Cmd)
		return
	}
	cmd.Ack(msg)
}
