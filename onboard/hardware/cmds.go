package hardware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/CodedInternet/golift/onboard/canbus"
)

const (
	CMD_ALLSTOP        = 0x0000
	CMD_PERCENT_OUTPUT = 0x0010
	CMD_POSITION       = 0x0020
	CMD_GET_POS        = 0x0030
	CMD_SET_SENSOR_POS = 0x0040
	CMD_FOLLOW         = 0x0050
	CMD_NEUTRAL_MODE   = 0x0060
	CMD_OPEN_LOOP_RAMP = 0x0070
	CMD_CURRENT_LIMIT  = 0x0080
	CMD_VERSION        = 0x03E0

	CMD_MAX_RETRIES = 5
	CMD_TIMEOUT     = 5 * time.Millisecond

	NEUTRAL_MODE_COAST   = 0
	NEUTRAL_MODE_BRAKE   = 1
	CURRENT_LIMIT_ENABLE = 1
)

var (
	ERR_MAX_RETRIES   = errors.New("CMD_MAX_RETRIES reached while attempting to send")
	ERR_SEND_ABORT    = errors.New("send has been aborted")
	ERR_SHORT_PAYLOAD = errors.New("response payload too short")
	ERR_NOT_FINITE    = errors.New("demand is not a finite number")
	ERR_PAYLOAD_RANGE = errors.New("value does not fit an int32 payload")
)

type NodeCommand interface {
	ID() uint16
	Process() (resp canbus.CANMsg, err error)
	Ack(msg canbus.CANMsg)
	Msg() canbus.CANMsg
	Abort() error
}

type BaseCommand struct {
	node  *ControlNode
	msg   canbus.CANMsg
	query bool // any response to a query is accepted, set commands must echo their data
	ack   chan canbus.CANMsg
	abort chan struct{}
	once  sync.Once
}

func newCommand(node *ControlNode, cmd uint16, data []byte) *BaseCommand {
	return &BaseCommand{
		node: node,
		msg: canbus.CANMsg{
			ID:   node.id,
			Cmd:  cmd,
			Data: data,
		},
	}
}

func newQuery(node *ControlNode, cmd uint16) *BaseCommand {
	c := newCommand(node, cmd, nil)
	c.query = true
	return c
}

// Sends the current command and waits for a response/acknowledgment from the node.
// Will retry commands that are not acknowledged within CMD_TIMEOUT up to CMD_MAX_RETRIES.
// Can be canceled by closing the abort channel
// Returns the response to the message for upstream processing should it be necessary
// Returns an error if the maximum retries are reached without an acknowledgement.
func (c *BaseCommand) Process() (resp canbus.CANMsg, err error) {
	c.node.pending.Add(1)
	defer c.node.pending.Done()

	if c.ack == nil {
		c.ack = make(chan canbus.CANMsg, 1)
	}

	if c.abort == nil {
		c.abort = make(chan struct{})
	}

	c.node.register(c)
	defer c.node.unregister(c)

	msg := c.Msg()
	for i := 0; i < CMD_MAX_RETRIES; i++ {
		if err = c.node.SendMsg(msg); err != nil {
			return resp, err
		}

		timeout := time.NewTimer(CMD_TIMEOUT)
		select {
		case resp = <-c.ack:
			timeout.Stop()
			if c.verify(resp) {
				return resp, nil
			}

		case <-c.abort:
			timeout.Stop()
			return resp, ERR_SEND_ABORT

		case <-timeout.C:
		}
	}

	return resp, ERR_MAX_RETRIES
}

func (c *BaseCommand) verify(msg canbus.CANMsg) bool {
	if msg.Cmd != c.msg.Cmd {
		return false
	}
	return c.query || bytes.Equal(c.msg.Data, msg.Data)
}

func (c *BaseCommand) ID() uint16 {
	return c.msg.Cmd
}

func (c *BaseCommand) Msg() canbus.CANMsg {
	return c.msg
}

func (c *BaseCommand) Abort() error {
	if c.abort == nil {
		return errors.New("send not yet attempted")
	}

	c.once.Do(func() { close(c.abort) })
	return nil
}

// Ack drops responses that arrive while a previous one is still unread,
// the retry loop will pick up the next.
func (c *BaseCommand) Ack(msg canbus.CANMsg) {
	select {
	case c.ack <- msg:
	default:
	}
}

// payload helpers, everything on the wire is little endian

func float32Payload(v float64) []byte {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, math.Float32bits(float32(v)))
	return data
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ERR_NOT_FINITE
	}
	return nil
}

// roundInt32 rounds v to the nearest int32, refusing anything that would wrap.
func roundInt32(v float64) (n int32, err error) {
	if err = checkFinite(v); err != nil {
		return
	}

	v = math.Round(v)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %.0f", ERR_PAYLOAD_RANGE, v)
	}
	return int32(v), nil
}

func int32Payload(v float64) (data []byte, err error) {
	n, err := roundInt32(v)
	if err != nil {
		return
	}

	data = make([]byte, 4)
	binary.LittleEndian.PutUint32(data, uint32(n))
	return
}

func int32FromPayload(data []byte) (float64, error) {
	if len(data) < 4 {
		return 0, ERR_SHORT_PAYLOAD
	}
	return float64(int32(binary.LittleEndian.Uint32(data))), nil
}
