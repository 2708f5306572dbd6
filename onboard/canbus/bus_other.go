//go:build !linux

package canbus

import (
	"sync"

	"github.com/CodedInternet/golift/logger"
)

// CANBus on platforms without SocketCAN echoes every frame back to its listeners,
// which is enough for nodes to acknowledge commands during development.
type CANBus struct {
	tx        chan []byte
	listeners listeners
	done      chan struct{}
	closeOnce sync.Once
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	bus = &CANBus{
		tx:   make(chan []byte),
		done: make(chan struct{}),
	}
	logger.Warnf("SocketCAN unavailable, %s is a loopback bus", ifname)

	go bus.writer()

	return
}

func (c *CANBus) AddListener(nodeId uint32, rxchan chan CANMsg) {
	c.listeners.add(nodeId, rxchan)
}

func (c *CANBus) SendMsg(msg CANMsg) error {
	raw, err := msg.ToByteArray()
	if err != nil {
		return err
	}

	select {
	case c.tx <- raw:
		return nil
	case <-c.done:
		return ERR_BUS_CLOSED
	}
}

func (c *CANBus) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *CANBus) writer() {
	for {
		select {
		case raw := <-c.tx:
			resp, err := MsgFromByteArray(raw)
			if err == nil {
				c.listeners.route(resp, c.done)
			}
		case <-c.done:
			return
		}
	}
}
