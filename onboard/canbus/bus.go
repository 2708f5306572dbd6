package canbus

import (
	"errors"
	"sync"
)

// AnyNode registers a listener that receives every frame on the bus.
const AnyNode uint32 = 0xffffffff

var (
	ERR_BUS_CLOSED = errors.New("can bus is closed")
)

type CANBusInterface interface {
	AddListener(nodeId uint32, rxchan chan CANMsg)
	SendMsg(msg CANMsg) error
}

// listeners routes received frames to the channel registered for the node id.
type listeners struct {
	lock sync.RWMutex
	rx   map[uint32]chan CANMsg
}

func (l *listeners) add(nodeId uint32, rxchan chan CANMsg) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.rx == nil {
		l.rx = make(map[uint32]chan CANMsg)
	}
	l.rx[nodeId] = rxchan
}

func (l *listeners) route(msg CANMsg, done <-chan struct{}) {
	l.lock.RLock()
	targets := make([]chan CANMsg, 0, 2)
	if c, ok := l.rx[msg.ID]; ok {
		targets = append(targets, c)
	}
	if c, ok := l.rx[AnyNode]; ok {
		targets = append(targets, c)
	}
	l.lock.RUnlock()

	for _, c := range targets {
		select {
		case c <- msg:
		case <-done:
			return
		}
	}
}
