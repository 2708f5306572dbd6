package canbus

import (
	"net"
	"sync"
	"time"

	"github.com/CodedInternet/golift/logger"
	"golang.org/x/sys/unix"
)

const readTimeout = 100 * time.Millisecond

type CANBus struct {
	fd        int
	tx        chan []byte
	listeners listeners
	done      chan struct{}
	closeOnce sync.Once
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return
	}
	// our own frames must not come back as node acknowledgements
	if err = unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_LOOPBACK, 0); err != nil {
		unix.Close(fd)
		return
	}
	tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
	if err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return
	}
	if err = unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return
	}

	bus = &CANBus{
		fd:   fd,
		tx:   make(chan []byte),
		done: make(chan struct{}),
	}

	go bus.reader()
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

func (c *CANBus) Close() (err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		err = unix.Close(c.fd)
	})
	return
}

func (c *CANBus) writer() {
	for {
		select {
		case raw := <-c.tx:
			if _, err := unix.Write(c.fd, raw); err != nil {
				logger.Warnf("can write failed: %v", err)
			}
		case <-c.done:
			return
		}
	}
}

func (c *CANBus) reader() {
	raw := make([]byte, FrameSize)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, err := unix.Read(c.fd, raw)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EINTR {
				logger.Warnf("can read failed: %v", err)
			}
			continue
		}

		msg, err := MsgFromByteArray(raw[:n])
		if err != nil {
			continue
		}
		c.listeners.route(msg, c.done)
	}
}
