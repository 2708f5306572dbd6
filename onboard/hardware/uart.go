package hardware

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tarm/serial"
)

// Registers understood by the bench MCU firmware.
const (
	m_REG_OUTPUT   = 1 // open loop output in thousandths
	m_REG_POSITION = 3 // encoder ticks, write redefines the current position
	m_REG_GOTO     = 4 // closed loop position target
	m_REG_INPUT    = 8 // digital input level, addressed by pin

	m_OUTPUT_SCALE = 1000
)

// UARTMCU talks a line based protocol to a microcontroller driving the lift on a bench:
// writes are "M<addr> <reg> <value>" answered with "OK", reads are "M<addr> <reg>"
// answered with the value.
type UARTMCU struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	lock   sync.Mutex
}

func OpenUARTMCU(ttyName string, baud int) (mcu *UARTMCU, err error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        ttyName,
		Baud:        baud,
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return
	}

	return NewUARTMCU(port), nil
}

func NewUARTMCU(port io.ReadWriteCloser) *UARTMCU {
	return &UARTMCU{
		port:   port,
		reader: bufio.NewReader(port),
	}
}

func (mcu *UARTMCU) Close() error {
	return mcu.port.Close()
}

func (mcu *UARTMCU) Put(addr int, reg uint8, value int32) error {
	buf := fmt.Sprintf("M%d %d %d\n", addr, reg, value)

	resp, err := mcu.transact(buf)
	if err != nil {
		return err
	}
	if resp != "OK" {
		return fmt.Errorf("mcu rejected %q: %s", strings.TrimSpace(buf), resp)
	}
	return nil
}

func (mcu *UARTMCU) Get(addr int, reg uint8) (value int32, err error) {
	resp, err := mcu.transact(fmt.Sprintf("M%d %d\n", addr, reg))
	if err != nil {
		return
	}

	v, err := strconv.ParseInt(resp, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("mcu response %q: %w", resp, err)
	}
	return int32(v), nil
}

func (mcu *UARTMCU) transact(line string) (string, error) {
	// Keep as little processing inside the critical section as possible
	mcu.lock.Lock()
	defer mcu.lock.Unlock()

	if _, err := io.WriteString(mcu.port, line); err != nil {
		return "", err
	}

	resp, err := mcu.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// UARTMotor is a motor controller channel on the MCU. It serves as both the drive and
// the encoder on that channel.
type UARTMotor struct {
	MCU     *UARTMCU
	Address int

	lock   sync.Mutex
	demand float64
}

func (m *UARTMotor) SetPercentOutput(value float64) error {
	if err := checkFinite(value); err != nil {
		return err
	}
	value = mgl64.Clamp(value, -1, 1)

	m.lock.Lock()
	defer m.lock.Unlock()

	m.demand = value
	return m.MCU.Put(m.Address, m_REG_OUTPUT, int32(math.Round(value*m_OUTPUT_SCALE)))
}

func (m *UARTMotor) SetPosition(ticks float64) error {
	n, err := roundInt32(ticks)
	if err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.demand = ticks
	return m.MCU.Put(m.Address, m_REG_GOTO, n)
}

func (m *UARTMotor) Get() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.demand
}

func (m *UARTMotor) Position() (float64, error) {
	v, err := m.MCU.Get(m.Address, m_REG_POSITION)
	return float64(v), err
}

func (m *UARTMotor) ResetPosition(ticks float64) error {
	n, err := roundInt32(ticks)
	if err != nil {
		return err
	}
	return m.MCU.Put(m.Address, m_REG_POSITION, n)
}

// UARTInput is a digital input pin on the MCU.
type UARTInput struct {
	MCU *UARTMCU
	Pin int
}

// Get reports high, an open switch, when the pin cannot be read.
func (in UARTInput) Get() bool {
	v, err := in.MCU.Get(in.Pin, m_REG_INPUT)
	if err != nil {
		return true
	}
	return v != 0
}
