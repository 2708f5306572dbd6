package hardware

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOPin is a limit switch input on a host GPIO line. The switches short to
// ground, so the line is pulled up and reads high while open.
type GPIOPin struct {
	Pin gpio.PinIn
}

// OpenGPIOPin looks up a host GPIO by number, loading the host drivers on first use.
func OpenGPIOPin(number int) (p GPIOPin, err error) {
	if _, err = host.Init(); err != nil {
		return p, fmt.Errorf("gpio host init: %w", err)
	}

	pin := gpioreg.ByName(strconv.Itoa(number))
	if pin == nil {
		return p, fmt.Errorf("gpio %d not found", number)
	}

	return NewGPIOPin(pin)
}

// NewGPIOPin configures pin as a pulled up input.
func NewGPIOPin(pin gpio.PinIn) (p GPIOPin, err error) {
	if err = pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return p, fmt.Errorf("gpio %s input: %w", pin, err)
	}

	p.Pin = pin
	return
}

func (p GPIOPin) Get() bool {
	return p.Pin.Read() == gpio.High
}
