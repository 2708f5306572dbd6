package hardware

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestGPIOPin(t *testing.T) {
	Convey("a limit switch on a gpio line", t, func() {
		line := &gpiotest.Pin{N: "GPIO17", Num: 17, L: gpio.Low}
		pin, err := NewGPIOPin(line)
		So(err, ShouldBeNil)

		Convey("is pulled up, so an open switch reads high", func() {
			So(line.P, ShouldEqual, gpio.PullUp)
			So(pin.Get(), ShouldBeTrue)
			So(ActiveLow{pin}.Contacted(), ShouldBeFalse)
		})

		Convey("a grounded switch is contacted", func() {
			line.L = gpio.Low
			So(pin.Get(), ShouldBeFalse)
			So(ActiveLow{pin}.Contacted(), ShouldBeTrue)
		})
	})

	Convey("a line that refuses input mode is an error", t, func() {
		_, err := NewGPIOPin(outputOnly{&gpiotest.Pin{N: "GPIO4", Num: 4}})
		So(errors.Is(err, errOutputOnly), ShouldBeTrue)
	})

	Convey("unknown gpio numbers are refused", t, func() {
		_, err := OpenGPIOPin(-1)
		So(err, ShouldNotBeNil)
	})
}

var errOutputOnly = errors.New("line is output only")

type outputOnly struct {
	*gpiotest.Pin
}

func (outputOnly) In(gpio.Pull, gpio.Edge) error {
	return errOutputOnly
}
