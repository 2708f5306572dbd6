package onboard

import (
	"testing"

	lifterrors "github.com/CodedInternet/golift/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewDevice(t *testing.T) {
	Convey("the sim driver", t, func() {
		d, err := NewDevice(DefaultLiftConfig())
		So(err, ShouldBeNil)
		defer d.Close()

		So(d.Sim, ShouldNotBeNil)
		So(d.Lift, ShouldNotBeNil)
		So(d.Lift.MoveRamp(0.5), ShouldBeNil)
		So(d.Sim.Get(), ShouldEqual, 0.5)
	})

	Convey("an invalid config is refused before any hardware opens", t, func() {
		config := DefaultLiftConfig()
		config.Hardware.Driver = "i2c"
		d, err := NewDevice(config)
		So(d, ShouldBeNil)
		So(err, ShouldNotBeNil)
	})

	Convey("a missing serial port fails to open", t, func() {
		config := DefaultLiftConfig()
		config.Hardware.Driver = DriverSerial
		config.Hardware.Serial.Port = "/nonexistent/ttyLIFT"
		d, err := NewDevice(config)
		So(d, ShouldBeNil)
		So(err.Error(), ShouldContainSubstring, "/nonexistent/ttyLIFT")
	})

	Convey("closing twice is harmless", t, func() {
		d, err := NewDevice(DefaultLiftConfig())
		So(err, ShouldBeNil)
		So(d.Close(), ShouldBeNil)
		So(d.Close(), ShouldBeNil)
	})
}

func TestDriverError(t *testing.T) {
	Convey("driver errors name the driver", t, func() {
		err := lifterrors.DriverError{Driver: "i2c", Action: "open"}
		So(err.Error(), ShouldEqual, "driver i2c is unable to perform action open")
	})
}
