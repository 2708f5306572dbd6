package onboard

import (
	"errors"
	"math"
	"testing"

	lifterrors "github.com/CodedInternet/golift/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type MockDrive struct {
	outputs   []float64
	positions []float64
	demand    float64
	err       error
}

func (d *MockDrive) SetPercentOutput(value float64) error {
	if d.err != nil {
		return d.err
	}
	d.outputs = append(d.outputs, value)
	d.demand = value
	return nil
}

func (d *MockDrive) SetPosition(ticks float64) error {
	if d.err != nil {
		return d.err
	}
	d.positions = append(d.positions, ticks)
	d.demand = ticks
	return nil
}

func (d *MockDrive) Get() float64 {
	return d.demand
}

func (d *MockDrive) last() float64 {
	return d.outputs[len(d.outputs)-1]
}

type MockEncoder struct {
	ticks  float64
	resets int
	err    error
}

func (e *MockEncoder) Position() (float64, error) {
	return e.ticks, e.err
}

func (e *MockEncoder) ResetPosition(ticks float64) error {
	if e.err != nil {
		return e.err
	}
	e.ticks = ticks
	e.resets++
	return nil
}

type MockSwitch struct {
	contacted bool
}

func (s *MockSwitch) Contacted() bool {
	return s.contacted
}

type testRig struct {
	drive       *MockDrive
	left, right *MockEncoder
	top, bottom *MockSwitch
	lift        *Lift
}

func testConfig() LiftConfig {
	config := DefaultLiftConfig()
	config.Ramp = testRamp
	config.EncoderScale = 0.01
	return config
}

func newTestRig(config LiftConfig) *testRig {
	r := &testRig{
		drive:  new(MockDrive),
		left:   new(MockEncoder),
		right:  new(MockEncoder),
		top:    new(MockSwitch),
		bottom: new(MockSwitch),
	}

	lift, err := NewLift(config, LiftHardware{
		Drive:  r.drive,
		Left:   r.left,
		Right:  r.right,
		Top:    r.top,
		Bottom: r.bottom,
	})
	if err != nil {
		panic(err)
	}
	r.lift = lift
	return r
}

// setHeight places both encoders at height.
func (r *testRig) setHeight(height float64) {
	r.left.ticks = height / 0.01
	r.right.ticks = height / 0.01
}

func TestLift(t *testing.T) {
	Convey("a new lift", t, func() {
		r := newTestRig(testConfig())
		So(r.lift.Direction(), ShouldEqual, Up)

		Convey("ramped moves follow the ramp", func() {
			r.setHeight(90)
			So(r.lift.MoveRamp(0.8), ShouldBeNil)
			So(r.drive.last(), ShouldAlmostEqual, 0.3, kSpeedTolerance)

			r.setHeight(50)
			So(r.lift.MoveRamp(0.5), ShouldBeNil)
			So(r.drive.last(), ShouldEqual, 0.5)
		})

		Convey("requests take their sign from the direction", func() {
			r.setHeight(50)
			So(r.lift.MoveRamp(-0.5), ShouldBeNil)
			So(r.drive.last(), ShouldEqual, 0.5)

			So(r.lift.MoveDangerous(-0.9), ShouldBeNil)
			So(r.drive.last(), ShouldEqual, 0.9)
		})

		Convey("dangerous moves skip the ramp", func() {
			r.setHeight(95)
			So(r.lift.MoveDangerous(0.8), ShouldBeNil)
			So(r.drive.last(), ShouldEqual, 0.8)
		})

		Convey("the higher side decides the height", func() {
			r.left.ticks = 8500
			r.right.ticks = 9000
			h, err := r.lift.Height()
			So(err, ShouldBeNil)
			So(h, ShouldAlmostEqual, 90, kSpeedTolerance)

			So(r.lift.MoveRamp(0.8), ShouldBeNil)
			So(r.drive.last(), ShouldAlmostEqual, 0.3, kSpeedTolerance)

			raw, _ := r.lift.LeftRawDistance()
			So(raw, ShouldEqual, 8500)
			left, _ := r.lift.LeftHeight()
			So(left, ShouldAlmostEqual, 85, kSpeedTolerance)
		})

		Convey("heights are read fresh each time", func() {
			r.setHeight(10)
			h1, _ := r.lift.Height()
			r.setHeight(30)
			h2, _ := r.lift.Height()
			So(h1, ShouldAlmostEqual, 10, kSpeedTolerance)
			So(h2, ShouldAlmostEqual, 30, kSpeedTolerance)
		})

		Convey("reaching the top reverses the direction once", func() {
			r.setHeight(100)
			r.top.contacted = true
			So(r.lift.AtTop(), ShouldBeTrue)

			So(r.lift.MoveDangerous(0.4), ShouldBeNil)
			So(r.lift.Direction(), ShouldEqual, Down)
			// the flipping cycle still sends the chosen speed
			So(r.drive.last(), ShouldEqual, 0.4)

			Convey("the next request heads back down", func() {
				So(r.lift.MoveDangerous(0.4), ShouldBeNil)
				So(r.lift.Direction(), ShouldEqual, Down)
				So(r.drive.last(), ShouldEqual, -0.4)
			})

			Convey("and the bottom turns it round again", func() {
				r.top.contacted = false
				r.bottom.contacted = true
				r.setHeight(0)
				So(r.lift.MoveRamp(1), ShouldBeNil)
				So(r.lift.Direction(), ShouldEqual, Up)
				So(r.drive.last(), ShouldAlmostEqual, -0.1, kSpeedTolerance)

				So(r.lift.MoveRamp(1), ShouldBeNil)
				So(r.drive.last(), ShouldEqual, 1)
			})
		})

		Convey("set height bypasses the limiter", func() {
			So(r.lift.SetHeight(42), ShouldBeNil)
			So(r.drive.positions, ShouldResemble, []float64{4200})
			So(r.drive.outputs, ShouldBeEmpty)
			So(r.lift.Speed(), ShouldEqual, 4200)
		})

		Convey("stop leaves direction and height alone", func() {
			r.setHeight(60)
			r.top.contacted = true
			r.lift.MoveDangerous(1)
			So(r.lift.Stop(), ShouldBeNil)
			So(r.drive.last(), ShouldEqual, 0)
			So(r.lift.Direction(), ShouldEqual, Down)
			h, _ := r.lift.Height()
			So(h, ShouldAlmostEqual, 60, kSpeedTolerance)
		})

		Convey("a failed height read stops the lift", func() {
			r.drive.demand = 0.7
			r.right.err = errors.New("encoder unplugged")
			err := r.lift.MoveRamp(0.5)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "right encoder")
			So(r.drive.outputs, ShouldResemble, []float64{0})
		})

		Convey("values that are not numbers are refused before the drive", func() {
			r.setHeight(50)
			r.top.contacted = true

			moves := map[string]func(float64) error{
				"dangerous": r.lift.MoveDangerous,
				"ramp":      r.lift.MoveRamp,
				"height":    r.lift.SetHeight,
			}
			for name, move := range moves {
				for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
					err := move(v)
					var demand lifterrors.DemandError
					So(errors.As(err, &demand), ShouldBeTrue)
					So(demand.Request, ShouldEqual, name)
				}
			}

			So(r.drive.outputs, ShouldBeEmpty)
			So(r.drive.positions, ShouldBeEmpty)
			// the limit switch was never consulted, so no flip either
			So(r.lift.Direction(), ShouldEqual, Up)
		})

		Convey("drive errors are returned", func() {
			r.drive.err = errors.New("bus off")
			So(r.lift.MoveDangerous(0.5), ShouldNotBeNil)
			So(r.lift.SetHeight(1), ShouldNotBeNil)
		})
	})

	Convey("stop on reverse zeroes the flipping cycle", t, func() {
		config := testConfig()
		config.StopOnReverse = true
		r := newTestRig(config)
		r.top.contacted = true

		So(r.lift.MoveDangerous(0.4), ShouldBeNil)
		So(r.lift.Direction(), ShouldEqual, Down)
		So(r.drive.last(), ShouldEqual, 0)

		So(r.lift.MoveDangerous(0.4), ShouldBeNil)
		So(r.drive.last(), ShouldEqual, -0.4)
	})

	Convey("construction", t, func() {
		Convey("bad ramp config is refused", func() {
			config := testConfig()
			config.Ramp.HeightThreshold = 60
			_, err := NewLift(config, LiftHardware{})
			So(err, ShouldNotBeNil)
		})

		Convey("missing hardware is refused", func() {
			_, err := NewLift(testConfig(), LiftHardware{Drive: new(MockDrive)})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("moving from another goroutine once bound panics", t, func() {
		r := newTestRig(testConfig())
		r.lift.bind()
		defer r.lift.unbind()

		recovered := make(chan interface{})
		go func() {
			defer func() { recovered <- recover() }()
			r.lift.MoveDangerous(0.1)
		}()
		So(<-recovered, ShouldEqual, ErrNotOwner)

		So(func() { r.lift.MoveDangerous(0.1) }, ShouldNotPanic)
	})
}

func TestHomingMonitor(t *testing.T) {
	Convey("homing", t, func() {
		r := newTestRig(testConfig())
		r.left.ticks = 37
		r.right.ticks = 41

		Convey("does nothing off the bottom switch", func() {
			So(r.lift.Tick(), ShouldBeNil)
			So(r.left.ticks, ShouldEqual, 37)
			So(r.left.resets, ShouldEqual, 0)
		})

		Convey("zeroes both encoders on the bottom switch", func() {
			r.bottom.contacted = true
			So(r.lift.Tick(), ShouldBeNil)
			h, _ := r.lift.Height()
			So(h, ShouldEqual, 0)

			Convey("and is idempotent", func() {
				So(r.lift.Tick(), ShouldBeNil)
				h, _ := r.lift.Height()
				So(h, ShouldEqual, 0)
				So(r.left.resets, ShouldEqual, 2)
				So(r.right.resets, ShouldEqual, 2)
			})
		})

		Convey("does not touch the direction", func() {
			r.bottom.contacted = true
			r.lift.Tick()
			So(r.lift.Direction(), ShouldEqual, Up)
		})

		Convey("keeps going after one encoder fails", func() {
			r.bottom.contacted = true
			r.left.err = errors.New("nope")
			So(r.lift.Tick(), ShouldNotBeNil)
			So(r.right.ticks, ShouldEqual, 0)
		})
	})
}
