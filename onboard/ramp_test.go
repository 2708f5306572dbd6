package onboard

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const kSpeedTolerance = 1e-9

var testRamp = RampConfig{
	MinSpeed:        0.1,
	HeightThreshold: 20,
	Slope:           0.02,
	TotalTravel:     100,
}

func TestRamp(t *testing.T) {
	Convey("worked examples", t, func() {
		Convey("extending near the top is slowed", func() {
			So(testRamp.Ramp(90, 0.8), ShouldAlmostEqual, 0.3, kSpeedTolerance)
		})

		Convey("retracting near the bottom is slowed", func() {
			So(testRamp.Ramp(5, -0.8), ShouldAlmostEqual, -0.2, kSpeedTolerance)
		})

		Convey("mid travel passes through", func() {
			So(testRamp.Ramp(50, 0.5), ShouldEqual, 0.5)
			So(testRamp.Ramp(50, -0.5), ShouldEqual, -0.5)
		})

		Convey("slow requests are never sped up", func() {
			So(testRamp.Ramp(90, 0.05), ShouldEqual, 0.05)
			So(testRamp.Ramp(5, -0.05), ShouldEqual, -0.05)
		})

		Convey("a zero request stays zero", func() {
			So(testRamp.Ramp(95, 0), ShouldEqual, 0)
			So(testRamp.Ramp(5, 0), ShouldEqual, 0)
			// past the point where the extension ramp turns negative
			So(testRamp.Ramp(110, 0), ShouldEqual, 0)
			So(testRamp.Ramp(-3, 0), ShouldEqual, 0)
		})
	})

	Convey("zone edges are strict", t, func() {
		Convey("at the threshold no retraction ramp applies", func() {
			So(testRamp.Ramp(20, -0.8), ShouldEqual, -0.8)
			So(testRamp.Ramp(19.999, -0.8), ShouldBeGreaterThan, -0.8)
		})

		Convey("at total travel less threshold no extension ramp applies", func() {
			So(testRamp.Ramp(80, 0.8), ShouldEqual, 0.8)
			So(testRamp.Ramp(80.001, 0.8), ShouldBeLessThan, 0.8)
		})

		Convey("at exactly zero the retraction ramp gives the minimum speed", func() {
			So(testRamp.Ramp(0, -0.8), ShouldAlmostEqual, -0.1, kSpeedTolerance)
		})

		Convey("extension from zero is not limited", func() {
			So(testRamp.Ramp(0, 0.8), ShouldEqual, 0.8)
		})
	})

	Convey("below the home reference", t, func() {
		Convey("retraction is limited to the minimum speed", func() {
			So(testRamp.Ramp(-3, -0.8), ShouldEqual, -0.1)
		})

		Convey("extension is allowed out at full speed", func() {
			So(testRamp.Ramp(-3, 0.8), ShouldEqual, 0.8)
		})
	})

	Convey("the ramp only gentles and grows with distance from the end", t, func() {
		requests := []float64{-1, -0.8, -0.35, -0.12}
		for _, req := range requests {
			prev := 0.0
			for h := 0.0; h < testRamp.HeightThreshold; h += 0.5 {
				out := testRamp.Ramp(h, req)
				So(math.Abs(out), ShouldBeLessThanOrEqualTo, math.Abs(req))

				ramped := testRamp.Slope*h + testRamp.MinSpeed
				if ramped < math.Abs(req) {
					So(math.Abs(out), ShouldBeGreaterThan, prev)
				}
				prev = math.Abs(out)
			}
		}
	})

	Convey("extension at travel-h mirrors retraction at h", t, func() {
		for h := 0.0; h < testRamp.HeightThreshold; h += 0.25 {
			down := testRamp.Ramp(h, -1)
			up := testRamp.Ramp(testRamp.TotalTravel-h, 1)
			So(up, ShouldAlmostEqual, -down, kSpeedTolerance)
		}
	})
}

func TestBound(t *testing.T) {
	Convey("direction flips only when driving into a contacted switch", t, func() {
		dir, out := Bound(Up, Limits{Top: true}, 0.4)
		So(dir, ShouldEqual, Down)
		So(out, ShouldEqual, 0.4)

		Convey("and does not flip back while leaving it", func() {
			dir, out = Bound(dir, Limits{Top: true}, Down.Apply(0.4))
			So(dir, ShouldEqual, Down)
			So(out, ShouldEqual, -0.4)
		})
	})

	Convey("the bottom switch mirrors the top", t, func() {
		dir, _ := Bound(Down, Limits{Bottom: true}, -0.4)
		So(dir, ShouldEqual, Up)

		dir, _ = Bound(Up, Limits{Bottom: true}, 0.4)
		So(dir, ShouldEqual, Up)
	})

	Convey("no switch, no flip", t, func() {
		dir, out := Bound(Up, Limits{}, 1)
		So(dir, ShouldEqual, Up)
		So(out, ShouldEqual, 1)
	})

	Convey("zero speed never flips", t, func() {
		dir, _ := Bound(Up, Limits{Top: true, Bottom: true}, 0)
		So(dir, ShouldEqual, Up)
	})
}

func TestDirection(t *testing.T) {
	Convey("apply takes the magnitude and the direction's sign", t, func() {
		So(Up.Apply(-0.7), ShouldEqual, 0.7)
		So(Down.Apply(0.7), ShouldEqual, -0.7)
		So(Down.Apply(-0.7), ShouldEqual, -0.7)
		So(Up.Invert(), ShouldEqual, Down)
		So(Down.Invert().Invert(), ShouldEqual, Down)
		So(Down.String(), ShouldEqual, "down")
	})

	Convey("directions travel as text", t, func() {
		text, err := Down.MarshalText()
		So(err, ShouldBeNil)
		So(string(text), ShouldEqual, "down")

		var d Direction
		So(d.UnmarshalText([]byte("up")), ShouldBeNil)
		So(d, ShouldEqual, Up)
		So(d.UnmarshalText([]byte("sideways")), ShouldNotBeNil)
	})
}
