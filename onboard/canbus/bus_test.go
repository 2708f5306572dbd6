package canbus

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestListeners(t *testing.T) {
	Convey("frames are routed by node id", t, func() {
		var l listeners
		done := make(chan struct{})
		node := make(chan CANMsg, 1)
		other := make(chan CANMsg, 1)
		all := make(chan CANMsg, 2)

		l.add(0x10, node)
		l.add(0x11, other)
		l.add(AnyNode, all)

		l.route(CANMsg{ID: 0x10, Cmd: 7}, done)

		So(len(node), ShouldEqual, 1)
		So(len(other), ShouldEqual, 0)
		So(len(all), ShouldEqual, 1)
		So((<-node).Cmd, ShouldEqual, 7)
		So((<-all).ID, ShouldEqual, 0x10)

		Convey("unknown nodes only reach the monitor", func() {
			l.route(CANMsg{ID: 0x99}, done)
			So(len(node), ShouldEqual, 0)
			So(len(all), ShouldEqual, 1)
			So((<-all).ID, ShouldEqual, 0x99)
		})

		Convey("routing gives up once the bus is done", func() {
			blocked := make(chan CANMsg)
			l.add(0x20, blocked)
			close(done)

			finished := make(chan struct{})
			go func() {
				l.route(CANMsg{ID: 0x20}, done)
				close(finished)
			}()

			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("route blocked after close")
			}
		})
	})
}
