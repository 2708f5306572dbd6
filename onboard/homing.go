package onboard

import (
	"fmt"

	"github.com/CodedInternet/golift/onboard/hardware"
)

// HomingMonitor zeroes the encoders whenever the carriage rests on the bottom switch.
type HomingMonitor struct {
	Bottom   hardware.LimitSwitch
	Encoders []hardware.Encoder
}

// Tick is safe to call every cycle; while contacted it keeps writing zero.
func (h *HomingMonitor) Tick() (err error) {
	if !h.Bottom.Contacted() {
		return nil
	}

	for i, enc := range h.Encoders {
		if e := enc.ResetPosition(0); e != nil && err == nil {
			err = fmt.Errorf("homing encoder %d: %w", i, e)
		}
	}
	return
}
