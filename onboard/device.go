package onboard

import (
	"fmt"
	"io"
	"time"

	"github.com/CodedInternet/golift/logger"
	"github.com/CodedInternet/golift/onboard/canbus"
	lifterrors "github.com/CodedInternet/golift/onboard/errors"
	"github.com/CodedInternet/golift/onboard/hardware"
	"go.uber.org/multierr"
)

// Device is a lift with its hardware opened from a LiftConfig.
type Device struct {
	Lift *Lift
	Sim  *SimulatedLift // only set for the sim driver

	closers []io.Closer
	nodes   map[uint32]*hardware.ControlNode
}

func NewDevice(config LiftConfig) (d *Device, err error) {
	if err = config.Validate(); err != nil {
		return
	}

	d = &Device{
		nodes: make(map[uint32]*hardware.ControlNode),
	}

	var hw LiftHardware
	switch config.Hardware.Driver {
	case DriverSim:
		d.Sim = NewSimulatedLift(config)
		hw = d.Sim.Hardware()

	case DriverCAN:
		hw, err = d.openCAN(config.Hardware)

	case DriverSerial:
		hw, err = d.openSerial(config.Hardware.Serial)

	default:
		err = lifterrors.DriverError{Driver: config.Hardware.Driver, Action: "open"}
	}
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Lift, err = NewLift(config, hw)
	if err != nil {
		d.Close()
		return nil, err
	}

	logger.Infof("lift ready on %s driver", config.Hardware.Driver)
	return d, nil
}

func (d *Device) openCAN(config HardwareConfig) (hw LiftHardware, err error) {
	bus, err := canbus.NewCANBus(config.CAN.Bus)
	if err != nil {
		return hw, fmt.Errorf("can bus %s: %w", config.CAN.Bus, err)
	}
	d.closers = append(d.closers, bus)

	leader, err := d.getNode(bus, config.CAN.Leader)
	if err != nil {
		return
	}

	followers := make([]*hardware.ControlNode, 0, len(config.CAN.Followers))
	for _, id := range config.CAN.Followers {
		var n *hardware.ControlNode
		if n, err = d.getNode(bus, id); err != nil {
			return
		}
		followers = append(followers, n)
	}

	drive, err := hardware.NewNodeDrive(leader, followers, hardware.DriveConfig{
		Brake:        config.Brake,
		OpenLoopRamp: time.Duration(config.OpenLoopRamp * float64(time.Second)),
		CurrentLimit: config.CurrentLimit,
		LimitCurrent: config.LimitCurrent,
	})
	if err != nil {
		return
	}
	// stop the drive before the bus goes away
	d.closers = append([]io.Closer{drive}, d.closers...)

	left, err := d.getNode(bus, config.CAN.LeftEncoder)
	if err != nil {
		return
	}
	right, err := d.getNode(bus, config.CAN.RightEncoder)
	if err != nil {
		return
	}

	top, err := hardware.OpenGPIOPin(config.TopSwitch)
	if err != nil {
		return hw, fmt.Errorf("top switch: %w", err)
	}
	bottom, err := hardware.OpenGPIOPin(config.BottomSwitch)
	if err != nil {
		return hw, fmt.Errorf("bottom switch: %w", err)
	}

	hw = LiftHardware{
		Drive:  drive,
		Left:   hardware.NodeEncoder{Node: left},
		Right:  hardware.NodeEncoder{Node: right},
		Top:    hardware.ActiveLow{Input: top},
		Bottom: hardware.ActiveLow{Input: bottom},
	}
	return
}

func (d *Device) openSerial(config SerialConfig) (hw LiftHardware, err error) {
	mcu, err := hardware.OpenUARTMCU(config.Port, config.Baud)
	if err != nil {
		return hw, fmt.Errorf("serial %s: %w", config.Port, err)
	}
	d.closers = append(d.closers, mcu)

	hw = LiftHardware{
		Drive:  &hardware.UARTMotor{MCU: mcu, Address: config.Drive},
		Left:   &hardware.UARTMotor{MCU: mcu, Address: config.LeftEncoder},
		Right:  &hardware.UARTMotor{MCU: mcu, Address: config.RightEncoder},
		Top:    hardware.ActiveLow{Input: hardware.UARTInput{MCU: mcu, Pin: config.TopPin}},
		Bottom: hardware.ActiveLow{Input: hardware.UARTInput{MCU: mcu, Pin: config.BottomPin}},
	}
	return
}

// getNode shares one ControlNode per id, the leader usually carries an encoder too.
func (d *Device) getNode(bus canbus.CANBusInterface, id uint32) (node *hardware.ControlNode, err error) {
	node, ok := d.nodes[id]
	if !ok {
		node, err = hardware.NewControlNode(bus, id)
		if err != nil {
			return
		}
		d.nodes[id] = node
	}

	return
}

func (d *Device) Close() (err error) {
	for _, c := range d.closers {
		err = multierr.Append(err, c.Close())
	}
	d.closers = nil
	return
}
