package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/CodedInternet/golift/logger"
	"github.com/CodedInternet/golift/onboard/canbus"
	"github.com/CodedInternet/golift/onboard/hardware"
)

// formatMsg prints a frame the way candump does, with the command split out.
func formatMsg(msg canbus.CANMsg) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "0x%04x \t0x%04x \t[%d] \t", msg.ID, msg.Cmd, len(msg.Data))
	for i := 0; i < len(msg.Data); i++ {
		fmt.Fprintf(&sb, "%02x ", msg.Data[i])
	}
	return strings.TrimSpace(sb.String())
}

func main() {
	ifname := flag.String("bus", "can0", "CAN interface to listen on")
	node := flag.Uint("version", 0, "Ask this node id for its firmware version before listening")
	flag.Parse()

	logger.Init(logger.Options{Level: logger.InfoLevel, Color: true})
	defer logger.Sync()

	logger.Infof("opening listener on %s", *ifname)
	bus, err := canbus.NewCANBus(*ifname)
	if err != nil {
		logger.Fatalf("unable to open %s: %v", *ifname, err)
	}
	defer bus.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rxc := make(chan canbus.CANMsg, 64)
	bus.AddListener(canbus.AnyNode, rxc)

	if *node != 0 {
		// the node logs its own firmware version
		if _, err := hardware.NewControlNode(bus, uint32(*node)); err != nil {
			logger.Errorf("%v", err)
		}
	}

	for {
		select {
		case msg := <-rxc:
			fmt.Println(formatMsg(msg))
		case <-ctx.Done():
			return
		}
	}
}
