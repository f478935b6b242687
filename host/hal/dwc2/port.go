package dwc2

import (
	"fmt"
	"time"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// Port reset timing. USB 2.0 requires at least 50 ms of reset from a root
// port and 10 ms of recovery before the first transaction.
const (
	portResetHold     = 60 * time.Millisecond
	portEnableTimeout = 500 * time.Millisecond
	portResetRecovery = 10 * time.Millisecond
)

// PortState is the root port state.
type PortState uint8

// Root port states.
const (
	PortDisconnected PortState = iota
	PortConnected
	PortResetting
	PortEnabled
)

// String returns the state name.
func (s PortState) String() string {
	switch s {
	case PortDisconnected:
		return "Disconnected"
	case PortConnected:
		return "Connected"
	case PortResetting:
		return "Resetting"
	case PortEnabled:
		return "Enabled"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// State returns the last observed root port state.
func (c *Controller) State() PortState {
	return c.port
}

// Speed returns the speed negotiated by the last successful port reset.
func (c *Controller) Speed() hal.Speed {
	return c.speed
}

// updatePort performs a read-modify-write of HPRT.
//
// HPRT mixes read/write control bits with write-1-to-clear status bits, and
// one of the latter is the port enable itself. The value read back is first
// stripped of every W1C bit so writing it back preserves them; set and clear
// then apply to control bits; ack names the change bits to acknowledge.
// The enable bit is never acknowledged: writing it as one would disable the
// port.
func (c *Controller) updatePort(set, clear, ack portFlags) {
	v := portFlags(c.read(regHPRT))
	v &^= portW1C
	v &^= clear
	v |= set &^ portW1C
	v |= ack & portChanges
	c.write(regHPRT, uint32(v))
}

func (c *Controller) readPort() portFlags {
	return portFlags(c.read(regHPRT))
}

// WaitForConnection polls the root port until a device is attached or
// timeout elapses.
func (c *Controller) WaitForConnection(timeout time.Duration) bool {
	err := c.waitFor(timeout, func() bool {
		return c.readPort()&portConnect != 0
	})
	if err != nil {
		c.port = PortDisconnected
		return false
	}
	if c.port == PortDisconnected {
		c.port = PortConnected
	}
	pkg.LogDebug(pkg.ComponentPort, "device connected")
	return true
}

// ResetPort drives a bus reset on the root port and waits for the port to
// enable. The device answers at address 0 afterwards.
func (c *Controller) ResetPort() (hal.Speed, error) {
	if c.readPort()&portConnect == 0 {
		c.port = PortDisconnected
		return hal.SpeedUnknown, pkg.ErrNotConnected
	}

	c.port = PortResetting
	c.updatePort(0, 0, portChanges)

	c.updatePort(portReset, 0, 0)
	c.clk.Delay(uint32(portResetHold / time.Microsecond))
	c.updatePort(0, portReset, 0)

	if err := c.waitFor(portEnableTimeout, func() bool {
		return c.readPort()&portEnable != 0
	}); err != nil {
		c.port = PortConnected
		return hal.SpeedUnknown, fmt.Errorf("port enable: %w", err)
	}

	st := c.readPort()
	c.updatePort(0, 0, st&portChanges)
	c.clk.Delay(uint32(portResetRecovery / time.Microsecond))

	switch (st & portSpeedMask) >> portSpeedShift {
	case portSpeedHigh:
		c.speed = hal.SpeedHigh
	case portSpeedLow:
		c.speed = hal.SpeedLow
	default:
		c.speed = hal.SpeedFull
	}
	c.port = PortEnabled

	pkg.LogInfo(pkg.ComponentPort, "port enabled", "speed", c.speed.String())
	return c.speed, nil
}
