package host

import (
	"fmt"
	"time"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// Host drives one device on the root port of a host controller.
//
// All methods are polled and run to completion. A Host is not safe for
// concurrent use.
type Host struct {
	ctrl hal.HostController
	clk  hal.Clock
	ctx  Context
}

// New creates a host on top of ctrl. clk times retry and recovery delays.
func New(ctrl hal.HostController, clk hal.Clock) *Host {
	h := &Host{ctrl: ctrl, clk: clk}
	h.ctx.reset()
	return h
}

// BringUp initializes the host controller.
func (h *Host) BringUp() error {
	return h.ctrl.BringUp()
}

// WaitForConnection polls for a device until timeout elapses.
func (h *Host) WaitForConnection(timeout time.Duration) bool {
	return h.ctrl.WaitForConnection(timeout)
}

// ResetPort resets the root port. The device context always returns to its
// defaults, even when the reset fails: a reset device must be enumerated
// again.
func (h *Host) ResetPort() (hal.Speed, error) {
	h.ctx.reset()
	speed, err := h.ctrl.ResetPort()
	if err != nil {
		return hal.SpeedUnknown, err
	}
	h.ctx.Speed = speed
	return speed, nil
}

// IsEnumerated reports whether the device has been configured.
func (h *Host) IsEnumerated() bool {
	return h.ctx.Enumerated
}

// Context returns a copy of the device context.
func (h *Host) Context() Context {
	return h.ctx
}

// Attach waits for a device, resets the port and enumerates the device.
// On failure the caller retries the whole sequence, usually after the
// device has been reconnected.
func (h *Host) Attach(timeout time.Duration) error {
	if !h.WaitForConnection(timeout) {
		return fmt.Errorf("wait for connection: %w", pkg.ErrNotConnected)
	}
	if _, err := h.ResetPort(); err != nil {
		return fmt.Errorf("reset port: %w", err)
	}
	return h.Enumerate()
}
