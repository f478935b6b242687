package dwc2

import (
	"fmt"
	"time"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// PowerDeviceUSB is the platform power-domain identifier of the USB
// controller (the VideoCore mailbox "USB HCD" device).
const PowerDeviceUSB = 3

// Bring-up timing.
const (
	powerSettleDelay   = 10 * time.Millisecond
	ahbIdleTimeout     = 100 * time.Millisecond
	softResetTimeout   = 100 * time.Millisecond
	hostModeTimeout    = 100 * time.Millisecond
	fifoFlushTimeout   = 10 * time.Millisecond
	channelHaltTimeout = 10 * time.Millisecond
)

// Config describes how to reach a DWC2 core.
type Config struct {
	// Base is the address of the core's register block.
	Base uintptr

	// MMIO performs the register accesses.
	MMIO hal.MMIO

	// Clock times every bounded wait.
	Clock hal.Clock

	// Power requests controller power. Optional; nil skips the request.
	Power hal.PowerControl

	// PowerDevice overrides the power-domain identifier. Zero selects
	// PowerDeviceUSB.
	PowerDevice uint32
}

// Controller drives a DWC2 core in polled host mode.
//
// It implements [hal.HostController]. A Controller is not safe for
// concurrent use; nothing else may touch the core's registers while it is
// in use.
type Controller struct {
	base  uintptr
	mmio  hal.MMIO
	clk   hal.Clock
	power hal.PowerControl
	pwrID uint32

	port  PortState
	speed hal.Speed
}

// New creates a controller driver for the core described by cfg.
func New(cfg Config) *Controller {
	id := cfg.PowerDevice
	if id == 0 {
		id = PowerDeviceUSB
	}
	return &Controller{
		base:  cfg.Base,
		mmio:  cfg.MMIO,
		clk:   cfg.Clock,
		power: cfg.Power,
		pwrID: id,
	}
}

var _ hal.HostController = (*Controller)(nil)

func (c *Controller) read(reg uintptr) uint32 {
	return c.mmio.Read32(c.base + reg)
}

func (c *Controller) write(reg uintptr, v uint32) {
	pkg.LogTrace(pkg.ComponentController, "write", "reg", reg, "value", v)
	c.mmio.Write32(c.base+reg, v)
}

// setBits and clearBits are for registers without write-1-to-clear fields.
func (c *Controller) setBits(reg uintptr, bits uint32) {
	c.write(reg, c.read(reg)|bits)
}

func (c *Controller) clearBits(reg uintptr, bits uint32) {
	c.write(reg, c.read(reg)&^bits)
}

func (c *Controller) waitFor(timeout time.Duration, cond func() bool) error {
	return hal.PollUntil(c.clk, timeout, cond)
}

// BringUp powers the core, resets it into host mode, partitions its FIFO
// RAM, arms every channel and powers the root port.
//
// The only fatal condition is a core identification mismatch, reported as
// [pkg.ErrHardwareAbsent]. Every other wait that expires is logged and the
// sequence continues, leaving later stages to fail if the core is truly
// unresponsive.
func (c *Controller) BringUp() error {
	c.powerOn()

	id := c.read(regGSNPSID)
	if id&coreIDMask != coreIDSignature {
		return fmt.Errorf("%w: core id %#08x", pkg.ErrHardwareAbsent, id)
	}
	pkg.LogInfo(pkg.ComponentController, "core identified",
		"id", fmt.Sprintf("%#08x", id),
		"hwcfg2", fmt.Sprintf("%#08x", c.read(regGHWCFG2)))

	// Quiesce before reset.
	c.write(regGINTMSK, 0)
	c.clearBits(regGAHBCFG, uint32(ahbGlobalIntr|ahbDMAEnable))

	if err := c.waitFor(ahbIdleTimeout, func() bool {
		return resetCtl(c.read(regGRSTCTL))&rstAHBIdle != 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentController, "AHB master not idle before reset", "error", err)
	}

	c.write(regGRSTCTL, uint32(rstCoreSoft))
	if err := c.waitFor(softResetTimeout, func() bool {
		return resetCtl(c.read(regGRSTCTL))&rstCoreSoft == 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentController, "core soft reset did not self-clear", "error", err)
	}
	c.mmio.Barrier()

	c.write(regPCGCCTL, 0)

	cfg := usbCfg(c.read(regGUSBCFG))
	cfg &^= usbForceDevice | usbPHYWidthMask | usbPHYSelect
	cfg |= usbForceHost
	c.write(regGUSBCFG, uint32(cfg))
	if err := c.waitFor(hostModeTimeout, func() bool {
		return coreInt(c.read(regGINTSTS))&intCurrentModeHost != 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentController, "host mode not confirmed, continuing", "error", err)
	}

	c.sizeFIFOs()
	c.flushTxFIFO()
	c.flushRxFIFO()

	c.write(regHCFG, hcfgFSLSClk48MHz)
	c.write(regHFIR, frameInterval48)

	for ch := uint8(0); ch < NumChannels; ch++ {
		c.DisableChannel(ch)
		c.write(hcReg(ch, regHCINTMSK), uint32(chTerminal))
	}
	c.write(regHAINTMSK, 1<<NumChannels-1)

	// Latch status bits; nothing services the interrupt line.
	c.write(regGINTSTS, 0xFFFFFFFF)
	c.write(regGINTMSK, uint32(intPort|intChannel|intRxFIFOLevel))
	c.setBits(regGAHBCFG, uint32(ahbGlobalIntr))

	c.updatePort(portPower, 0, 0)
	c.mmio.Barrier()

	pkg.LogInfo(pkg.ComponentController, "controller ready", "channels", NumChannels)
	return nil
}

// powerOn requests controller power through the platform side channel.
// A missing acknowledgement is tolerated: the core may already be powered.
func (c *Controller) powerOn() {
	if c.power == nil {
		return
	}
	if !c.power.SetPower(c.pwrID, true) {
		pkg.LogWarn(pkg.ComponentController, "power request not acknowledged", "device", c.pwrID)
	}
	c.clk.Delay(uint32(powerSettleDelay / time.Microsecond))
}

// sizeFIFOs partitions FIFO RAM into receive, non-periodic transmit and
// periodic transmit regions, in that order.
func (c *Controller) sizeFIFOs() {
	c.write(regGRXFSIZ, rxFIFOWords)
	c.write(regGNPTXFSIZ, nptxFIFOWords<<16|rxFIFOWords)
	c.write(regHPTXFSIZ, ptxFIFOWords<<16|(rxFIFOWords+nptxFIFOWords))
}

func (c *Controller) flushTxFIFO() {
	c.write(regGRSTCTL, uint32(rstTxFlush|rstTxFIFOAll))
	if err := c.waitFor(fifoFlushTimeout, func() bool {
		return resetCtl(c.read(regGRSTCTL))&rstTxFlush == 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentController, "transmit FIFO flush timed out", "error", err)
	}
}

func (c *Controller) flushRxFIFO() {
	c.write(regGRSTCTL, uint32(rstRxFlush))
	if err := c.waitFor(fifoFlushTimeout, func() bool {
		return resetCtl(c.read(regGRSTCTL))&rstRxFlush == 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentController, "receive FIFO flush timed out", "error", err)
	}
}
