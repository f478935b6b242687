package sim

import (
	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// DefaultBase is the register base the simulator answers at by default.
const DefaultBase uintptr = 0x20980000

// DefaultCoreID is the GSNPSID value of the modelled core (release 2.80a).
const DefaultCoreID = 0x4F54280A

// Register offsets.
const (
	regGAHBCFG  uintptr = 0x008
	regGUSBCFG  uintptr = 0x00C
	regGRSTCTL  uintptr = 0x010
	regGINTSTS  uintptr = 0x014
	regGRXSTSR  uintptr = 0x01C
	regGRXSTSP  uintptr = 0x020
	regGNPTXSTS uintptr = 0x02C
	regGSNPSID  uintptr = 0x040
	regGHWCFG2  uintptr = 0x048
	regHFNUM    uintptr = 0x408
	regHPTXSTS  uintptr = 0x410
	regHAINT    uintptr = 0x414
	regHPRT     uintptr = 0x440

	regHCBase   uintptr = 0x500
	hcStride    uintptr = 0x20
	regHCCHAR   uintptr = 0x00
	regHCINT    uintptr = 0x08
	regHCINTMSK uintptr = 0x0C
	regHCTSIZ   uintptr = 0x10

	fifoBase   uintptr = 0x1000
	fifoStride uintptr = 0x1000
)

// numChannels is the number of host channels modelled.
const numChannels = 8

// Register fields.
const (
	usbForceHost = 1 << 29

	rstCoreSoft  = 1 << 0
	rstRxFlush   = 1 << 4
	rstTxFlush   = 1 << 5
	rstAHBIdle   = 1 << 31
	rstSelfClear = rstCoreSoft | rstRxFlush | rstTxFlush

	intCurrentModeHost = 1 << 0
	intRxFIFOLevel     = 1 << 4
	intPort            = 1 << 24
	intChannel         = 1 << 25

	prtConnect           = 1 << 0
	prtConnectChanged    = 1 << 1
	prtEnable            = 1 << 2
	prtEnableChanged     = 1 << 3
	prtOverCurrentChange = 1 << 5
	prtReset             = 1 << 8
	prtPower             = 1 << 12
	prtSpeedShift        = 17

	charEnable  = 1 << 31
	charDisable = 1 << 30
	charDirIn   = 1 << 15

	hcXferComplete = 1 << 0
	hcHalted       = 1 << 1
	hcStall        = 1 << 3
	hcNak          = 1 << 4
	hcAck          = 1 << 5
	hcXactError    = 1 << 7
	hcBabble       = 1 << 8

	pktInData     = 2
	pktInComplete = 3

	// hwcfg2 advertises a slave-mode core with eight host channels.
	hwcfg2 = (numChannels - 1) << 14
)

// fifoWords is the free space the transmit FIFOs always report.
const fifoWords = 256

// Options configures a Core.
type Options struct {
	// Base is the register base. Zero selects DefaultBase.
	Base uintptr

	// CoreID is reported by GSNPSID. Zero selects DefaultCoreID.
	CoreID uint32

	// HostModeStuck keeps GINTSTS reporting device mode after the driver
	// forces host mode.
	HostModeStuck bool

	// TxFIFOFull makes both transmit FIFOs report no free space.
	TxFIFOFull bool
}

// Stats counts notable driver interactions.
type Stats struct {
	SoftResets   int // Core soft resets requested
	PortDisables int // Writes that cleared the port enable bit
	PortResets   int // Completed bus resets
	Transactions int // Transactions issued to the bus
	Barriers     int // Barrier calls
}

type channel struct {
	char   uint32
	tsiz   uint32
	intr   uint32
	mask   uint32
	tx     []uint32
	queued bool
}

type rxEntry struct {
	status uint32
	words  []uint32
}

type portState struct {
	power      bool
	reset      bool
	enabled    bool
	connChange bool
	enChange   bool
}

// Core is a register-level DWC2 host core.
//
// Core is not safe for concurrent use, matching the single-threaded driver
// it serves.
type Core struct {
	base  uintptr
	opts  Options
	clk   *Clock
	regs  map[uintptr]uint32
	dev   Device
	port  portState
	ch    [numChannels]channel
	rx    []rxEntry
	cur   []uint32
	stats Stats
}

var _ hal.MMIO = (*Core)(nil)

// NewCore creates a core timed by clk with no device attached.
func NewCore(clk *Clock, opts Options) *Core {
	if opts.Base == 0 {
		opts.Base = DefaultBase
	}
	if opts.CoreID == 0 {
		opts.CoreID = DefaultCoreID
	}
	return &Core{
		base: opts.Base,
		opts: opts,
		clk:  clk,
		regs: make(map[uintptr]uint32),
	}
}

// Base returns the register base address.
func (c *Core) Base() uintptr { return c.base }

// Stats returns the interaction counters.
func (c *Core) Stats() Stats { return c.stats }

// Attach connects dev to the root port.
func (c *Core) Attach(dev Device) {
	c.dev = dev
	c.port.connChange = true
	pkg.LogDebug(pkg.ComponentSim, "device attached", "speed", dev.Speed().String())
}

// Detach disconnects the device, disabling the port.
func (c *Core) Detach() {
	if c.dev == nil {
		return
	}
	c.dev = nil
	c.port.connChange = true
	if c.port.enabled {
		c.port.enabled = false
		c.port.enChange = true
	}
	pkg.LogDebug(pkg.ComponentSim, "device detached")
}

// PortEnabled reports whether the root port is enabled.
func (c *Core) PortEnabled() bool { return c.port.enabled }

// PortPowered reports whether root port power is on.
func (c *Core) PortPowered() bool { return c.port.power }

// Barrier implements [hal.MMIO].
func (c *Core) Barrier() { c.stats.Barriers++ }

// Read32 implements [hal.MMIO].
func (c *Core) Read32(addr uintptr) uint32 {
	off := addr - c.base
	switch {
	case off >= fifoBase && off < fifoBase+numChannels*fifoStride:
		return c.popWord()
	case off >= regHCBase && off < regHCBase+numChannels*hcStride:
		return c.readChannel(int((off-regHCBase)/hcStride), (off-regHCBase)%hcStride)
	}

	switch off {
	case regGSNPSID:
		return c.opts.CoreID
	case regGHWCFG2:
		return hwcfg2
	case regGRSTCTL:
		v := c.regs[regGRSTCTL]
		c.regs[regGRSTCTL] = v &^ rstSelfClear
		return v | rstAHBIdle
	case regGINTSTS:
		return c.coreInterrupts()
	case regGRXSTSR:
		if len(c.rx) == 0 {
			return 0
		}
		return c.rx[0].status
	case regGRXSTSP:
		if len(c.rx) == 0 {
			return 0
		}
		e := c.rx[0]
		c.rx = c.rx[1:]
		c.cur = e.words
		return e.status
	case regGNPTXSTS, regHPTXSTS:
		if c.opts.TxFIFOFull {
			return 8 << 16
		}
		return 8<<16 | fifoWords
	case regHFNUM:
		frame := uint32(c.clk.Elapsed().Milliseconds()) & 0x3FFF
		return frame
	case regHAINT:
		var v uint32
		for i := range c.ch {
			if c.ch[i].intr != 0 {
				v |= 1 << i
			}
		}
		return v
	case regHPRT:
		return c.portStatus()
	default:
		return c.regs[off]
	}
}

// Write32 implements [hal.MMIO].
func (c *Core) Write32(addr uintptr, v uint32) {
	off := addr - c.base
	switch {
	case off >= fifoBase && off < fifoBase+numChannels*fifoStride:
		n := int((off - fifoBase) / fifoStride)
		c.ch[n].tx = append(c.ch[n].tx, v)
		return
	case off >= regHCBase && off < regHCBase+numChannels*hcStride:
		c.writeChannel(int((off-regHCBase)/hcStride), (off-regHCBase)%hcStride, v)
		return
	}

	switch off {
	case regGRSTCTL:
		if v&rstCoreSoft != 0 {
			c.softReset()
		}
		if v&rstRxFlush != 0 {
			c.rx = nil
			c.cur = nil
		}
		if v&rstTxFlush != 0 {
			for i := range c.ch {
				c.ch[i].tx = nil
			}
		}
		c.regs[regGRSTCTL] = v
	case regGINTSTS:
		c.regs[regGINTSTS] &^= v
	case regHPRT:
		c.writePort(v)
	default:
		c.regs[off] = v
	}
}

// softReset clears the core registers but not the root port.
func (c *Core) softReset() {
	c.stats.SoftResets++
	c.regs = make(map[uintptr]uint32)
	c.ch = [numChannels]channel{}
	c.rx = nil
	c.cur = nil
}

func (c *Core) coreInterrupts() uint32 {
	v := c.regs[regGINTSTS]
	if c.regs[regGUSBCFG]&usbForceHost != 0 && !c.opts.HostModeStuck {
		v |= intCurrentModeHost
	}
	if len(c.rx) > 0 {
		v |= intRxFIFOLevel
	}
	if c.port.connChange || c.port.enChange {
		v |= intPort
	}
	for i := range c.ch {
		if c.ch[i].intr&c.ch[i].mask != 0 {
			v |= intChannel
			break
		}
	}
	return v
}

func (c *Core) portStatus() uint32 {
	var v uint32
	if c.dev != nil && c.port.power {
		v |= prtConnect
		switch c.dev.Speed() {
		case hal.SpeedHigh:
		case hal.SpeedLow:
			v |= 2 << prtSpeedShift
		default:
			v |= 1 << prtSpeedShift
		}
	}
	if c.port.connChange {
		v |= prtConnectChanged
	}
	if c.port.enabled {
		v |= prtEnable
	}
	if c.port.enChange {
		v |= prtEnableChanged
	}
	if c.port.reset {
		v |= prtReset
	}
	if c.port.power {
		v |= prtPower
	}
	return v
}

func (c *Core) writePort(v uint32) {
	if v&prtConnectChanged != 0 {
		c.port.connChange = false
	}
	if v&prtEnableChanged != 0 {
		c.port.enChange = false
	}
	if v&prtEnable != 0 && c.port.enabled {
		c.port.enabled = false
		c.port.enChange = true
		c.stats.PortDisables++
		pkg.LogWarn(pkg.ComponentSim, "port disabled by write to enable bit")
	}

	c.port.power = v&prtPower != 0
	if !c.port.power {
		c.port.enabled = false
	}

	reset := v&prtReset != 0
	switch {
	case reset && !c.port.reset:
		c.port.reset = true
		c.port.enabled = false
	case !reset && c.port.reset:
		c.port.reset = false
		if c.dev != nil && c.port.power {
			c.dev.Reset()
			c.port.enabled = true
			c.port.enChange = true
			c.stats.PortResets++
			pkg.LogDebug(pkg.ComponentSim, "bus reset complete")
		}
	}
}

func (c *Core) readChannel(n int, reg uintptr) uint32 {
	ch := &c.ch[n]
	switch reg {
	case regHCCHAR:
		return ch.char
	case regHCINT:
		if ch.queued {
			c.transact(n)
		}
		return ch.intr
	case regHCINTMSK:
		return ch.mask
	case regHCTSIZ:
		return ch.tsiz
	default:
		return c.regs[regHCBase+uintptr(n)*hcStride+reg]
	}
}

func (c *Core) writeChannel(n int, reg uintptr, v uint32) {
	ch := &c.ch[n]
	switch reg {
	case regHCCHAR:
		if v&charDisable != 0 {
			if ch.char&charEnable != 0 {
				ch.char = v &^ (charEnable | charDisable)
				ch.intr |= hcHalted
				ch.queued = false
				ch.tx = nil
			}
			return
		}
		wasEnabled := ch.char&charEnable != 0
		ch.char = v
		if v&charEnable != 0 && !wasEnabled {
			ch.queued = true
			ch.tx = nil
		}
	case regHCINT:
		ch.intr &^= v
	case regHCINTMSK:
		ch.mask = v
	case regHCTSIZ:
		ch.tsiz = v
	default:
		c.regs[regHCBase+uintptr(n)*hcStride+reg] = v
	}
}

// transact runs the transaction programmed on channel n against the
// attached device and latches the result in its interrupt register.
func (c *Core) transact(n int) {
	ch := &c.ch[n]
	ch.queued = false
	c.stats.Transactions++

	maxPacket := int(ch.char & 0x7FF)
	ep := uint8(ch.char>>11) & 0xF
	addr := uint8(ch.char>>22) & 0x7F
	in := ch.char&charDirIn != 0
	size := int(ch.tsiz & 0x7FFFF)

	var pid hal.PID
	switch (ch.tsiz >> 29) & 3 {
	case 2:
		pid = hal.PIDData1
	case 3:
		pid = hal.PIDSetup
	default:
		pid = hal.PIDData0
	}

	resp := ResponseError
	var data []byte
	if c.dev != nil && c.port.enabled && addr == c.dev.Address() {
		switch {
		case pid == hal.PIDSetup:
			resp = c.dev.Setup(unpack(ch.tx, size))
		case in:
			resp, data = c.dev.In(ep, pid, maxPacket)
		default:
			resp = c.dev.Out(ep, pid, unpack(ch.tx, size))
		}
	}
	ch.tx = nil

	pkg.LogTrace(pkg.ComponentSim, "transaction",
		"channel", n, "addr", addr, "endpoint", ep, "in", in,
		"pid", pid.String(), "response", resp.String(), "bytes", len(data))

	switch resp {
	case ResponseAck:
		if in && len(data) > maxPacket {
			ch.intr |= hcBabble | hcHalted
			break
		}
		ch.intr |= hcXferComplete | hcAck | hcHalted
		if in {
			c.rx = append(c.rx,
				rxEntry{status: uint32(n) | uint32(len(data))<<4 | pktInData<<17, words: pack(data)},
				rxEntry{status: uint32(n) | pktInComplete<<17},
			)
		}
	case ResponseNak:
		ch.intr |= hcNak | hcHalted
	case ResponseStall:
		ch.intr |= hcStall | hcHalted
	case ResponseSilence:
		// Channel stays busy until the driver disables it.
		return
	default:
		ch.intr |= hcXactError | hcHalted
	}
	ch.char &^= charEnable
}

func (c *Core) popWord() uint32 {
	if len(c.cur) == 0 {
		return 0
	}
	w := c.cur[0]
	c.cur = c.cur[1:]
	return w
}

// pack splits data into little-endian FIFO words.
func pack(data []byte) []uint32 {
	words := make([]uint32, (len(data)+3)/4)
	for i, b := range data {
		words[i/4] |= uint32(b) << (8 * (i % 4))
	}
	return words
}

// unpack reassembles size bytes from FIFO words. Missing words read as zero.
func unpack(words []uint32, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		if i/4 < len(words) {
			out[i] = byte(words[i/4] >> (8 * (i % 4)))
		}
	}
	return out
}
