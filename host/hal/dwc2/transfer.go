package dwc2

import (
	"time"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// Transfer engine timing.
const (
	frameSyncTimeout = 2 * time.Millisecond
	txSpaceTimeout   = 10 * time.Millisecond
	transferTimeout  = 50 * time.Millisecond
)

// hardwarePID maps a data PID to its HCTSIZ encoding.
func hardwarePID(p hal.PID) chanSize {
	switch p {
	case hal.PIDData1:
		return pidHardwareData1
	case hal.PIDSetup:
		return pidHardwareSetup
	default:
		return pidHardwareData0
	}
}

// characteristics builds the HCCHAR value for req, without the enable bit.
func characteristics(req hal.Request) chanChar {
	char := chanChar(req.MaxPacket) & charMaxPacketMask
	char |= chanChar(req.Endpoint&0xF) << charEndpointShift
	char |= chanChar(req.Type&3) << charTypeShift
	char |= 1 << charMultiCntShift
	char |= chanChar(req.Address&0x7F) << charAddressShift
	if req.Direction == hal.DirectionIn {
		char |= charDirIn
	}
	if req.Speed == hal.SpeedLow {
		char |= charLowSpeed
	}
	return char
}

// classify maps terminal channel status to a transfer outcome.
func classify(st chanInt) pkg.Outcome {
	switch {
	case st&chXferComplete != 0:
		return pkg.OutcomeSuccess
	case st&chStall != 0:
		return pkg.OutcomeStall
	case st&chNak != 0:
		return pkg.OutcomeNak
	case st&chErrors != 0:
		return pkg.OutcomeHardwareError
	default:
		// Halted with no other cause.
		return pkg.OutcomeHardwareError
	}
}

// Execute performs one packet-level transfer described by req.
//
// IN transfers always request one full max-packet and store at most len(buf)
// bytes; OUT transfers send min(len(buf), req.MaxPacket) bytes. Execute never
// retries: a NAK is returned to the caller as [pkg.OutcomeNak].
func (c *Controller) Execute(req hal.Request, buf []byte) (pkg.Outcome, int) {
	if req.Channel >= NumChannels || req.MaxPacket == 0 {
		pkg.LogWarn(pkg.ComponentTransfer, "invalid request",
			"channel", req.Channel, "maxPacket", req.MaxPacket)
		return pkg.OutcomeHardwareError, 0
	}
	ch := req.Channel

	c.DisableChannel(ch)

	if req.Type == hal.EndpointControl {
		c.waitFrameBoundary()
	}

	size := int(req.MaxPacket)
	if req.Direction == hal.DirectionOut {
		size = min(len(buf), int(req.MaxPacket))
	}

	char := characteristics(req)
	tsiz := chanSize(size)&sizeXferMask |
		1<<sizePacketShift |
		hardwarePID(req.PID)<<sizePIDShift

	c.write(hcReg(ch, regHCSPLT), 0)
	c.write(hcReg(ch, regHCCHAR), uint32(char))
	c.write(hcReg(ch, regHCTSIZ), uint32(tsiz))

	if req.Direction == hal.DirectionOut && size > 0 {
		words := (size + 3) / 4
		status := regGNPTXSTS
		if req.Type == hal.EndpointInterrupt {
			status = regHPTXSTS
		}
		if err := c.waitFor(txSpaceTimeout, func() bool {
			return fifoStatus(c.read(status)).spaceWords() >= words
		}); err != nil {
			pkg.LogDebug(pkg.ComponentTransfer, "transmit FIFO full", "channel", ch)
			return pkg.OutcomeTimeout, 0
		}
	}

	c.mmio.Barrier()
	c.write(hcReg(ch, regHCCHAR), uint32(char|charEnable))

	if req.Direction == hal.DirectionOut {
		c.pushFIFO(ch, buf[:size])
	}

	var st chanInt
	if err := c.waitFor(transferTimeout, func() bool {
		st = chanInt(c.read(hcReg(ch, regHCINT)))
		return st&chTerminal != 0
	}); err != nil {
		pkg.LogDebug(pkg.ComponentTransfer, "transfer timed out",
			"channel", ch, "endpoint", req.Endpoint, "dir", req.Direction.String())
		return pkg.OutcomeTimeout, 0
	}

	outcome := classify(st)
	n := 0
	if outcome == pkg.OutcomeSuccess {
		if req.Direction == hal.DirectionIn {
			n = c.popFIFO(ch, buf)
		} else {
			n = size
		}
	}

	// Terminal bits must not leak into the next transfer.
	c.write(hcReg(ch, regHCINT), uint32(st&chAll))

	pkg.LogDebug(pkg.ComponentTransfer, "transfer",
		"channel", ch,
		"addr", req.Address,
		"endpoint", req.Endpoint,
		"dir", req.Direction.String(),
		"pid", req.PID.String(),
		"outcome", outcome.String(),
		"bytes", n)
	return outcome, n
}

// waitFrameBoundary waits for the frame number to advance so a control
// transaction starts at the beginning of a frame. Slow devices are less
// likely to miss a SETUP issued this way. Expiry is not an error.
func (c *Controller) waitFrameBoundary() {
	frame := c.read(regHFNUM) & 0xFFFF
	_ = c.waitFor(frameSyncTimeout, func() bool {
		return c.read(regHFNUM)&0xFFFF != frame
	})
}

// pushFIFO writes data into the channel's FIFO window one word at a time,
// zero-padding the final partial word.
func (c *Controller) pushFIFO(ch uint8, data []byte) {
	addr := c.base + fifoReg(ch)
	for off := 0; off < len(data); off += 4 {
		var w uint32
		for b := 0; b < 4 && off+b < len(data); b++ {
			w |= uint32(data[off+b]) << (8 * b)
		}
		c.mmio.Write32(addr, w)
	}
}

// popFIFO drains receive status entries and copies the IN data addressed to
// ch into buf. Every word of an entry is read from the FIFO, even when buf
// is shorter, so the FIFO stays aligned. Returns the bytes stored.
func (c *Controller) popFIFO(ch uint8, buf []byte) int {
	n := 0
	for i := 0; i < rxStatusDrainSize; i++ {
		if coreInt(c.read(regGINTSTS))&intRxFIFOLevel == 0 {
			break
		}
		st := rxStatus(c.read(regGRXSTSP))
		if st.packetStatus() != rxPktInData {
			continue
		}
		count := st.byteCount()
		addr := c.base + fifoReg(st.channel())
		for off := 0; off < count; off += 4 {
			w := c.mmio.Read32(addr)
			if st.channel() != ch {
				continue
			}
			for b := 0; b < 4 && off+b < count; b++ {
				if n < len(buf) {
					buf[n] = byte(w >> (8 * b))
					n++
				}
			}
		}
	}
	return n
}
