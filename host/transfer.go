package host

import (
	"fmt"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hid"
	"github.com/ardnew/dwc2usb/pkg"
)

// Control transfer stages, used in error messages.
const (
	stageSetup  = "setup"
	stageData   = "data"
	stageStatus = "status"
)

// transact executes one packet, retrying on NAK.
func (h *Host) transact(req hal.Request, buf []byte) (int, error) {
	for attempt := 0; ; attempt++ {
		outcome, n := h.ctrl.Execute(req, buf)
		switch {
		case outcome == pkg.OutcomeSuccess:
			return n, nil
		case outcome.Retryable() && attempt < controlRetries:
			h.clk.Delay(uint32(retryDelay.Microseconds()))
		default:
			return 0, outcome.Err()
		}
	}
}

// ControlTransfer performs a control transfer on endpoint 0 of the device
// at the current context address.
//
// A nil data skips the data stage; otherwise data must hold at least
// setup.Length bytes. The data stage starts with DATA1 and toggles after
// every packet; a short IN packet ends it early. The status stage is a
// zero-length DATA1 packet in the opposite direction, or IN when there is
// no data stage. Returns the number of bytes moved in the data stage.
func (h *Host) ControlTransfer(setup hal.SetupPacket, data []byte) (int, error) {
	want := int(setup.Length)
	if data == nil {
		want = 0
	}
	if len(data) < want {
		return 0, fmt.Errorf("%w: buffer of %d bytes for %d byte request",
			pkg.ErrInvalidParameter, len(data), want)
	}

	var raw [hal.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	if _, err := h.transact(h.ctx.controlRequest(hal.DirectionOut, hal.PIDSetup), raw[:]); err != nil {
		return 0, fmt.Errorf("%s stage: %w", stageSetup, err)
	}

	dir := setup.Direction()
	done := 0
	if want > 0 {
		mps := int(h.ctx.ControlMaxPacket)
		pid := hal.PIDData1
		for done < want {
			chunk := data[done:min(done+mps, want)]
			n, err := h.transact(h.ctx.controlRequest(dir, pid), chunk)
			if err != nil {
				return done, fmt.Errorf("%s stage: %w", stageData, err)
			}
			done += n
			pid = pid.Toggle()
			if n == 0 || (dir == hal.DirectionIn && n < mps) {
				break
			}
		}
	}

	status := hal.DirectionIn
	if want > 0 {
		status = dir.Opposite()
	}
	if _, err := h.transact(h.ctx.controlRequest(status, hal.PIDData1), nil); err != nil {
		return done, fmt.Errorf("%s stage: %w", stageStatus, err)
	}

	pkg.LogDebug(pkg.ComponentControl, "control transfer",
		"addr", h.ctx.Address,
		"request", setup.Request,
		"value", setup.Value,
		"length", setup.Length,
		"bytes", done)
	return done, nil
}

// ReadInput issues one interrupt IN transaction on the HID endpoint and
// decodes the report into out.
//
// [pkg.ErrNAK] means the device had no new report; out is left untouched
// and the next call may be made on the following frame. The data toggle
// advances only when a report is received.
func (h *Host) ReadInput(out *hid.InputReport) error {
	if !h.ctx.Enumerated || h.ctx.HIDEndpoint == 0 {
		return pkg.ErrNotEnumerated
	}

	var buf [hid.ReportSize]byte
	length := min(hid.ReportSize, int(h.ctx.HIDMaxPacket))
	outcome, n := h.ctrl.Execute(h.ctx.reportRequest(), buf[:length])
	if outcome != pkg.OutcomeSuccess {
		return outcome.Err()
	}
	h.ctx.HIDToggle = h.ctx.HIDToggle.Toggle()

	if n < hid.ReportSize {
		pkg.LogDebug(pkg.ComponentHID, "short report", "bytes", n)
	}
	if err := out.UnmarshalBinary(buf[:]); err != nil {
		return err
	}
	pkg.LogTrace(pkg.ComponentHID, "report", "buttons", out.Buttons,
		"lx", out.LX, "ly", out.LY, "rx", out.RX, "ry", out.RY)
	return nil
}
