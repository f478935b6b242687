// Package hid decodes input reports from Xbox 360 style wired gamepads.
package hid

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ardnew/dwc2usb/pkg"
)

// ReportSize is the size of an input report in bytes.
const ReportSize = 20

// Button bitmasks (XInput layout).
const (
	ButtonDPadUp    = 0x0001
	ButtonDPadDown  = 0x0002
	ButtonDPadLeft  = 0x0004
	ButtonDPadRight = 0x0008
	ButtonStart     = 0x0010
	ButtonBack      = 0x0020
	ButtonLThumb    = 0x0040 // Left stick press
	ButtonRThumb    = 0x0080 // Right stick press
	ButtonLShoulder = 0x0100 // Left bumper
	ButtonRShoulder = 0x0200 // Right bumper
	ButtonGuide     = 0x0400 // Center logo
	ButtonA         = 0x1000
	ButtonB         = 0x2000
	ButtonX         = 0x4000
	ButtonY         = 0x8000
)

var buttonNames = []struct {
	mask uint16
	name string
}{
	{ButtonDPadUp, "up"},
	{ButtonDPadDown, "down"},
	{ButtonDPadLeft, "left"},
	{ButtonDPadRight, "right"},
	{ButtonStart, "start"},
	{ButtonBack, "back"},
	{ButtonLThumb, "lthumb"},
	{ButtonRThumb, "rthumb"},
	{ButtonLShoulder, "lb"},
	{ButtonRShoulder, "rb"},
	{ButtonGuide, "guide"},
	{ButtonA, "a"},
	{ButtonB, "b"},
	{ButtonX, "x"},
	{ButtonY, "y"},
}

// InputReport is the 20-byte report delivered on the interrupt IN endpoint.
//
// Layout, little-endian:
//
//	 0: report id
//	 1: report length (0x14)
//	 2-3: button mask
//	 4: left trigger
//	 5: right trigger
//	 6-13: LX, LY, RX, RY (int16)
//	14-19: reserved
type InputReport struct {
	ReportID uint8
	Length   uint8
	Buttons  uint16
	LT, RT   uint8
	LX, LY   int16
	RX, RY   int16
	Reserved [6]byte
}

// UnmarshalBinary decodes a report. A buffer shorter than [ReportSize] is
// rejected with [pkg.ErrInvalidParameter].
func (r *InputReport) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return fmt.Errorf("%w: input report is %d bytes, want %d",
			pkg.ErrInvalidParameter, len(data), ReportSize)
	}
	r.ReportID = data[0]
	r.Length = data[1]
	r.Buttons = binary.LittleEndian.Uint16(data[2:4])
	r.LT = data[4]
	r.RT = data[5]
	r.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	r.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	r.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	r.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	copy(r.Reserved[:], data[14:20])
	return nil
}

// MarshalBinary encodes the report. A zero Length is written as
// [ReportSize].
func (r *InputReport) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	b[0] = r.ReportID
	b[1] = r.Length
	if b[1] == 0 {
		b[1] = ReportSize
	}
	binary.LittleEndian.PutUint16(b[2:4], r.Buttons)
	b[4] = r.LT
	b[5] = r.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(r.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(r.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(r.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(r.RY))
	copy(b[14:20], r.Reserved[:])
	return b, nil
}

// Pressed reports whether every button in mask is held.
func (r *InputReport) Pressed(mask uint16) bool {
	return mask != 0 && r.Buttons&mask == mask
}

// ButtonNames returns the names of the held buttons in mask order.
func (r *InputReport) ButtonNames() []string {
	var names []string
	for _, b := range buttonNames {
		if r.Buttons&b.mask != 0 {
			names = append(names, b.name)
		}
	}
	return names
}

// ParseButtons converts a list of button names into a mask. Names are
// matched case-insensitively.
func ParseButtons(names []string) (uint16, error) {
	var mask uint16
	for _, n := range names {
		found := false
		for _, b := range buttonNames {
			if strings.EqualFold(n, b.name) {
				mask |= b.mask
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown button %q", pkg.ErrInvalidParameter, n)
		}
	}
	return mask, nil
}
