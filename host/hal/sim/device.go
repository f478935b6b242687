package sim

import (
	"fmt"

	"github.com/ardnew/dwc2usb/host/hal"
)

// Response is a device's handshake to one transaction.
type Response uint8

// Device handshakes.
const (
	ResponseAck     Response = iota // Data accepted or delivered
	ResponseNak                     // Not ready, try again
	ResponseStall                   // Request or endpoint halted
	ResponseError                   // Corrupted packet, reported as a transaction error
	ResponseSilence                 // No handshake at all; the channel never completes
)

// String returns the handshake name.
func (r Response) String() string {
	switch r {
	case ResponseAck:
		return "ack"
	case ResponseNak:
		return "nak"
	case ResponseStall:
		return "stall"
	case ResponseError:
		return "error"
	case ResponseSilence:
		return "silence"
	default:
		return fmt.Sprintf("response(%d)", r)
	}
}

// ParseResponse parses a handshake name as produced by String.
func ParseResponse(s string) (Response, error) {
	for r := ResponseAck; r <= ResponseSilence; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown response %q", s)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (r *Response) UnmarshalText(text []byte) error {
	v, err := ParseResponse(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Device is the packet-level behaviour of a USB device.
//
// The core calls exactly one method per transaction and only when the
// transaction is addressed to Address on an enabled port.
type Device interface {
	// Speed is the speed the device signals during reset.
	Speed() hal.Speed

	// Address is the bus address the device currently answers to.
	Address() uint8

	// Reset returns the device to its default state at address 0.
	Reset()

	// Setup receives an 8-byte SETUP packet on endpoint 0.
	Setup(data []byte) Response

	// In asks for at most maxPacket bytes from endpoint ep. pid is the data
	// PID the host expects.
	In(ep uint8, pid hal.PID, maxPacket int) (Response, []byte)

	// Out delivers data to endpoint ep with the given data PID.
	Out(ep uint8, pid hal.PID, data []byte) Response
}
