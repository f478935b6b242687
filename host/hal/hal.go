package hal

import (
	"time"

	"github.com/ardnew/dwc2usb/pkg"
)

// MMIO provides 32-bit access to memory-mapped controller registers.
//
// Implementations must not reorder accesses to the same address, and Barrier
// must order every preceding access before every following one.
type MMIO interface {
	Read32(addr uintptr) uint32
	Write32(addr uintptr, value uint32)
	Barrier()
}

// Clock is a monotonic microsecond time source.
//
// Micros wraps around at 2^32; consumers compute elapsed time with unsigned
// subtraction.
type Clock interface {
	Micros() uint32
	Delay(us uint32)
}

// PowerControl is the platform side channel used to power peripherals.
//
// SetPower is best effort: it returns false when the platform did not
// acknowledge the request, which callers may treat as non-fatal.
type PowerControl interface {
	SetPower(device uint32, on bool) bool
}

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// Direction is the data direction of a transfer, from the host's view.
type Direction uint8

// Transfer directions.
const (
	DirectionOut Direction = 0 // Host to device
	DirectionIn  Direction = 1 // Device to host
)

// String returns "IN" or "OUT".
func (d Direction) String() string {
	if d == DirectionIn {
		return "IN"
	}
	return "OUT"
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// EndpointType indicates the USB transfer type of an endpoint.
type EndpointType uint8

// Endpoint type constants (bmAttributes bits 1:0).
const (
	EndpointControl     EndpointType = 0
	EndpointIsochronous EndpointType = 1
	EndpointBulk        EndpointType = 2
	EndpointInterrupt   EndpointType = 3
)

// String returns the transfer type name.
func (t EndpointType) String() string {
	switch t {
	case EndpointControl:
		return "control"
	case EndpointIsochronous:
		return "isochronous"
	case EndpointBulk:
		return "bulk"
	case EndpointInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// PID is the packet identifier used for the data packet of a transaction.
type PID uint8

// Packet identifiers understood by host controllers.
const (
	PIDData0 PID = iota
	PIDData1
	PIDSetup
)

// String returns the PID name.
func (p PID) String() string {
	switch p {
	case PIDData0:
		return "DATA0"
	case PIDData1:
		return "DATA1"
	case PIDSetup:
		return "SETUP"
	default:
		return "unknown"
	}
}

// Toggle returns the next data PID in the DATA0/DATA1 sequence.
// SETUP toggles to DATA1, the first data packet after a setup stage.
func (p PID) Toggle() PID {
	if p == PIDData1 {
		return PIDData0
	}
	return PIDData1
}

// Channel indexes of the fixed channel assignment.
const (
	ChannelControl   uint8 = 0 // Control transfers on endpoint 0
	ChannelInterrupt uint8 = 1 // Periodic interrupt-IN polling
)

// Request binds a logical endpoint to a hardware channel for exactly one
// packet-level transfer.
type Request struct {
	Channel   uint8        // Hardware channel index
	Address   uint8        // Device address (0-127)
	Endpoint  uint8        // Endpoint number (0-15)
	Direction Direction    // Data direction
	Type      EndpointType // Transfer type
	PID       PID          // Data PID for this packet
	MaxPacket uint16       // Endpoint max packet size
	Speed     Speed        // Negotiated device speed
}

// HostController defines the packet-level contract a host controller driver
// provides to the host protocol layers.
//
// The contract is strictly polled and single-threaded: every method runs to
// completion before returning and every wait inside it is bounded.
type HostController interface {
	// BringUp powers and initializes the controller and powers the root port.
	// It fails only when the controller cannot be identified.
	BringUp() error

	// WaitForConnection polls for a device on the root port.
	WaitForConnection(timeout time.Duration) bool

	// ResetPort drives a bus reset and returns the negotiated speed.
	ResetPort() (Speed, error)

	// Execute performs one packet-level transfer and never retries.
	// For OUT transfers at most min(len(buf), MaxPacket) bytes are sent; for
	// IN transfers at most len(buf) bytes are stored. The returned count is
	// the number of bytes moved.
	Execute(req Request, buf []byte) (pkg.Outcome, int)
}
