package pkg

import "errors"

// Host stack errors.
var (
	// ErrHardwareAbsent indicates the controller identification register does
	// not carry the expected core signature.
	ErrHardwareAbsent = errors.New("controller not present")

	// ErrTimeout indicates a bounded poll expired.
	ErrTimeout = errors.New("timeout")

	// ErrNAK indicates a NAK response (device not ready).
	ErrNAK = errors.New("NAK received")

	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrHardware indicates a transaction or bus error reported by the controller.
	ErrHardware = errors.New("hardware error")

	// ErrMalformedDescriptor indicates a descriptor that is short, truncated
	// or missing a required entry.
	ErrMalformedDescriptor = errors.New("malformed descriptor")

	// ErrNotConnected indicates no device is attached to the root port.
	ErrNotConnected = errors.New("device not connected")

	// ErrNotEnumerated indicates the operation requires an enumerated device.
	ErrNotEnumerated = errors.New("device not enumerated")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Outcome is the result of a single packet-level transfer.
type Outcome uint8

// Transfer outcomes.
const (
	OutcomeSuccess       Outcome = iota // Transfer completed
	OutcomeNak                          // Device not ready, retryable
	OutcomeStall                        // Endpoint refused the request
	OutcomeHardwareError                // Transaction, babble, AHB or toggle error
	OutcomeTimeout                      // No terminal status within the poll bound
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNak:
		return "nak"
	case OutcomeStall:
		return "stall"
	case OutcomeHardwareError:
		return "hardware error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error for the outcome, or nil on success.
func (o Outcome) Err() error {
	switch o {
	case OutcomeSuccess:
		return nil
	case OutcomeNak:
		return ErrNAK
	case OutcomeStall:
		return ErrStall
	case OutcomeTimeout:
		return ErrTimeout
	default:
		return ErrHardware
	}
}

// Retryable reports whether the outcome may succeed if the same packet is
// issued again.
func (o Outcome) Retryable() bool {
	return o == OutcomeNak
}

// OutcomeOf maps an error produced by the host stack back to an outcome.
// Errors that do not wrap a transfer sentinel map to [OutcomeHardwareError].
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNAK):
		return OutcomeNak
	case errors.Is(err, ErrStall):
		return OutcomeStall
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	default:
		return OutcomeHardwareError
	}
}
