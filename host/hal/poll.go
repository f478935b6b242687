package hal

import (
	"time"

	"github.com/ardnew/dwc2usb/pkg"
)

// PollInterval is the delay between successive condition checks in PollUntil.
const PollInterval = 1 // microseconds

// PollUntil evaluates cond until it returns true or timeout elapses on clk.
//
// The wait is bounded twice: by elapsed time on clk and by the number of
// iterations the timeout allows at [PollInterval], so a clock that stops
// advancing still terminates. The condition is always evaluated at least
// once. Returns [pkg.ErrTimeout] if cond never held.
func PollUntil(clk Clock, timeout time.Duration, cond func() bool) error {
	limit := uint32(timeout / time.Microsecond)
	start := clk.Micros()
	for i := uint32(0); ; i++ {
		if cond() {
			return nil
		}
		if clk.Micros()-start >= limit || i >= limit/PollInterval {
			return pkg.ErrTimeout
		}
		clk.Delay(PollInterval)
	}
}
