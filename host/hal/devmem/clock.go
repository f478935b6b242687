package devmem

import (
	"time"

	"github.com/ardnew/dwc2usb/host/hal"
)

// spinLimit is the longest delay served by spinning instead of sleeping.
const spinLimit = 50 * time.Microsecond

// Clock is a monotonic microsecond clock started at creation.
type Clock struct {
	start time.Time
}

var _ hal.Clock = (*Clock)(nil)

// NewClock returns a clock reading zero now.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Micros implements [hal.Clock].
func (c *Clock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// Delay implements [hal.Clock]. Short delays spin since the scheduler
// cannot wake a sleeper that precisely.
func (c *Clock) Delay(us uint32) {
	d := time.Duration(us) * time.Microsecond
	if d > spinLimit {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
