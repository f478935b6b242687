package sim

import "time"

// Clock is a simulated microsecond clock. It advances only through Delay
// and Advance.
type Clock struct {
	now uint64
}

// NewClock returns a clock whose counter starts at start. A start close to
// 2^32 exercises counter wraparound.
func NewClock(start uint32) *Clock {
	return &Clock{now: uint64(start)}
}

// Micros returns the low 32 bits of the counter.
func (c *Clock) Micros() uint32 {
	return uint32(c.now)
}

// Delay advances the clock by us microseconds.
func (c *Clock) Delay(us uint32) {
	c.now += uint64(us)
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	if d > 0 {
		c.now += uint64(d / time.Microsecond)
	}
}

// Elapsed returns the total simulated time, without wraparound.
func (c *Clock) Elapsed() time.Duration {
	return time.Duration(c.now) * time.Microsecond
}

// PowerCall records one power request.
type PowerCall struct {
	Device uint32
	On     bool
}

// Power records power requests and answers them with Ack.
type Power struct {
	Ack   bool
	Calls []PowerCall
}

// SetPower implements [hal.PowerControl].
func (p *Power) SetPower(device uint32, on bool) bool {
	p.Calls = append(p.Calls, PowerCall{Device: device, On: on})
	return p.Ack
}
