package host

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hal/sim"
	"github.com/ardnew/dwc2usb/pkg"
)

// step is one scripted packet. The request it is matched against must
// carry the same direction, PID and address.
type step struct {
	dir     hal.Direction
	pid     hal.PID
	addr    uint8
	outcome pkg.Outcome
	in      []byte
	empty   bool // OUT succeeds without moving data
}

func setupStep() step { return step{dir: hal.DirectionOut, pid: hal.PIDSetup} }

func inStep(pid hal.PID, data ...byte) step {
	return step{dir: hal.DirectionIn, pid: pid, in: data}
}

func outStep(pid hal.PID) step { return step{dir: hal.DirectionOut, pid: pid} }

func statusIn() step  { return inStep(hal.PIDData1) }
func statusOut() step { return outStep(hal.PIDData1) }

func (s step) at(addr uint8) step {
	s.addr = addr
	return s
}

func (s step) sendsNothing() step {
	s.empty = true
	return s
}

func (s step) answer(o pkg.Outcome) step {
	s.outcome = o
	return s
}

// transaction is a packet the mock executed.
type transaction struct {
	req hal.Request
	out []byte
}

// scriptedController plays back a packet script.
type scriptedController struct {
	t         *testing.T
	steps     []step
	log       []transaction
	connected bool
	speed     hal.Speed
	resetErr  error
	resets    []int // log length at each ResetPort
	bringUp   error
}

var _ hal.HostController = (*scriptedController)(nil)

func newScripted(t *testing.T, steps ...step) *scriptedController {
	return &scriptedController{t: t, steps: steps, connected: true, speed: hal.SpeedFull}
}

func (m *scriptedController) BringUp() error { return m.bringUp }

func (m *scriptedController) WaitForConnection(time.Duration) bool { return m.connected }

func (m *scriptedController) ResetPort() (hal.Speed, error) {
	m.resets = append(m.resets, len(m.log))
	if m.resetErr != nil {
		return hal.SpeedUnknown, m.resetErr
	}
	return m.speed, nil
}

func (m *scriptedController) Execute(req hal.Request, buf []byte) (pkg.Outcome, int) {
	i := len(m.log)
	tr := transaction{req: req}
	if req.Direction == hal.DirectionOut {
		tr.out = slices.Clone(buf[:min(len(buf), int(req.MaxPacket))])
	}
	m.log = append(m.log, tr)

	if len(m.steps) == 0 {
		m.t.Errorf("packet %d: unexpected %s %s", i, req.Direction, req.PID)
		return pkg.OutcomeTimeout, 0
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	assert.Equal(m.t, s.dir, req.Direction, "packet %d direction", i)
	assert.Equal(m.t, s.pid, req.PID, "packet %d PID", i)
	assert.Equal(m.t, s.addr, req.Address, "packet %d address", i)

	if s.outcome != pkg.OutcomeSuccess {
		return s.outcome, 0
	}
	if req.Direction == hal.DirectionIn {
		return s.outcome, copy(buf, s.in)
	}
	if s.empty {
		return s.outcome, 0
	}
	return s.outcome, len(tr.out)
}

// done fails the test if part of the script was not played.
func (m *scriptedController) done() {
	m.t.Helper()
	assert.Empty(m.t, m.steps, "unplayed steps")
}

// setups returns the SETUP packets sent so far.
func (m *scriptedController) setups() []hal.SetupPacket {
	var out []hal.SetupPacket
	for _, tr := range m.log {
		if tr.req.PID != hal.PIDSetup {
			continue
		}
		var s hal.SetupPacket
		require.True(m.t, hal.ParseSetupPacket(tr.out, &s))
		out = append(out, s)
	}
	return out
}

func (m *scriptedController) pids() []hal.PID {
	out := make([]hal.PID, len(m.log))
	for i, tr := range m.log {
		out[i] = tr.req.PID
	}
	return out
}

func newHost(m *scriptedController) (*Host, *sim.Clock) {
	clk := sim.NewClock(0)
	return New(m, clk), clk
}

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}
