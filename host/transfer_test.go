package host

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hid"
	"github.com/ardnew/dwc2usb/pkg"
)

// =============================================================================
// Control Transfer Tests
// =============================================================================

func TestControlTransfer_DataToggle(t *testing.T) {
	desc := seq(18)
	m := newScripted(t,
		setupStep(),
		inStep(hal.PIDData1, desc[0:8]...),
		inStep(hal.PIDData0, desc[8:16]...),
		inStep(hal.PIDData1, desc[16:18]...),
		statusOut(),
	)
	h, _ := newHost(m)

	buf := make([]byte, 18)
	n, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, 18), buf)
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.Equal(t, desc, buf)
	m.done()

	for _, tr := range m.log {
		assert.Equal(t, hal.ChannelControl, tr.req.Channel)
		assert.Equal(t, hal.EndpointControl, tr.req.Type)
		assert.Equal(t, uint16(DefaultMaxPacket0), tr.req.MaxPacket)
	}
}

func TestControlTransfer_NoDataStatusIn(t *testing.T) {
	m := newScripted(t, setupStep(), statusIn())
	h, _ := newHost(m)

	n, err := h.ControlTransfer(hal.SetAddress(DeviceAddress), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	m.done()

	require.Len(t, m.setups(), 1)
	assert.Equal(t, hal.SetAddress(DeviceAddress), m.setups()[0])
}

func TestControlTransfer_ShortPacketEndsData(t *testing.T) {
	m := newScripted(t,
		setupStep(),
		inStep(hal.PIDData1, seq(8)...),
		inStep(hal.PIDData0, 1, 2, 3),
		statusOut(),
	)
	h, _ := newHost(m)

	buf := make([]byte, 64)
	n, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeConfiguration, 0, 0, 64), buf)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	m.done()
}

func TestControlTransfer_ZeroLengthPacketEndsData(t *testing.T) {
	m := newScripted(t,
		setupStep(),
		inStep(hal.PIDData1, seq(8)...),
		inStep(hal.PIDData0),
		statusOut(),
	)
	h, _ := newHost(m)

	buf := make([]byte, 255)
	n, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeString, 1, hal.LangIDUSEnglish, 255), buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	m.done()
}

func TestControlTransfer_OutData(t *testing.T) {
	m := newScripted(t,
		setupStep(),
		outStep(hal.PIDData1),
		outStep(hal.PIDData0),
		statusIn(),
	)
	h, _ := newHost(m)

	setup := hal.SetupPacket{
		RequestType: hal.RequestTypeOut | hal.RequestTypeClass | hal.RequestTypeInterface,
		Request:     0x09,
		Value:       0x0200,
		Length:      10,
	}
	data := seq(10)
	n, err := h.ControlTransfer(setup, data)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	m.done()

	assert.Equal(t, data[:8], m.log[1].out)
	assert.Equal(t, data[8:], m.log[2].out)
}

func TestControlTransfer_OutWithoutProgressEnds(t *testing.T) {
	m := newScripted(t,
		setupStep(),
		outStep(hal.PIDData1).sendsNothing(),
		statusIn(),
	)
	h, _ := newHost(m)

	setup := hal.SetupPacket{
		RequestType: hal.RequestTypeOut | hal.RequestTypeClass | hal.RequestTypeInterface,
		Request:     0x09,
		Value:       0x0200,
		Length:      10,
	}
	n, err := h.ControlTransfer(setup, seq(10))
	require.NoError(t, err)
	assert.Zero(t, n)
	m.done()
}

func TestControlTransfer_NilBufferSkipsData(t *testing.T) {
	m := newScripted(t, setupStep(), statusIn())
	h, _ := newHost(m)

	setup := hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, hal.DeviceDescriptorSize)
	n, err := h.ControlTransfer(setup, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	m.done()

	assert.Equal(t, []hal.PID{hal.PIDSetup, hal.PIDData1}, m.pids())
	assert.Equal(t, hal.DirectionIn, m.log[1].req.Direction)
}

func TestControlTransfer_NakRetry(t *testing.T) {
	m := newScripted(t,
		setupStep().answer(pkg.OutcomeNak),
		setupStep().answer(pkg.OutcomeNak),
		setupStep(),
		statusIn().answer(pkg.OutcomeNak),
		statusIn(),
	)
	h, clk := newHost(m)

	_, err := h.ControlTransfer(hal.SetConfiguration(1), nil)
	require.NoError(t, err)
	m.done()
	assert.Equal(t, 3*retryDelay, clk.Elapsed())

	// A NAKed packet is reissued with the same PID.
	assert.Equal(t, []hal.PID{
		hal.PIDSetup, hal.PIDSetup, hal.PIDSetup, hal.PIDData1, hal.PIDData1,
	}, m.pids())
}

func TestControlTransfer_NakExhausted(t *testing.T) {
	steps := lo.RepeatBy(controlRetries+1, func(int) step {
		return setupStep().answer(pkg.OutcomeNak)
	})
	m := newScripted(t, steps...)
	h, clk := newHost(m)

	_, err := h.ControlTransfer(hal.SetConfiguration(1), nil)
	require.ErrorIs(t, err, pkg.ErrNAK)
	assert.Contains(t, err.Error(), stageSetup)
	assert.Len(t, m.log, controlRetries+1)
	assert.Equal(t, time.Duration(controlRetries)*retryDelay, clk.Elapsed())
	m.done()
}

func TestControlTransfer_StageErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps []step
		err   error
		stage string
	}{
		{
			name:  "setup timeout",
			steps: []step{setupStep().answer(pkg.OutcomeTimeout)},
			err:   pkg.ErrTimeout,
			stage: stageSetup,
		},
		{
			name: "data stall",
			steps: []step{
				setupStep(),
				inStep(hal.PIDData1).answer(pkg.OutcomeStall),
			},
			err:   pkg.ErrStall,
			stage: stageData,
		},
		{
			name: "status error",
			steps: []step{
				setupStep(),
				inStep(hal.PIDData1, seq(4)...),
				statusOut().answer(pkg.OutcomeHardwareError),
			},
			err:   pkg.ErrHardware,
			stage: stageStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newScripted(t, tt.steps...)
			h, _ := newHost(m)

			buf := make([]byte, 8)
			_, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, 8), buf)
			require.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), tt.stage+" stage")
			m.done()
		})
	}
}

func TestControlTransfer_BufferTooSmall(t *testing.T) {
	m := newScripted(t)
	h, _ := newHost(m)

	_, err := h.ControlTransfer(hal.GetDescriptor(hal.DescriptorTypeDevice, 0, 0, 18), make([]byte, 8))
	require.ErrorIs(t, err, pkg.ErrInvalidParameter)
	assert.Empty(t, m.log)
}

// =============================================================================
// Input Report Tests
// =============================================================================

// configured returns a host whose context points at an interrupt IN
// endpoint 1 with a 32-byte max packet.
func configured(m *scriptedController) *Host {
	h, _ := newHost(m)
	h.ctx.Address = DeviceAddress
	h.ctx.HIDEndpoint = 1
	h.ctx.HIDMaxPacket = 32
	h.ctx.Enumerated = true
	return h
}

func reportBytes(t *testing.T, r hid.InputReport) []byte {
	t.Helper()
	b, err := r.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestReadInput_NotEnumerated(t *testing.T) {
	m := newScripted(t)
	h, _ := newHost(m)

	var r hid.InputReport
	assert.ErrorIs(t, h.ReadInput(&r), pkg.ErrNotEnumerated)

	h.ctx.Enumerated = true
	assert.ErrorIs(t, h.ReadInput(&r), pkg.ErrNotEnumerated, "endpoint 0 is not a report endpoint")
	assert.Empty(t, m.log)
}

func TestReadInput_NakKeepsToggle(t *testing.T) {
	want := hid.InputReport{Buttons: hid.ButtonA | hid.ButtonStart, LT: 200, LX: -32768, RY: 1234}
	m := newScripted(t,
		inStep(hal.PIDData0).at(DeviceAddress).answer(pkg.OutcomeNak),
		inStep(hal.PIDData0, reportBytes(t, want)...).at(DeviceAddress),
		inStep(hal.PIDData1).at(DeviceAddress).answer(pkg.OutcomeNak),
	)
	h := configured(m)

	got := hid.InputReport{Buttons: 0xFFFF}
	require.ErrorIs(t, h.ReadInput(&got), pkg.ErrNAK)
	assert.Equal(t, uint16(0xFFFF), got.Buttons, "NAK leaves the report untouched")
	assert.Equal(t, hal.PIDData0, h.Context().HIDToggle)

	require.NoError(t, h.ReadInput(&got))
	assert.Equal(t, want.Buttons, got.Buttons)
	assert.Equal(t, want.LT, got.LT)
	assert.Equal(t, want.LX, got.LX)
	assert.Equal(t, want.RY, got.RY)
	assert.Equal(t, hal.PIDData1, h.Context().HIDToggle)

	require.ErrorIs(t, h.ReadInput(&got), pkg.ErrNAK)
	assert.Equal(t, hal.PIDData1, h.Context().HIDToggle)
	m.done()

	req := m.log[0].req
	assert.Equal(t, hal.ChannelInterrupt, req.Channel)
	assert.Equal(t, uint8(1), req.Endpoint)
	assert.Equal(t, hal.EndpointInterrupt, req.Type)
	assert.Equal(t, uint16(32), req.MaxPacket)
}

func TestReadInput_Errors(t *testing.T) {
	m := newScripted(t,
		inStep(hal.PIDData0).at(DeviceAddress).answer(pkg.OutcomeStall),
		inStep(hal.PIDData0).at(DeviceAddress).answer(pkg.OutcomeHardwareError),
	)
	h := configured(m)

	var r hid.InputReport
	assert.ErrorIs(t, h.ReadInput(&r), pkg.ErrStall)
	assert.ErrorIs(t, h.ReadInput(&r), pkg.ErrHardware)
	assert.Equal(t, hal.PIDData0, h.Context().HIDToggle)
	m.done()
}

func TestReadInput_ShortReport(t *testing.T) {
	full := reportBytes(t, hid.InputReport{Buttons: hid.ButtonB, LX: 77})
	m := newScripted(t, inStep(hal.PIDData0, full[:8]...).at(DeviceAddress))
	h := configured(m)
	h.ctx.HIDMaxPacket = 8

	var r hid.InputReport
	require.NoError(t, h.ReadInput(&r))
	assert.Equal(t, uint16(hid.ButtonB), r.Buttons)
	assert.Zero(t, r.LX, "bytes past the packet read as zero")
	assert.Equal(t, hal.PIDData1, h.Context().HIDToggle)
}
