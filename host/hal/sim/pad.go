package sim

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hid"
	"github.com/ardnew/dwc2usb/pkg"
)

// Pad identity defaults: a wired Xbox 360 controller.
const (
	DefaultVendorID        = 0x045E
	DefaultProductID       = 0x028E
	DefaultMaxPacket0      = 8
	DefaultReportMaxPacket = 32
	DefaultConfiguration   = 1
)

// Endpoint numbers of the pad's primary interface.
const (
	ReportEndpoint = 1 // Interrupt IN 0x81, input reports
	OutputEndpoint = 1 // Interrupt OUT 0x01, rumble and LEDs
)

// PadOptions describes the pad's identity. Zero fields take defaults.
type PadOptions struct {
	VendorID        uint16
	ProductID       uint16
	MaxPacket0      uint8
	ReportMaxPacket uint16
	Speed           hal.Speed
	Manufacturer    string
	Product         string
	Serial          string
}

func (o *PadOptions) applyDefaults() {
	if o.VendorID == 0 {
		o.VendorID = DefaultVendorID
	}
	if o.ProductID == 0 {
		o.ProductID = DefaultProductID
	}
	if o.MaxPacket0 == 0 {
		o.MaxPacket0 = DefaultMaxPacket0
	}
	if o.ReportMaxPacket == 0 {
		o.ReportMaxPacket = DefaultReportMaxPacket
	}
	if o.Speed == hal.SpeedUnknown {
		o.Speed = hal.SpeedFull
	}
	if o.Manufacturer == "" {
		o.Manufacturer = "Microsoft Corporation"
	}
	if o.Product == "" {
		o.Product = "Controller"
	}
	if o.Serial == "" {
		o.Serial = "296013F"
	}
}

type endpointKey struct {
	ep  uint8
	dir hal.Direction
}

type scheduledReport struct {
	at     time.Duration
	report hid.InputReport
}

type controlStage struct {
	setup   hal.SetupPacket
	in      []byte
	stalled bool
}

// Pad is a wired Xbox 360 style gamepad.
//
// The report endpoint NAKs until a new report is available and delivers each
// report exactly once, the way the real pad only answers when its state
// changed.
type Pad struct {
	opts   PadOptions
	device []byte
	config []byte
	str    map[uint8]string

	address        uint8
	pendingAddress uint8
	addressPending bool
	configuration  uint8
	ctl            controlStage

	clk       *Clock
	schedule  []scheduledReport
	queue     []hid.InputReport
	toggle    map[uint8]hal.PID
	faults    map[endpointKey][]Response
	setups    []hal.SetupPacket
	output    []byte
	toggleErr int
}

var _ Device = (*Pad)(nil)

// NewPad creates a pad. clk releases scheduled reports and may be nil when
// reports are only queued with Push.
func NewPad(clk *Clock, opts PadOptions) *Pad {
	opts.applyDefaults()
	p := &Pad{
		opts: opts,
		clk:  clk,
		str: map[uint8]string{
			1: opts.Manufacturer,
			2: opts.Product,
			3: opts.Serial,
		},
		toggle: make(map[uint8]hal.PID),
		faults: make(map[endpointKey][]Response),
	}
	p.device = p.deviceDescriptor()
	p.config = p.configurationDescriptor()
	return p
}

func (p *Pad) deviceDescriptor() []byte {
	d := hal.DeviceDescriptor{
		USBVersion:        0x0200,
		DeviceClass:       0xFF,
		DeviceSubClass:    0xFF,
		DeviceProtocol:    0xFF,
		MaxPacketSize0:    p.opts.MaxPacket0,
		VendorID:          p.opts.VendorID,
		ProductID:         p.opts.ProductID,
		DeviceVersion:     0x0114,
		ManufacturerIndex: 1,
		ProductIndex:      2,
		SerialNumberIndex: 3,
		NumConfigurations: 1,
	}
	buf := make([]byte, hal.DeviceDescriptorSize)
	d.MarshalTo(buf)
	return buf
}

// padInterface is one interface of the configuration with its class
// descriptor and endpoints.
type padInterface struct {
	desc      hal.InterfaceDescriptor
	classType uint8
	class     []byte
	endpoints []hal.EndpointDescriptor
}

// configurationDescriptor assembles the full configuration: the gamepad
// interface followed by the headset, plug-in module and security
// interfaces. The total exceeds 64 bytes, so a 64-byte read truncates it.
func (p *Pad) configurationDescriptor() []byte {
	mps := p.opts.ReportMaxPacket
	ifaces := []padInterface{
		{
			desc:      hal.InterfaceDescriptor{InterfaceNumber: 0, NumEndpoints: 2, InterfaceClass: 0xFF, InterfaceSubClass: 0x5D, InterfaceProtocol: 0x01},
			classType: hal.DescriptorTypeHID,
			class:     []byte{0x00, 0x01, 0x01, 0x25, 0x81, 0x14, 0x00, 0x00, 0x00, 0x00, 0x13, 0x01, 0x08, 0x00, 0x00},
			endpoints: []hal.EndpointDescriptor{
				{EndpointAddress: hal.EndpointDirectionIn | ReportEndpoint, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: mps, Interval: 4},
				{EndpointAddress: OutputEndpoint, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: mps, Interval: 8},
			},
		},
		{
			desc:      hal.InterfaceDescriptor{InterfaceNumber: 1, NumEndpoints: 4, InterfaceClass: 0xFF, InterfaceSubClass: 0x5D, InterfaceProtocol: 0x03},
			classType: hal.DescriptorTypeHID,
			class:     []byte{0x00, 0x01, 0x01, 0x01, 0x82, 0x40, 0x01, 0x02, 0x20, 0x16, 0x83, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x16, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			endpoints: []hal.EndpointDescriptor{
				{EndpointAddress: 0x82, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: 32, Interval: 2},
				{EndpointAddress: 0x02, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: 32, Interval: 4},
				{EndpointAddress: 0x83, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: 32, Interval: 64},
				{EndpointAddress: 0x03, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: 32, Interval: 16},
			},
		},
		{
			desc:      hal.InterfaceDescriptor{InterfaceNumber: 2, NumEndpoints: 1, InterfaceClass: 0xFF, InterfaceSubClass: 0x5D, InterfaceProtocol: 0x02},
			classType: hal.DescriptorTypeHID,
			class:     []byte{0x00, 0x01, 0x01, 0x22, 0x84, 0x07, 0x00},
			endpoints: []hal.EndpointDescriptor{
				{EndpointAddress: 0x84, Attributes: uint8(hal.EndpointInterrupt), MaxPacketSize: 32, Interval: 16},
			},
		},
		{
			desc:      hal.InterfaceDescriptor{InterfaceNumber: 3, InterfaceClass: 0xFF, InterfaceSubClass: 0xFD, InterfaceProtocol: 0x13, InterfaceIndex: 4},
			classType: 0x41,
			class:     []byte{0x00, 0x01, 0x01, 0x03},
		},
	}

	buf := make([]byte, 512)
	n := hal.ConfigurationDescriptorSize
	for _, it := range ifaces {
		n += it.desc.MarshalTo(buf[n:])
		buf[n] = uint8(2 + len(it.class))
		buf[n+1] = it.classType
		n += 2 + copy(buf[n+2:], it.class)
		for _, ep := range it.endpoints {
			n += ep.MarshalTo(buf[n:])
		}
	}
	cfg := hal.ConfigurationDescriptor{
		TotalLength:        uint16(n),
		NumInterfaces:      uint8(len(ifaces)),
		ConfigurationValue: DefaultConfiguration,
		Attributes:         hal.ConfigAttrBusPowered | hal.ConfigAttrRemoteWakeup,
		MaxPower:           0xFA,
	}
	cfg.MarshalTo(buf)
	return buf[:n]
}

// DeviceDescriptor returns the raw device descriptor.
func (p *Pad) DeviceDescriptor() []byte { return slices.Clone(p.device) }

// ConfigurationDescriptor returns the full raw configuration descriptor.
func (p *Pad) ConfigurationDescriptor() []byte { return slices.Clone(p.config) }

// Speed implements [Device].
func (p *Pad) Speed() hal.Speed { return p.opts.Speed }

// Address implements [Device].
func (p *Pad) Address() uint8 { return p.address }

// Configuration returns the active configuration value, zero when
// unconfigured.
func (p *Pad) Configuration() uint8 { return p.configuration }

// Setups returns every SETUP packet received since creation.
func (p *Pad) Setups() []hal.SetupPacket { return slices.Clone(p.setups) }

// ToggleErrors counts report transactions whose expected data PID did not
// match the pad's own toggle.
func (p *Pad) ToggleErrors() int { return p.toggleErr }

// Output returns the last payload written to the OUT endpoint.
func (p *Pad) Output() []byte { return slices.Clone(p.output) }

// Reset implements [Device].
func (p *Pad) Reset() {
	p.address = 0
	p.addressPending = false
	p.configuration = 0
	p.ctl = controlStage{}
	clear(p.toggle)
}

// Push queues a report for delivery on the next successful report
// transaction.
func (p *Pad) Push(r hid.InputReport) {
	p.queue = append(p.queue, r)
}

// Schedule queues r for release once the clock reaches at.
func (p *Pad) Schedule(at time.Duration, r hid.InputReport) {
	p.schedule = append(p.schedule, scheduledReport{at: at, report: r})
	slices.SortStableFunc(p.schedule, func(a, b scheduledReport) int {
		return cmp.Compare(a.at, b.at)
	})
}

// Pending returns the number of reports not yet delivered, scheduled ones
// included.
func (p *Pad) Pending() int { return len(p.queue) + len(p.schedule) }

// Inject makes the next count transactions on endpoint ep in direction dir
// answer with r instead of their normal handshake.
func (p *Pad) Inject(ep uint8, dir hal.Direction, r Response, count int) {
	k := endpointKey{ep: ep, dir: dir}
	p.faults[k] = append(p.faults[k], lo.RepeatBy(count, func(int) Response { return r })...)
}

func (p *Pad) fault(ep uint8, dir hal.Direction) (Response, bool) {
	k := endpointKey{ep: ep, dir: dir}
	q := p.faults[k]
	if len(q) == 0 {
		return 0, false
	}
	p.faults[k] = q[1:]
	return q[0], true
}

// Setup implements [Device].
func (p *Pad) Setup(data []byte) Response {
	var s hal.SetupPacket
	if !hal.ParseSetupPacket(data, &s) {
		return ResponseError
	}
	p.setups = append(p.setups, s)
	p.ctl = controlStage{setup: s}

	if s.RequestType&0x60 != hal.RequestTypeStandard {
		p.ctl.stalled = true
		return ResponseAck
	}

	switch s.Request {
	case hal.RequestGetDescriptor:
		desc := p.descriptor(uint8(s.Value>>8), uint8(s.Value))
		if desc == nil {
			p.ctl.stalled = true
			break
		}
		p.ctl.in = desc[:min(len(desc), int(s.Length))]
	case hal.RequestGetConfiguration:
		p.ctl.in = []byte{p.configuration}
	case hal.RequestGetStatus:
		p.ctl.in = []byte{0, 0}
	case hal.RequestSetAddress:
		p.pendingAddress = uint8(s.Value) & 0x7F
		p.addressPending = true
	case hal.RequestSetConfiguration:
		if !lo.Contains([]uint16{0, DefaultConfiguration}, s.Value) {
			p.ctl.stalled = true
			break
		}
		p.configuration = uint8(s.Value)
		clear(p.toggle)
	default:
		p.ctl.stalled = true
	}

	if p.ctl.stalled {
		pkg.LogDebug(pkg.ComponentSim, "request stalled",
			"request", s.Request, "value", s.Value)
	}
	return ResponseAck
}

func (p *Pad) descriptor(typ, index uint8) []byte {
	switch typ {
	case hal.DescriptorTypeDevice:
		return p.device
	case hal.DescriptorTypeConfiguration:
		if index != 0 {
			return nil
		}
		return p.config
	case hal.DescriptorTypeString:
		buf := make([]byte, 255)
		if index == 0 {
			return buf[:hal.LanguageDescriptorTo(buf, hal.LangIDUSEnglish)]
		}
		s, ok := p.str[index]
		if !ok {
			return nil
		}
		return buf[:hal.StringDescriptorTo(buf, s)]
	default:
		return nil
	}
}

// In implements [Device].
func (p *Pad) In(ep uint8, pid hal.PID, maxPacket int) (Response, []byte) {
	if r, ok := p.fault(ep, hal.DirectionIn); ok {
		return r, nil
	}
	switch {
	case ep == 0:
		return p.controlIn()
	case ep == ReportEndpoint && p.configuration != 0:
		return p.reportIn(pid, maxPacket)
	default:
		return ResponseStall, nil
	}
}

// controlIn answers a control IN packet. Data is sent in chunks of the
// pad's own endpoint 0 max-packet; the core reports babble if the host
// asked for less.
func (p *Pad) controlIn() (Response, []byte) {
	if p.ctl.stalled {
		return ResponseStall, nil
	}
	if p.ctl.setup.Direction() == hal.DirectionOut {
		// Status stage of a no-data or OUT request.
		if p.addressPending {
			p.address = p.pendingAddress
			p.addressPending = false
			pkg.LogDebug(pkg.ComponentSim, "address assigned", "address", p.address)
		}
		return ResponseAck, nil
	}
	n := min(int(p.opts.MaxPacket0), len(p.ctl.in))
	chunk := slices.Clone(p.ctl.in[:n])
	p.ctl.in = p.ctl.in[n:]
	return ResponseAck, chunk
}

func (p *Pad) reportIn(pid hal.PID, maxPacket int) (Response, []byte) {
	p.release()
	if len(p.queue) == 0 {
		return ResponseNak, nil
	}

	want := p.toggle[ReportEndpoint]
	if pid != want {
		p.toggleErr++
		pkg.LogWarn(pkg.ComponentSim, "report toggle mismatch",
			"host", pid.String(), "device", want.String())
	}

	r := p.queue[0]
	p.queue = p.queue[1:]
	b, _ := r.MarshalBinary()
	p.toggle[ReportEndpoint] = want.Toggle()
	return ResponseAck, b[:min(len(b), maxPacket)]
}

// release moves scheduled reports whose time has come into the queue.
func (p *Pad) release() {
	if p.clk == nil {
		return
	}
	now := p.clk.Elapsed()
	due, rest := lo.FilterReject(p.schedule, func(s scheduledReport, _ int) bool {
		return s.at <= now
	})
	for _, s := range due {
		p.queue = append(p.queue, s.report)
	}
	p.schedule = rest
}

// Out implements [Device].
func (p *Pad) Out(ep uint8, _ hal.PID, data []byte) Response {
	if r, ok := p.fault(ep, hal.DirectionOut); ok {
		return r
	}
	switch {
	case ep == 0:
		if p.ctl.stalled {
			return ResponseStall
		}
		return ResponseAck
	case ep == OutputEndpoint && p.configuration != 0:
		p.output = slices.Clone(data)
		return ResponseAck
	default:
		return ResponseStall
	}
}
