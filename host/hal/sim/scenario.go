package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hid"
)

// Scenario describes a simulated bench: the core, the pad on its port,
// injected faults and the input timeline.
type Scenario struct {
	Core    CoreSpec     `yaml:"core"`
	Pad     PadSpec      `yaml:"pad"`
	Attach  bool         `yaml:"attach"`
	Faults  []FaultSpec  `yaml:"faults"`
	Reports []ReportSpec `yaml:"reports"`
}

// CoreSpec configures the core model.
type CoreSpec struct {
	Base          uint64 `yaml:"base"`
	ID            uint32 `yaml:"id"`
	ClockStart    uint32 `yaml:"clock_start"`
	PowerAck      *bool  `yaml:"power_ack"`
	HostModeStuck bool   `yaml:"host_mode_stuck"`
}

// PadSpec configures the pad identity.
type PadSpec struct {
	VendorID        uint16 `yaml:"vendor_id"`
	ProductID       uint16 `yaml:"product_id"`
	MaxPacket0      uint8  `yaml:"max_packet0"`
	ReportMaxPacket uint16 `yaml:"report_max_packet"`
	Speed           string `yaml:"speed"`
	Manufacturer    string `yaml:"manufacturer"`
	Product         string `yaml:"product"`
	Serial          string `yaml:"serial"`
}

// FaultSpec overrides the handshake of Count transactions on an endpoint.
type FaultSpec struct {
	Endpoint  uint8    `yaml:"endpoint"`
	Direction string   `yaml:"direction"`
	Response  Response `yaml:"response"`
	Count     int      `yaml:"count"`
}

// ReportSpec is one input report released at At.
type ReportSpec struct {
	At      time.Duration `yaml:"at"`
	Buttons []string      `yaml:"buttons"`
	LT      uint8         `yaml:"lt"`
	RT      uint8         `yaml:"rt"`
	LX      int16         `yaml:"lx"`
	LY      int16         `yaml:"ly"`
	RX      int16         `yaml:"rx"`
	RY      int16         `yaml:"ry"`
}

// DefaultScenario is a powered core with a stock pad attached and no
// input.
func DefaultScenario() Scenario {
	return Scenario{Attach: true}
}

// LoadScenario decodes a YAML scenario. Unknown fields are rejected.
func LoadScenario(r io.Reader) (Scenario, error) {
	sc := DefaultScenario()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}

// LoadScenarioFile reads a YAML scenario from path.
func LoadScenarioFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return LoadScenario(bytes.NewReader(data))
}

func parseSpeed(s string) (hal.Speed, error) {
	switch strings.ToLower(s) {
	case "", "full":
		return hal.SpeedFull, nil
	case "low":
		return hal.SpeedLow, nil
	case "high":
		return hal.SpeedHigh, nil
	default:
		return hal.SpeedUnknown, fmt.Errorf("unknown speed %q", s)
	}
}

func parseDirection(s string) (hal.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return hal.DirectionIn, nil
	case "out":
		return hal.DirectionOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Bench is a simulated system built from a Scenario.
type Bench struct {
	Clock *Clock
	Power *Power
	Core  *Core
	Pad   *Pad
}

// Build assembles the bench described by sc.
func (sc Scenario) Build() (*Bench, error) {
	speed, err := parseSpeed(sc.Pad.Speed)
	if err != nil {
		return nil, err
	}

	clk := NewClock(sc.Core.ClockStart)
	ack := true
	if sc.Core.PowerAck != nil {
		ack = *sc.Core.PowerAck
	}
	b := &Bench{
		Clock: clk,
		Power: &Power{Ack: ack},
		Core: NewCore(clk, Options{
			Base:          uintptr(sc.Core.Base),
			CoreID:        sc.Core.ID,
			HostModeStuck: sc.Core.HostModeStuck,
		}),
		Pad: NewPad(clk, PadOptions{
			VendorID:        sc.Pad.VendorID,
			ProductID:       sc.Pad.ProductID,
			MaxPacket0:      sc.Pad.MaxPacket0,
			ReportMaxPacket: sc.Pad.ReportMaxPacket,
			Speed:           speed,
			Manufacturer:    sc.Pad.Manufacturer,
			Product:         sc.Pad.Product,
			Serial:          sc.Pad.Serial,
		}),
	}

	for i, f := range sc.Faults {
		dir, err := parseDirection(f.Direction)
		if err != nil {
			return nil, fmt.Errorf("fault %d: %w", i, err)
		}
		count := f.Count
		if count <= 0 {
			count = 1
		}
		b.Pad.Inject(f.Endpoint, dir, f.Response, count)
	}

	for i, r := range sc.Reports {
		mask, err := hid.ParseButtons(r.Buttons)
		if err != nil {
			return nil, fmt.Errorf("report %d: %w", i, err)
		}
		b.Pad.Schedule(r.At, hid.InputReport{
			Length:  hid.ReportSize,
			Buttons: mask,
			LT:      r.LT,
			RT:      r.RT,
			LX:      r.LX,
			LY:      r.LY,
			RX:      r.RX,
			RY:      r.RY,
		})
	}

	if sc.Attach {
		b.Core.Attach(b.Pad)
	}
	return b, nil
}
