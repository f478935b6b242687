package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ardnew/dwc2usb/host"
	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/host/hal/dwc2"
	"github.com/ardnew/dwc2usb/host/hid"
	"github.com/ardnew/dwc2usb/pkg"
)

// RunCmd enumerates the pad and prints its reports.
type RunCmd struct {
	Backend        string        `help:"Controller backend" enum:"sim,devmem" default:"sim"`
	Base           string        `help:"Physical address of the DWC2 core" default:"0x20980000"`
	Scenario       string        `help:"Simulator scenario file (YAML)" type:"path"`
	Frames         int           `help:"Frames to poll; 0 polls until interrupted, or until the scenario is played out on the simulator" default:"0"`
	Interval       time.Duration `help:"Polling interval" default:"1ms"`
	ConnectTimeout time.Duration `help:"Time to wait for a device to connect" default:"5s"`
	Attempts       int           `help:"Attach attempts before giving up" default:"3"`
	All            bool          `help:"Print every report, not only changes"`
}

// Run is called by kong when the run command is executed.
func (r *RunCmd) Run(out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.execute(ctx, out)
}

func (r *RunCmd) execute(ctx context.Context, out io.Writer) error {
	base, err := strconv.ParseUint(r.Base, 0, 64)
	if err != nil {
		return fmt.Errorf("%w: base %q: %w", pkg.ErrInvalidParameter, r.Base, err)
	}

	sys, err := r.open(uintptr(base))
	if err != nil {
		return err
	}
	defer func() { _ = sys.Close() }()

	ctrl := dwc2.New(dwc2.Config{
		Base:  sys.base,
		MMIO:  sys.mmio,
		Clock: sys.clk,
		Power: sys.power,
	})
	h := host.New(ctrl, sys.clk)
	if err := h.BringUp(); err != nil {
		return fmt.Errorf("bring up: %w", err)
	}
	if err := r.attach(ctx, h); err != nil {
		return err
	}
	describe(h)

	m := monitor{out: out, all: r.All}
	for frame := 0; r.Frames == 0 || frame < r.Frames; frame++ {
		if ctx.Err() != nil || (r.Frames == 0 && sys.finished()) {
			break
		}

		var rep hid.InputReport
		switch err := h.ReadInput(&rep); {
		case err == nil:
			m.report(sys.clk.Micros(), rep)
		case errors.Is(err, pkg.ErrNAK):
		default:
			pkg.LogWarn(pkg.ComponentHID, "input lost, reattaching", "error", err)
			if err := r.attach(ctx, h); err != nil {
				return err
			}
		}
		sys.clk.Delay(uint32(r.Interval.Microseconds()))
	}
	pkg.LogInfo(pkg.ComponentHID, "monitor stopped", "reports", m.count)
	return nil
}

// attach runs up to Attempts connect, reset and enumerate sequences.
func (r *RunCmd) attach(ctx context.Context, h *host.Host) error {
	attempts := max(r.Attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = h.Attach(r.ConnectTimeout); err == nil {
			return nil
		}
		pkg.LogWarn(pkg.ComponentEnum, "attach failed", "attempt", i, "attempts", attempts, "error", err)
	}
	return fmt.Errorf("attach: %w", err)
}

// describe logs the attached device's identity.
func describe(h *host.Host) {
	dev := h.Context().Device
	args := []any{
		"vendor", fmt.Sprintf("%04x", dev.VendorID),
		"product", fmt.Sprintf("%04x", dev.ProductID),
		"speed", h.Context().Speed.String(),
	}
	for _, s := range []struct {
		key   string
		index uint8
	}{
		{"manufacturer", dev.ManufacturerIndex},
		{"name", dev.ProductIndex},
		{"serial", dev.SerialNumberIndex},
	} {
		if v, err := h.ReadString(s.index); err == nil && v != "" {
			args = append(args, s.key, v)
		}
	}
	pkg.LogInfo(pkg.ComponentEnum, "pad attached", args...)
}

// monitor prints reports.
type monitor struct {
	out   io.Writer
	all   bool
	last  hid.InputReport
	seen  bool
	count int
}

func (m *monitor) report(now uint32, r hid.InputReport) {
	m.count++
	if !m.all && m.seen && r == m.last {
		return
	}
	m.last, m.seen = r, true
	fmt.Fprintln(m.out, formatReport(now, r))
}

// formatReport renders one report on a line.
func formatReport(now uint32, r hid.InputReport) string {
	buttons := strings.Join(r.ButtonNames(), "+")
	if buttons == "" {
		buttons = "-"
	}
	return fmt.Sprintf("%10.3fms %-20s lt=%3d rt=%3d l=(%6d,%6d) r=(%6d,%6d)",
		float64(now)/1000, buttons, r.LT, r.RT, r.LX, r.LY, r.RX, r.RY)
}

// system is a backend's hardware: register access, clock and power.
type system struct {
	base     uintptr
	mmio     hal.MMIO
	clk      hal.Clock
	power    hal.PowerControl
	finished func() bool
	closers  []io.Closer
}

func (s *system) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (r *RunCmd) open(base uintptr) (*system, error) {
	switch r.Backend {
	case "", "sim":
		return openSim(base, r.Scenario)
	case "devmem":
		return openDevmem(base)
	default:
		return nil, fmt.Errorf("%w: backend %q", pkg.ErrInvalidParameter, r.Backend)
	}
}
