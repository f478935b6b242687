package main

import (
	"github.com/ardnew/dwc2usb/host/hal/sim"
)

// openSim builds a simulated bench at base. Without a scenario file the
// default pad is attached with no input.
func openSim(base uintptr, scenario string) (*system, error) {
	sc := sim.DefaultScenario()
	if scenario != "" {
		var err error
		if sc, err = sim.LoadScenarioFile(scenario); err != nil {
			return nil, err
		}
	}
	if sc.Core.Base == 0 {
		sc.Core.Base = uint64(base)
	}
	b, err := sc.Build()
	if err != nil {
		return nil, err
	}
	return &system{
		base:     b.Core.Base(),
		mmio:     b.Core,
		clk:      b.Clock,
		power:    b.Power,
		finished: func() bool { return b.Pad.Pending() == 0 },
	}, nil
}
