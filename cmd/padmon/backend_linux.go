//go:build linux

package main

import (
	"errors"
	"io"

	"github.com/ardnew/dwc2usb/host/hal/devmem"
)

// openDevmem maps the core at base and opens the firmware mailbox.
func openDevmem(base uintptr) (*system, error) {
	w, err := devmem.Open(base, devmem.DefaultWindowSize)
	if err != nil {
		return nil, err
	}
	mb, err := devmem.OpenMailbox()
	if err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return &system{
		base:     base,
		mmio:     w,
		clk:      devmem.NewClock(),
		power:    mb,
		finished: func() bool { return false },
		closers:  []io.Closer{mb, w},
	}, nil
}
