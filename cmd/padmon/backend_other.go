//go:build !linux

package main

import (
	"fmt"

	"github.com/ardnew/dwc2usb/pkg"
)

func openDevmem(uintptr) (*system, error) {
	return nil, fmt.Errorf("%w: devmem backend requires linux", pkg.ErrHardwareAbsent)
}
