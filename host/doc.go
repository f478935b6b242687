// Package host implements a polled USB host for a single device on the
// root port of a [hal.HostController].
//
// The host is strictly single-threaded. Every operation runs to completion
// and every wait is bounded, so the package works the same on bare metal
// and on top of the register-level simulator in package sim.
//
// # Layers
//
//   - [Host.ControlTransfer] runs SETUP, DATA and STATUS stages on endpoint
//     0, retrying each packet on NAK.
//   - [Host.Enumerate] assigns an address, reads descriptors, locates the
//     interrupt IN endpoint and selects the configuration.
//   - [Host.ReadInput] polls the interrupt IN endpoint once and decodes an
//     Xbox 360 style [hid.InputReport].
//
// # Descriptor parsing
//
// [DescriptorReader] walks a concatenated descriptor set with a bounds
// check on every entry. A malformed entry stops the scan and is reported
// through [DescriptorReader.Err].
//
// # Example
//
//	h := host.New(ctrl, clk)
//	if err := h.BringUp(); err != nil {
//		return err
//	}
//	if err := h.Attach(5 * time.Second); err != nil {
//		return err
//	}
//	var r hid.InputReport
//	for {
//		switch err := h.ReadInput(&r); {
//		case err == nil:
//			fmt.Println(r.ButtonNames())
//		case errors.Is(err, pkg.ErrNAK):
//		default:
//			return err
//		}
//		clk.Delay(1000)
//	}
package host
