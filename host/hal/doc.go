// Package hal defines the hardware abstraction boundary of the dwc2usb host
// stack.
//
// It has two halves. The first is the set of platform collaborators a
// controller driver consumes:
//
//   - [MMIO]: 32-bit register reads and writes plus a memory barrier
//   - [Clock]: a wrapping microsecond counter and a busy delay
//   - [PowerControl]: the best-effort peripheral power side channel
//
// The second is the [HostController] contract the host protocol layers
// consume: bring-up, root port connection and reset, and [HostController.Execute],
// which moves exactly one packet described by a [Request].
//
// # Polling
//
// Nothing in the stack waits on interrupts. Every wait is a call to
// [PollUntil], which bounds both elapsed time and iteration count.
//
// # Wire formats
//
// [SetupPacket] reproduces the 8-byte SETUP payload bit-exactly:
//
//	byte 0    bmRequestType
//	byte 1    bRequest
//	bytes 2-3 wValue  (little-endian)
//	bytes 4-5 wIndex  (little-endian)
//	bytes 6-7 wLength (little-endian)
//
// Implementations live in [github.com/ardnew/dwc2usb/host/hal/dwc2] (the
// register-level driver), [github.com/ardnew/dwc2usb/host/hal/sim] (a
// simulated controller and device) and
// [github.com/ardnew/dwc2usb/host/hal/devmem] (Linux /dev/mem access).
package hal
