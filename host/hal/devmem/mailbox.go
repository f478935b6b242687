//go:build linux

package devmem

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// Property interface constants.
const (
	mboxRequest       = 0x00000000
	mboxResponseOK    = 0x80000000
	mboxTagResponse   = 0x80000000
	tagSetPowerState  = 0x00028001
	powerStateOn      = 1 << 0
	powerStateWait    = 1 << 1
	powerStateMissing = 1 << 1
)

// ioctlMboxProperty is _IOWR(100, 0, char *).
const ioctlMboxProperty = 3<<30 | unsafe.Sizeof(uintptr(0))<<16 | 100<<8

// powerMessage is a property buffer holding one set-power-state tag.
type powerMessage [8]uint32

func newPowerMessage(device uint32, on bool) powerMessage {
	state := uint32(powerStateWait)
	if on {
		state |= powerStateOn
	}
	return powerMessage{
		uint32(unsafe.Sizeof(powerMessage{})),
		mboxRequest,
		tagSetPowerState,
		8, // value buffer size
		8, // request length
		device,
		state,
		0, // end tag
	}
}

// acknowledged reports whether the firmware accepted the request and the
// device reached the requested state.
func (m *powerMessage) acknowledged(on bool) bool {
	if m[1] != mboxResponseOK || m[4]&mboxTagResponse == 0 {
		return false
	}
	state := m[6]
	if state&powerStateMissing != 0 {
		return false
	}
	return (state&powerStateOn != 0) == on
}

// Mailbox talks to the VideoCore firmware through /dev/vcio.
type Mailbox struct {
	file *os.File
}

var _ hal.PowerControl = (*Mailbox)(nil)

// OpenMailbox opens the firmware property channel.
func OpenMailbox() (*Mailbox, error) {
	f, err := os.OpenFile("/dev/vcio", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/vcio: %w", err)
	}
	return &Mailbox{file: f}, nil
}

// SetPower implements [hal.PowerControl].
func (m *Mailbox) SetPower(device uint32, on bool) bool {
	msg := newPowerMessage(device, on)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, m.file.Fd(), ioctlMboxProperty,
		uintptr(unsafe.Pointer(&msg[0])))
	if errno != 0 {
		pkg.LogWarn(pkg.ComponentHAL, "mailbox request failed", "device", device, "error", errno)
		return false
	}
	ok := msg.acknowledged(on)
	pkg.LogDebug(pkg.ComponentHAL, "power state", "device", device, "on", on,
		"state", fmt.Sprintf("%#x", msg[6]), "ack", ok)
	return ok
}

// Close releases the mailbox.
func (m *Mailbox) Close() error {
	return m.file.Close()
}
