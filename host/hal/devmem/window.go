//go:build linux

package devmem

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// DefaultWindowSize covers the DWC2 register block including the host
// channels and the data FIFO windows.
const DefaultWindowSize = 0x20000

// Window is a mapping of a physical register block.
type Window struct {
	base  uintptr
	mem   []byte
	file  *os.File
	fence atomic.Uint32
}

var _ hal.MMIO = (*Window)(nil)

// Open maps size bytes of physical memory at base. base must be page
// aligned.
func Open(base uintptr, size int) (*Window, error) {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if page := uintptr(unix.Getpagesize()); base%page != 0 {
		return nil, fmt.Errorf("%w: base %#x is not page aligned", pkg.ErrInvalidParameter, base)
	}

	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %w", err)
	}
	mem, err := unix.Mmap(int(f.Fd()), int64(base), size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map %#x+%#x: %w", base, size, err)
	}

	pkg.LogDebug(pkg.ComponentHAL, "register window mapped", "base", fmt.Sprintf("%#x", base), "size", size)
	w := newWindow(base, mem)
	w.file = f
	return w, nil
}

func newWindow(base uintptr, mem []byte) *Window {
	return &Window{base: base, mem: mem}
}

// Base returns the physical address of the window.
func (w *Window) Base() uintptr { return w.base }

func (w *Window) word(addr uintptr) *uint32 {
	off := addr - w.base
	if addr < w.base || off+4 > uintptr(len(w.mem)) || off&3 != 0 {
		panic(fmt.Sprintf("devmem: access %#x outside window %#x+%#x", addr, w.base, len(w.mem)))
	}
	return (*uint32)(unsafe.Pointer(&w.mem[off]))
}

// Read32 implements [hal.MMIO].
func (w *Window) Read32(addr uintptr) uint32 {
	return atomic.LoadUint32(w.word(addr))
}

// Write32 implements [hal.MMIO].
func (w *Window) Write32(addr uintptr, value uint32) {
	atomic.StoreUint32(w.word(addr), value)
}

// Barrier implements [hal.MMIO] with a full atomic read-modify-write.
func (w *Window) Barrier() {
	w.fence.Add(1)
}

// Close unmaps the window.
func (w *Window) Close() error {
	var err error
	if w.mem != nil && w.file != nil {
		err = unix.Munmap(w.mem)
	}
	w.mem = nil
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
		w.file = nil
	}
	return err
}
