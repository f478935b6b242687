package host

import (
	"errors"
	"fmt"
	"iter"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// ErrNoInterruptEndpoint is returned when a configuration has no interrupt
// IN endpoint.
var ErrNoInterruptEndpoint = errors.New("no interrupt IN endpoint")

// Descriptor is one entry of a descriptor set.
type Descriptor struct {
	// Type is the bDescriptorType field.
	Type uint8

	// Data is the whole entry, header included. It aliases the scanned
	// buffer.
	Data []byte
}

// DescriptorReader walks a concatenated descriptor set such as a
// configuration descriptor.
//
// The reader is a bounds-checked cursor: each entry advances it by its own
// length field. It stops at the end of the buffer, at a zero length, at a
// length shorter than the two-byte header, or at an entry that would run
// past the buffer. The last three are reported by Err. A reader cannot be
// rewound.
type DescriptorReader struct {
	buf  []byte
	off  int
	err  error
	done bool
}

// NewDescriptorReader returns a reader over buf.
func NewDescriptorReader(buf []byte) *DescriptorReader {
	return &DescriptorReader{buf: buf}
}

// Next returns the next entry, or false when the scan has stopped.
func (r *DescriptorReader) Next() (Descriptor, bool) {
	if r.done {
		return Descriptor{}, false
	}
	rem := len(r.buf) - r.off
	if rem == 0 {
		r.done = true
		return Descriptor{}, false
	}
	if rem < 2 {
		return r.fail("truncated header at offset %d", r.off)
	}
	n := int(r.buf[r.off])
	switch {
	case n == 0:
		return r.fail("zero length at offset %d", r.off)
	case n < 2:
		return r.fail("length %d at offset %d", n, r.off)
	case n > rem:
		return r.fail("length %d at offset %d overruns %d remaining bytes", n, r.off, rem)
	}
	d := Descriptor{Type: r.buf[r.off+1], Data: r.buf[r.off : r.off+n]}
	r.off += n
	return d, true
}

func (r *DescriptorReader) fail(format string, args ...any) (Descriptor, bool) {
	r.done = true
	r.err = fmt.Errorf("%w: "+format, append([]any{pkg.ErrMalformedDescriptor}, args...)...)
	return Descriptor{}, false
}

// Err returns the reason the scan stopped early, or nil if it reached the
// end of the buffer or has not stopped yet.
func (r *DescriptorReader) Err() error {
	return r.err
}

// All returns the remaining entries as a sequence. Entries consumed by
// the sequence are not seen by later calls to Next.
func (r *DescriptorReader) All() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for {
			d, ok := r.Next()
			if !ok || !yield(d) {
				return
			}
		}
	}
}

// FindInterruptIn returns the first interrupt IN endpoint in buf.
//
// A truncated buffer is not an error as long as the endpoint precedes the
// truncation.
func FindInterruptIn(buf []byte) (hal.EndpointDescriptor, error) {
	r := NewDescriptorReader(buf)
	for d := range r.All() {
		if d.Type != hal.DescriptorTypeEndpoint {
			continue
		}
		var ep hal.EndpointDescriptor
		if !hal.ParseEndpointDescriptor(d.Data, &ep) {
			continue
		}
		if ep.IsInterruptIn() {
			return ep, nil
		}
	}
	if err := r.Err(); err != nil {
		return hal.EndpointDescriptor{}, fmt.Errorf("%w: %w", ErrNoInterruptEndpoint, err)
	}
	return hal.EndpointDescriptor{}, ErrNoInterruptEndpoint
}
