package host

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/dwc2usb/host/hal"
	"github.com/ardnew/dwc2usb/pkg"
)

// gamepadConfig builds a configuration with one interface, a class
// descriptor and the given endpoints.
func gamepadConfig(value uint8, eps ...hal.EndpointDescriptor) []byte {
	hidDesc := []byte{9, hal.DescriptorTypeHID, 0x11, 0x01, 0, 1, 0x22, 0x3F, 0}
	total := hal.ConfigurationDescriptorSize + hal.InterfaceDescriptorSize +
		len(hidDesc) + len(eps)*hal.EndpointDescriptorSize
	buf := make([]byte, total)

	cfg := hal.ConfigurationDescriptor{
		TotalLength:        uint16(total),
		NumInterfaces:      1,
		ConfigurationValue: value,
		Attributes:         hal.ConfigAttrBusPowered,
		MaxPower:           250,
	}
	off := cfg.MarshalTo(buf)
	iface := hal.InterfaceDescriptor{NumEndpoints: uint8(len(eps)), InterfaceClass: 0xFF}
	off += iface.MarshalTo(buf[off:])
	off += copy(buf[off:], hidDesc)
	for _, ep := range eps {
		off += ep.MarshalTo(buf[off:])
	}
	return buf
}

var (
	interruptIn  = hal.EndpointDescriptor{EndpointAddress: 0x81, Attributes: 0x03, MaxPacketSize: 0x0040, Interval: 4}
	interruptOut = hal.EndpointDescriptor{EndpointAddress: 0x01, Attributes: 0x03, MaxPacketSize: 0x0020, Interval: 8}
	bulkIn       = hal.EndpointDescriptor{EndpointAddress: 0x82, Attributes: 0x02, MaxPacketSize: 0x0040}
)

// =============================================================================
// DescriptorReader Tests
// =============================================================================

func TestDescriptorReader_Walk(t *testing.T) {
	buf := gamepadConfig(1, interruptOut, interruptIn)
	r := NewDescriptorReader(buf)

	var types []uint8
	total := 0
	for d := range r.All() {
		types = append(types, d.Type)
		assert.Equal(t, int(d.Data[0]), len(d.Data))
		total += len(d.Data)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []uint8{
		hal.DescriptorTypeConfiguration,
		hal.DescriptorTypeInterface,
		hal.DescriptorTypeHID,
		hal.DescriptorTypeEndpoint,
		hal.DescriptorTypeEndpoint,
	}, types)
	assert.Equal(t, len(buf), total)

	_, ok := r.Next()
	assert.False(t, ok, "reader does not rewind")
}

func TestDescriptorReader_Empty(t *testing.T) {
	r := NewDescriptorReader(nil)
	_, ok := r.Next()
	assert.False(t, ok)
	assert.NoError(t, r.Err())
}

func TestDescriptorReader_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		buf   []byte
		count int
	}{
		{"zero length", []byte{0, 4, 9, 2}, 0},
		{"length one", []byte{1, 4}, 0},
		{"truncated header", []byte{2, 0x21, 7}, 1},
		{"overrun", []byte{9, 2, 0, 0, 1}, 0},
		{"overrun after entries", append(gamepadConfig(1), 7, 5, 0x81), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewDescriptorReader(tt.buf)
			count := 0
			for range r.All() {
				count++
			}
			assert.Equal(t, tt.count, count)
			assert.ErrorIs(t, r.Err(), pkg.ErrMalformedDescriptor)
		})
	}
}

// =============================================================================
// FindInterruptIn Tests
// =============================================================================

func TestFindInterruptIn(t *testing.T) {
	t.Run("bare endpoint", func(t *testing.T) {
		ep, err := FindInterruptIn([]byte{0x07, 0x05, 0x81, 0x03, 0x40, 0x00, 0x04})
		require.NoError(t, err)
		assert.Equal(t, uint8(1), ep.Number())
		assert.Equal(t, hal.DirectionIn, ep.Direction())
		assert.Equal(t, hal.EndpointInterrupt, ep.TransferType())
		assert.Equal(t, uint16(64), ep.MaxPacketSize)
	})

	t.Run("skips other endpoints", func(t *testing.T) {
		ep, err := FindInterruptIn(gamepadConfig(1, bulkIn, interruptOut, interruptIn))
		require.NoError(t, err)
		assert.Equal(t, interruptIn, ep)
	})

	t.Run("first match wins", func(t *testing.T) {
		second := interruptIn
		second.EndpointAddress = 0x83
		ep, err := FindInterruptIn(gamepadConfig(1, interruptIn, second))
		require.NoError(t, err)
		assert.Equal(t, uint8(1), ep.Number())
	})

	t.Run("found before truncation", func(t *testing.T) {
		buf := gamepadConfig(1, interruptIn, interruptOut)
		ep, err := FindInterruptIn(buf[:len(buf)-3])
		require.NoError(t, err)
		assert.Equal(t, interruptIn, ep)
	})

	t.Run("none", func(t *testing.T) {
		_, err := FindInterruptIn(gamepadConfig(1, interruptOut, bulkIn))
		require.ErrorIs(t, err, ErrNoInterruptEndpoint)
		assert.NotErrorIs(t, err, pkg.ErrMalformedDescriptor)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := FindInterruptIn(nil)
		assert.ErrorIs(t, err, ErrNoInterruptEndpoint)
	})

	t.Run("truncated", func(t *testing.T) {
		buf := gamepadConfig(1, interruptIn)
		_, err := FindInterruptIn(buf[:len(buf)-2])
		require.ErrorIs(t, err, ErrNoInterruptEndpoint)
		assert.ErrorIs(t, err, pkg.ErrMalformedDescriptor)
	})

	t.Run("short endpoint entry", func(t *testing.T) {
		// A 4-byte endpoint entry cannot be parsed and is skipped.
		buf := slices.Concat([]byte{4, 5, 0x81, 3}, []byte{0x07, 0x05, 0x82, 0x03, 0x08, 0x00, 0x0A})
		ep, err := FindInterruptIn(buf)
		require.NoError(t, err)
		assert.Equal(t, uint8(2), ep.Number())
	})
}

func TestConfigurationValue(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want uint8
	}{
		{"named", gamepadConfig(3), 3},
		{"zero", gamepadConfig(0), defaultConfiguration},
		{"short", []byte{9, 2, 0, 0, 1}, defaultConfiguration},
		{"wrong type", []byte{9, 4, 0, 0, 1, 7, 0, 0, 0}, defaultConfiguration},
		{"empty", nil, defaultConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, configurationValue(tt.buf))
		})
	}
}
