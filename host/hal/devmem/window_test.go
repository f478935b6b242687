//go:build linux

package devmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_ReadWrite(t *testing.T) {
	const base = 0x3F980000
	w := newWindow(base, make([]byte, 0x100))

	w.Write32(base+0x40, 0xDEADBEEF)
	w.Barrier()
	assert.Equal(t, uint32(0xDEADBEEF), w.Read32(base+0x40))
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, w.mem[0x40:0x44], "native little-endian layout")
	assert.Zero(t, w.Read32(base))
	assert.Equal(t, uintptr(base), w.Base())
	require.NoError(t, w.Close())
}

func TestWindow_OutOfRange(t *testing.T) {
	const base = 0x1000
	w := newWindow(base, make([]byte, 0x10))

	assert.Panics(t, func() { w.Read32(base + 0x10) })
	assert.Panics(t, func() { w.Read32(base - 4) })
	assert.Panics(t, func() { w.Write32(base+2, 1) })
	assert.NotPanics(t, func() { w.Read32(base + 0x0C) })
}

func TestOpen_Unaligned(t *testing.T) {
	_, err := Open(0x1004, 0x1000)
	assert.Error(t, err)
}
