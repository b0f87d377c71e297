package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteBitsRoundTrip(t *testing.T) {
	for n := uint(1); n <= 64; n++ {
		for p := uint(0); p <= 7; p++ {
			buf := make([]byte, 16)
			var v uint64
			if n == 64 {
				v = 0xDEADBEEFCAFEBABE
			} else {
				v = (uint64(1) << n) - 1
			}
			WriteBits(buf, v, n, p)
			got := ReadBits(buf, n, p)
			require.Equalf(t, v, got, "n=%d p=%d", n, p)
		}
	}
}

func TestReadWriteBits32NarrowRange(t *testing.T) {
	for n := uint(1); n <= 32; n++ {
		buf := make([]byte, 8)
		v := uint32((uint64(1) << n) - 1)
		WriteBits32(buf, v, n, 3)
		require.Equal(t, v, ReadBits32(buf, n, 3))
	}
}

func TestReadWriteBytesAlignedFastPath(t *testing.T) {
	buf := make([]byte, 8)
	WriteBytes(buf, []byte{0x01, 0x02, 0x03}, 0)
	got := make([]byte, 3)
	ReadBytes(buf, 3, 0, got, 0)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, got)
}

func TestReadWriteBytesUnaligned(t *testing.T) {
	buf := make([]byte, 8)
	WriteBytes(buf, []byte{0xFF, 0x00, 0xAA}, 3)
	got := make([]byte, 3)
	ReadBytes(buf, 3, 3, got, 0)
	require.Equal(t, []byte{0xFF, 0x00, 0xAA}, got)
}
