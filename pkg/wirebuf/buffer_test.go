package wirebuf

import (
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// Concrete scenario 1 from the spec's testable-properties list.
func TestScenarioBoolU8F32(t *testing.T) {
	b := New()
	b.WriteBool(true)
	b.WriteBool(false)
	b.WriteUint8(0x5A)
	b.WriteFloat32(1.0)

	require.Equal(t, 1+1+8+32, b.BitLength())

	got1, err := b.ReadBool()
	require.NoError(t, err)
	require.True(t, got1)

	got2, err := b.ReadBool()
	require.NoError(t, err)
	require.False(t, got2)

	got3, err := b.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x5A), got3)

	got4, err := b.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(1.0), got4)
}

// Concrete scenario 3: signed n-bit round-trip, including the classic
// sign-extension trap.
func TestScenarioSignedFiveBits(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteInt32InBits(-3, 5))
	v, err := b.ReadInt32InBits(5)
	require.NoError(t, err)
	require.Equal(t, int32(-3), v)
	require.NotEqual(t, int32(29), v)
}

func TestRoundTripEveryWidthAndOffset(t *testing.T) {
	for n := 1; n <= 32; n++ {
		max := uint32(1)<<uint(n) - 1
		for _, u := range []uint32{0, 1, max / 2, max} {
			b := New()
			require.NoError(t, b.WriteUint32InBits(u, n))
			got, err := b.ReadUint32InBits(n)
			require.NoError(t, err)
			require.Equalf(t, u, got, "n=%d u=%d", n, u)
		}
	}
}

func TestRoundTripSignedRange(t *testing.T) {
	for n := 2; n <= 32; n++ {
		lo := -(int64(1) << uint(n-1))
		hi := int64(1)<<uint(n-1) - 1
		for _, v := range []int64{lo, -1, 0, 1, hi} {
			b := New()
			require.NoError(t, b.WriteInt32InBits(int32(v), n))
			got, err := b.ReadInt32InBits(n)
			require.NoError(t, err)
			require.Equalf(t, int32(v), got, "n=%d v=%d", n, v)
		}
	}
}

func TestUint64InBitsSplitAtThirtyTwo(t *testing.T) {
	for _, n := range []int{1, 8, 32, 33, 48, 64} {
		var max uint64
		if n == 64 {
			max = math.MaxUint64
		} else {
			max = (uint64(1) << uint(n)) - 1
		}
		b := New()
		require.NoError(t, b.WriteUint64InBits(max, n))
		got, err := b.ReadUint64InBits(n)
		require.NoError(t, err)
		require.Equal(t, max, got)
	}
}

func TestReadOverflow(t *testing.T) {
	b := New()
	b.WriteUint8(1)
	_, err := b.ReadUint32()
	require.ErrorIs(t, err, ErrReadOverflow)
}

func TestTryReadFalseOnOverflowPreservesPosition(t *testing.T) {
	b := New()
	b.WriteUint8(1)
	before := b.ReadPosition()
	_, ok := b.TryReadUint32()
	require.False(t, ok)
	require.Equal(t, before, b.ReadPosition())
}

func TestPadBitsIdempotentAndByteAligned(t *testing.T) {
	b := New()
	b.WriteBool(true)
	b.WriteBool(true)
	b.WriteBool(true)
	b.SetReadPosition(0)
	b.ReadPadBits()
	require.Equal(t, 0, b.ReadPosition()%8)
	pos := b.ReadPosition()
	b.ReadPadBits()
	require.Equal(t, pos, b.ReadPosition())
}

func TestEndpointRoundTrip(t *testing.T) {
	b := New()
	ip := net.ParseIP("203.0.113.7").To4()
	b.WriteEndpoint(ip, 51820)
	gotIP, gotPort, err := b.ReadEndpoint()
	require.NoError(t, err)
	require.True(t, ip.Equal(gotIP))
	require.Equal(t, uint16(51820), gotPort)
}

func TestEndpointRoundTripIPv6(t *testing.T) {
	b := New()
	ip := net.ParseIP("2001:db8::1")
	b.WriteEndpoint(ip, 443)
	gotIP, gotPort, err := b.ReadEndpoint()
	require.NoError(t, err)
	require.True(t, ip.Equal(gotIP))
	require.Equal(t, uint16(443), gotPort)
}

func TestFloat64RoundTripUnaligned(t *testing.T) {
	b := New()
	b.WriteBool(true)
	b.WriteFloat64(math.Pi)
	b.SetReadPosition(0)
	_, err := b.ReadBool()
	require.NoError(t, err)
	got, err := b.ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, math.Pi, got)
}
