package wirebuf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// Concrete scenario 4: varint u32 of 300 produces bytes AC 02.
func TestVarintU32KnownEncoding(t *testing.T) {
	b := New()
	b.WriteVarintU32(300)
	require.Equal(t, []byte{0xAC, 0x02}, b.Bytes())

	got, err := b.ReadVarintU32()
	require.NoError(t, err)
	require.Equal(t, uint32(300), got)
	require.Equal(t, 16, b.ReadPosition())
}

func TestVarintU32RoundTripSampled(t *testing.T) {
	samples := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, math.MaxUint32}
	for _, v := range samples {
		b := New()
		b.WriteVarintU32(v)
		got, err := b.ReadVarintU32()
		require.NoError(t, err)
		require.Equalf(t, v, got, "v=%d", v)
	}
}

func TestVarintU64RoundTripSampled(t *testing.T) {
	samples := []uint64{0, 1, 127, 128, math.MaxUint32, math.MaxUint64}
	for _, v := range samples {
		b := New()
		b.WriteVarintU64(v)
		got, err := b.ReadVarintU64()
		require.NoError(t, err)
		require.Equalf(t, v, got, "v=%d", v)
	}
}

// Signed varint compactness: 0, -1, 1, -2, 2 each take exactly one byte.
func TestVarintI32CompactnessOfSmallValues(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2, 2} {
		b := New()
		b.WriteVarintI32(v)
		require.Equalf(t, 1, len(b.Bytes()), "v=%d", v)

		got, err := b.ReadVarintI32()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestVarintI64ZigZagRoundTrip(t *testing.T) {
	samples := []int64{0, -1, 1, math.MinInt64, math.MaxInt64, -12345, 12345}
	for _, v := range samples {
		b := New()
		b.WriteVarintI64(v)
		got, err := b.ReadVarintI64()
		require.NoError(t, err)
		require.Equalf(t, v, got, "v=%d", v)
	}
}

// Concrete scenario 2: string "héllo" at bit offset 3.
func TestScenarioStringAtBitOffsetThree(t *testing.T) {
	b := New()
	b.SetReadPosition(0)
	b.WritePadBits() // no-op on an empty buffer, kept for clarity of intent
	for i := 0; i < 3; i++ {
		b.WriteBool(false)
	}
	b.WriteString("héllo")

	b.SetReadPosition(3)
	got, err := b.ReadString()
	require.NoError(t, err)
	require.Equal(t, "héllo", got)
	require.Equal(t, 3+varintBits(6)+48, b.ReadPosition())
}

func varintBits(length uint32) int {
	n := 0
	for {
		n++
		length >>= 7
		if length == 0 {
			return n * 8
		}
	}
}

func TestStringRoundTripVariousLengths(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", string(make([]byte, 200))} {
		b := New()
		b.WriteString(s)
		got, err := b.ReadString()
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestStringDOSGuardReleaseMode(t *testing.T) {
	b := New()
	b.WriteVarintU32(1 << 20) // declares far more bytes than the buffer holds
	got, err := b.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", got)
	require.Equal(t, b.BitLength(), b.ReadPosition())
}

func TestStringDOSGuardDebugMode(t *testing.T) {
	b := New()
	b.DebugDOSGuard = true
	b.WriteVarintU32(1 << 20)
	_, err := b.ReadString()
	require.ErrorIs(t, err, ErrReadOverflow)
}
