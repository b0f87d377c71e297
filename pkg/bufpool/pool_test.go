package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsRequestedLength(t *testing.T) {
	p := New()
	arr := p.Get(64)
	require.Len(t, arr, 64)
}

func TestRecycleThenGetReusesBackingArray(t *testing.T) {
	p := New()
	arr := p.Get(32)
	arr[0] = 0xAB
	p.Recycle(arr)

	got := p.Get(32)
	require.Equal(t, byte(0xAB), got[0], "expected the recycled array to be reused, not a fresh allocation")
}

// Double-recycle guard: recycling the same array twice must never let two
// Get calls hand out the same backing array.
func TestDoubleRecycleNeverYieldsSameArrayTwice(t *testing.T) {
	p := New()
	arr := p.Get(16)
	p.Recycle(arr)
	p.Recycle(arr)

	first := p.Get(16)
	second := p.Get(16)
	require.NotSame(t, &first[0], &second[0])
}

func TestRecycleEmptySliceIsNoop(t *testing.T) {
	p := New()
	p.Recycle(nil)
	p.Recycle([]byte{})
	require.Empty(t, p.stacks)
}

func TestResetClearsPooledArrays(t *testing.T) {
	p := New()
	arr := p.Get(8)
	p.Recycle(arr)
	p.Reset()
	require.Empty(t, p.stacks)
	require.Empty(t, p.recycled)
}
