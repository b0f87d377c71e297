package latency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowTracksMinimumAcrossPushes(t *testing.T) {
	w := NewWindow(4)
	require.Equal(t, 0.0, w.Min(), "empty window reports zero")

	require.InDelta(t, 0.5, w.Push(1, 0.5), 1e-9)
	require.InDelta(t, 0.2, w.Push(2, 0.2), 1e-9)
	require.InDelta(t, 0.2, w.Push(3, 0.9), 1e-9, "min unchanged by a larger sample")
}

func TestWindowEvictsOldestOnWrap(t *testing.T) {
	w := NewWindow(2) // rounds up to 2

	w.Push(1, 0.1)
	w.Push(2, 0.9)
	// The window only holds 2 samples; pushing a third evicts seq 1 (the
	// smallest RTT), so the minimum should rise back to the larger sample
	// still resident.
	require.InDelta(t, 0.9, w.Push(3, 0.9), 1e-9)
}

func TestWindowRoundsSizeUpToPowerOfTwo(t *testing.T) {
	w := NewWindow(3)
	require.Equal(t, 3, w.mask, "size 3 should round up to 4, mask 3")
}
