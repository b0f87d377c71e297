package latency

import "github.com/google/btree"

// Window tracks the minimum RTT observed over the last N samples, adapted
// from the teacher's rttSampler (vendored github.com/skycoin/net/conn,
// udp.go): a fixed-size ring buffer backed by a google/btree.BTree so the
// current minimum is available in O(log N) after each push/evict, rather
// than rescanning the ring.
//
// The spec's RTT estimate itself is a plain EWMA (see Engine.ReceivedPong);
// Window is supplementary diagnostics a host can attach to watch the best
// recently observed RTT alongside the smoothed average, e.g. for exposure
// through pkg/diagstore.
type Window struct {
	tree  *btree.BTree
	ring  []sample
	mask  int
	index int
	full  bool
}

type sample struct {
	seq int64
	rtt float64
}

func (a sample) Less(than btree.Item) bool {
	b := than.(sample)
	if a.rtt != b.rtt {
		return a.rtt < b.rtt
	}
	return a.seq < b.seq
}

// NewWindow returns a Window holding the last size samples. size is
// rounded up to the next power of two, matching the teacher's ring-buffer
// sizing convention.
func NewWindow(size int) *Window {
	if size < 2 {
		size = 2
	}
	n := 1
	for n < size {
		n <<= 1
	}
	return &Window{
		ring: make([]sample, n),
		mask: n - 1,
		tree: btree.New(2),
	}
}

// Push records a new RTT sample (seconds) and returns the current minimum
// over the window.
func (w *Window) Push(seq int64, rtt float64) float64 {
	old := w.ring[w.index]
	if w.full {
		w.tree.Delete(old)
	}
	next := sample{seq: seq, rtt: rtt}
	w.ring[w.index] = next
	w.tree.ReplaceOrInsert(next)
	w.index = (w.index + 1) & w.mask
	if w.index == 0 {
		w.full = true
	}
	return w.Min()
}

// Min returns the minimum RTT currently in the window, or 0 if empty.
func (w *Window) Min() float64 {
	item := w.tree.Min()
	if item == nil {
		return 0
	}
	return item.(sample).rtt
}
