package media

// duplexMerger holds the most recent half-frame from each side of a duplex
// call and implements the prefer-fresh-A merge policy from §4.4.
//
// On an A frame: replace cache_a unconditionally (an unpaired B, if any, is
// discarded — "A without B does not emit").
// On a B frame: if cache_a is empty, drop (unaligned). Otherwise store in
// cache_b, interleave with cache_a byte-by-byte (A0,B0,A1,B1,...), emit, and
// clear both caches so a repeated B never re-pairs with a stale A.
type duplexMerger struct {
	cacheA []byte
	cacheB []byte
}

// observeA records a fresh A-side half-frame and discards any pending B.
func (m *duplexMerger) observeA(frame []byte) {
	m.cacheA = frame
	m.cacheB = nil
}

// observeB records a B-side half-frame. It returns the interleaved stereo
// frame and true if this pairs with a pending A; otherwise (no pending A)
// it returns nil, false and the frame is dropped as unaligned.
func (m *duplexMerger) observeB(frame []byte) ([]byte, bool) {
	if m.cacheA == nil {
		return nil, false
	}
	m.cacheB = frame
	out := interleave(m.cacheA, m.cacheB)
	m.cacheA = nil
	m.cacheB = nil
	return out, true
}

// interleave builds a 2N-byte stereo frame from two N-byte mono frames:
// a[0], b[0], a[1], b[1], …, a[N-1], b[N-1]. The shorter length wins if a
// and b ever differ (the wire format guarantees both are 480 bytes for
// A-law, but the algorithm itself doesn't assume it).
func interleave(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		out[2*i] = a[i]
		out[2*i+1] = b[i]
	}
	return out
}
