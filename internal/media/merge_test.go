package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func frameOf(b byte, n int) []byte {
	f := make([]byte, n)
	for i := range f {
		f[i] = b
	}
	return f
}

// TestDuplexMergeScenario follows spec scenario 3: deliver A0, B0, A1, A2, B2.
// Expect two merged frames: interleave(A0,B0) and interleave(A2,B2); B2
// pairs with A2 because A2 overwrote A1 before any B arrived to claim it.
func TestDuplexMergeScenario(t *testing.T) {
	m := &duplexMerger{}
	a0, b0 := frameOf(0xA0, 4), frameOf(0xB0, 4)
	a1 := frameOf(0xA1, 4)
	a2, b2 := frameOf(0xA2, 4), frameOf(0xB2, 4)

	m.observeA(a0)
	out0, ok := m.observeB(b0)
	assert.True(t, ok)
	assert.Equal(t, interleave(a0, b0), out0)

	m.observeA(a1)
	m.observeA(a2)
	out1, ok := m.observeB(b2)
	assert.True(t, ok)
	assert.Equal(t, interleave(a2, b2), out1)
}

func TestDuplexMergeDropsBWithoutPriorA(t *testing.T) {
	m := &duplexMerger{}
	_, ok := m.observeB(frameOf(0xB0, 4))
	assert.False(t, ok)
}

func TestDuplexMergeExcessANeverEmitsAlone(t *testing.T) {
	m := &duplexMerger{}
	m.observeA(frameOf(1, 4))
	m.observeA(frameOf(2, 4))
	m.observeA(frameOf(3, 4))
	// No B ever arrived: nothing should have been emitted, and a late B
	// pairs only with the most recent A.
	out, ok := m.observeB(frameOf(9, 4))
	assert.True(t, ok)
	assert.Equal(t, interleave(frameOf(3, 4), frameOf(9, 4)), out)
}

func TestInterleaveByteOrder(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{10, 20, 30}
	assert.Equal(t, []byte{1, 10, 2, 20, 3, 30}, interleave(a, b))
}
