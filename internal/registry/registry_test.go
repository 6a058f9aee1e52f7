package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/protocol"
	"github.com/tetrahub/tetralog/internal/registry"
)

func TestGroupCallLifecycle(t *testing.T) {
	var removed []*registry.LiveCall
	r := registry.New(300*time.Second, nil, func(c *registry.LiveCall) {
		removed = append(removed, c)
	})

	now := time.Now()
	r.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{
		CallID: 9001,
		Action: protocol.ActionNewCallSetup,
	}}, now)

	call, ok := r.Get(9001)
	require.True(t, ok)
	assert.Equal(t, registry.KindGroup, call.Kind)

	for i := 0; i < 4; i++ {
		now = now.Add(time.Millisecond)
		assert.True(t, r.Touch(9001, now))
	}

	r.HandleSignaling(protocol.Event{Message: protocol.GroupCallRelease{CallID: 9001}}, now)

	_, ok = r.Get(9001)
	assert.False(t, ok)
	require.Len(t, removed, 1)
	assert.Equal(t, uint32(9001), removed[0].CallID)
}

func TestReleaseOfUnknownCallIsNotFatal(t *testing.T) {
	r := registry.New(300*time.Second, nil, nil)
	assert.False(t, r.Remove(12345))
}

func TestInactivitySweepRemovesStaleCalls(t *testing.T) {
	var released []uint32
	r := registry.New(300*time.Second, nil, func(c *registry.LiveCall) {
		released = append(released, c.CallID)
	})

	start := time.Now()
	r.HandleSignaling(protocol.Event{Message: protocol.DuplexCallChange{
		CallID: 42,
		Action: protocol.ActionNewCallSetup,
		Header: protocol.Header{MsgID: protocol.MsgDuplexCallChange},
	}}, start)

	stillActive := r.Sweep(start.Add(100 * time.Second))
	assert.Empty(t, stillActive)

	stale := r.Sweep(start.Add(301 * time.Second))
	require.Len(t, stale, 1)
	assert.Equal(t, uint32(42), stale[0])
	assert.Equal(t, []uint32{42}, released)

	_, ok := r.Get(42)
	assert.False(t, ok)
}

func TestSimplexStartChangeDistinguishedByHeader(t *testing.T) {
	r := registry.New(300*time.Second, nil, nil)
	now := time.Now()

	r.HandleSignaling(protocol.Event{Message: protocol.DuplexCallChange{
		CallID: 1,
		Action: protocol.ActionNewCallSetup,
		Header: protocol.Header{MsgID: protocol.MsgSimplexCallStartChange},
	}}, now)
	call, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, registry.KindSimplex, call.Kind)

	r.HandleSignaling(protocol.Event{Message: protocol.DuplexCallChange{
		CallID: 2,
		Action: protocol.ActionNewCallSetup,
		Header: protocol.Header{MsgID: protocol.MsgDuplexCallChange},
	}}, now)
	call, ok = r.Get(2)
	require.True(t, ok)
	assert.Equal(t, registry.KindDuplex, call.Kind)
}

func TestActiveCallIDsSnapshot(t *testing.T) {
	r := registry.New(300*time.Second, nil, nil)
	now := time.Now()
	r.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 1, Action: protocol.ActionNewCallSetup}}, now)
	r.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 2, Action: protocol.ActionNewCallSetup}}, now)

	ids := r.ActiveCallIDs()
	assert.ElementsMatch(t, []uint32{1, 2}, ids)
}
