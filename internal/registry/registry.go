// Package registry is the Call Registry (C3): it tracks currently active
// calls inferred from signaling events and expires stale entries.
//
// Grounded on DMRHub's calltracker package (internal/dmr/calltracker/call_tracker.go)
// for the map-of-active-entities shape, but replaces its per-call
// time.AfterFunc timers with a periodic sweep, since spec-level inactivity
// handling here is driven by an external scheduler (internal/collector's
// gocron job) rather than one timer per call. The concurrent map itself
// follows the xsync.Map usage in internal/dmr/hub/subscription_manager.go.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/tetrahub/tetralog/internal/metrics"
	"github.com/tetrahub/tetralog/internal/protocol"
)

// Kind is the call type inferred from which signaling variant opened it.
type Kind string

const (
	KindDuplex  Kind = "duplex"
	KindSimplex Kind = "simplex"
	KindGroup   Kind = "group"
)

// NoFeeder marks a LiveCall with no attached feeder.
const NoFeeder = -1

// LiveCall is one call the registry currently considers active.
type LiveCall struct {
	mu sync.Mutex

	CallID       uint32
	Kind         Kind
	lastActivity time.Time
	feederIndex  int
}

func (c *LiveCall) touch(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.mu.Unlock()
}

// LastActivity returns the time the call was set up or, if later, the time
// of the most recent voice frame observed for it. Other signaling events for
// the call do not refresh it.
func (c *LiveCall) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// FeederIndex returns the feeder arena index bound to this call, or
// NoFeeder if none.
func (c *LiveCall) FeederIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feederIndex
}

// SetFeederIndex binds (or clears, with NoFeeder) the feeder arena index.
func (c *LiveCall) SetFeederIndex(idx int) {
	c.mu.Lock()
	c.feederIndex = idx
	c.mu.Unlock()
}

// Registry is the live-call map plus the periodic-sweep maintenance policy.
type Registry struct {
	calls            *xsync.Map[uint32, *LiveCall]
	inactivityPeriod time.Duration
	metrics          *metrics.Metrics

	// onRemove is invoked synchronously while the call is being torn down
	// (explicit release or inactivity sweep), so the Media Router can
	// release any attached feeder and unsubscribe from the call's voice
	// topic. It runs before the call is deleted from the map.
	onRemove func(*LiveCall)
}

// New builds an empty Registry. onRemove may be nil.
func New(inactivityPeriod time.Duration, m *metrics.Metrics, onRemove func(*LiveCall)) *Registry {
	return &Registry{
		calls:            xsync.NewMap[uint32, *LiveCall](),
		inactivityPeriod: inactivityPeriod,
		metrics:          m,
		onRemove:         onRemove,
	}
}

func (r *Registry) insert(callID uint32, kind Kind, now time.Time) {
	call := &LiveCall{CallID: callID, Kind: kind, lastActivity: now, feederIndex: NoFeeder}
	r.calls.Store(callID, call)
	if r.metrics != nil {
		r.metrics.RecordCallStarted()
		r.metrics.SetActiveCalls(r.calls.Size())
	}
}

// Get returns the LiveCall for callID, if tracked.
func (r *Registry) Get(callID uint32) (*LiveCall, bool) {
	return r.calls.Load(callID)
}

// ActiveCallIDs returns a snapshot of every tracked call id, for the Control
// API's GET_ACTIVE_CALLS.
func (r *Registry) ActiveCallIDs() []uint32 {
	ids := make([]uint32, 0, r.calls.Size())
	r.calls.Range(func(id uint32, _ *LiveCall) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Remove tears down callID via the same path as an explicit release or
// inactivity sweep: onRemove runs first (so the feeder can be released)
// and the entry is deleted afterward. Removing a call that isn't tracked
// is not an error — the event is logged by the caller, not here.
func (r *Registry) Remove(callID uint32) bool {
	call, ok := r.calls.Load(callID)
	if !ok {
		return false
	}
	if r.onRemove != nil {
		r.onRemove(call)
	}
	r.calls.Delete(callID)
	if r.metrics != nil {
		r.metrics.SetActiveCalls(r.calls.Size())
	}
	return true
}

// Touch refreshes last_activity for callID, e.g. on an arriving voice
// frame. It is a no-op if the call isn't tracked (protocol violation,
// logged by the caller).
func (r *Registry) Touch(callID uint32, now time.Time) bool {
	call, ok := r.calls.Load(callID)
	if !ok {
		return false
	}
	call.touch(now)
	return true
}

// Sweep removes every call whose last activity is older than now minus the
// configured inactivity period, returning the removed call ids. Keys are
// collected before any mutation so concurrent Touch/Remove calls during the
// sweep never race against iteration.
func (r *Registry) Sweep(now time.Time) []uint32 {
	cutoff := now.Add(-r.inactivityPeriod)
	var stale []uint32
	r.calls.Range(func(id uint32, call *LiveCall) bool {
		if call.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
		return true
	})
	for _, id := range stale {
		r.Remove(id)
	}
	return stale
}

// HandleSignaling applies one decoded signaling event's effect on the
// active-call set, per §4.3: NewCallSetup inserts, a release removes, and
// any other event is ignored by the registry (the Media Router and
// persistence collaborator react to their own subsets independently).
func (r *Registry) HandleSignaling(ev protocol.Event, now time.Time) {
	switch msg := ev.Message.(type) {
	case protocol.DuplexCallChange:
		// msg_id 0x10 (duplex) and 0x20 (simplex) share this Go type; the
		// embedded header's MsgID says which one actually arrived.
		if msg.Action != protocol.ActionNewCallSetup {
			return
		}
		if msg.Header.MsgID == protocol.MsgSimplexCallStartChange {
			r.insert(msg.CallID, KindSimplex, now)
		} else {
			r.insert(msg.CallID, KindDuplex, now)
		}
	case protocol.GroupCallStartChange:
		if msg.Action == protocol.ActionNewCallSetup {
			r.insert(msg.CallID, KindGroup, now)
		}
	case protocol.CallRelease:
		if !r.Remove(msg.CallID) {
			slog.Warn("registry: release for unknown call", "call_id", msg.CallID)
		}
	case protocol.GroupCallRelease:
		if !r.Remove(msg.CallID) {
			slog.Warn("registry: release for unknown call", "call_id", msg.CallID)
		}
	}
}
