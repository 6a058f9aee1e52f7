package media

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/metrics"
	"github.com/tetrahub/tetralog/internal/protocol"
	"github.com/tetrahub/tetralog/internal/registry"
)

// Errors returned by StartCallInterception/StopCallInterception; the
// Control API (C5) maps these to NOK replies, per §7 error kind 3.
var (
	ErrCallNotFound      = errors.New("media: call not found")
	ErrFeederUnavailable = errors.New("media: no free feeder for this call kind")
	ErrNotIntercepted    = errors.New("media: call has no active interception")
)

// Router is the Media Router (C4).
type Router struct {
	mu          sync.Mutex
	feeders     []*Feeder
	conn        *net.UDPConn
	broker      broker.Broker
	registry    *registry.Registry
	endpoint    string
	metrics     *metrics.Metrics
	active      map[uint32]*intercept
	startupSubs []broker.Subscription
	startupDone chan struct{}
}

type intercept struct {
	sub       broker.Subscription
	feederIdx int
	merger    *duplexMerger
	key       string
	done      chan struct{}
}

// dedupKey identifies one call's interception regardless of which control
// node or request accepted it, so repeated START_CALL_INTERCEPTION calls
// against a distributed Broker backend log a stable, comparable identifier.
type dedupKey struct {
	CallID uint32
	Kind   registry.Kind
}

func interceptionKey(callID uint32, kind registry.Kind) string {
	h, err := hashstructure.Hash(dedupKey{CallID: callID, Kind: kind}, hashstructure.FormatV2, nil)
	if err != nil {
		return strconv.FormatUint(uint64(callID), 10)
	}
	return strconv.FormatUint(h, 16)
}

// NewRouter builds the feeder arena and the shared outbound UDP socket.
func NewRouter(cfg config.MediaConfig, b broker.Broker, reg *registry.Registry, m *metrics.Metrics) (*Router, error) {
	feeders, err := buildFeeders(cfg.Feeders)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("media: opening outbound socket: %w", err)
	}
	r := &Router{
		feeders:     feeders,
		conn:        conn,
		broker:      b,
		registry:    reg,
		endpoint:    cfg.StreamEndpoint,
		metrics:     m,
		active:      make(map[uint32]*intercept),
		startupDone: make(chan struct{}),
	}
	r.updateFeederMetrics()
	r.subscribeAtStart(cfg.Subscriptions)
	return r, nil
}

// subscribeAtStart opens the broker prefixes configured under
// media_manager.subscriptions (§6.5) for the lifetime of the router. These
// are independent of the per-call voice subscriptions StartCallInterception
// opens on demand; they exist so the router observes the same feeds its
// collaborators do, surfaced as a per-prefix frame counter.
func (r *Router) subscribeAtStart(prefixes []string) {
	for _, prefix := range prefixes {
		sub := r.broker.Subscribe(prefix)
		r.startupSubs = append(r.startupSubs, sub)
		go r.drainStartupSub(prefix, sub)
	}
}

func (r *Router) drainStartupSub(prefix string, sub broker.Subscription) {
	for {
		select {
		case <-r.startupDone:
			return
		case _, ok := <-sub.Channel():
			if !ok {
				return
			}
			if r.metrics != nil {
				r.metrics.RecordRouterSubscriptionFrame(prefix)
			}
		}
	}
}

// Close releases the outbound socket and the startup subscriptions,
// signaling drainStartupSub to exit (the in-memory backend's
// Subscription.Close only unregisters from the broker; it never closes the
// channel itself, since that would race a concurrent Publish send).
func (r *Router) Close() error {
	close(r.startupDone)
	for _, sub := range r.startupSubs {
		sub.Close()
	}
	return r.conn.Close()
}

// StartCallInterception implements §4.4's feeder-selection algorithm.
func (r *Router) StartCallInterception(callID uint32, format string) (string, error) {
	call, ok := r.registry.Get(callID)
	if !ok {
		return "", ErrCallNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ic, ok := r.active[callID]; ok {
		// Already intercepting: idempotent, return the existing URL.
		slog.Debug("media: interception already active", "call_id", callID, "dedup_key", ic.key)
		return r.streamURL(r.feeders[ic.feederIdx], format), nil
	}

	wantKind := requiredKind(call.Kind == registry.KindDuplex)
	var feeder *Feeder
	for _, f := range r.feeders {
		if f.Kind == wantKind && f.Free() {
			feeder = f
			break
		}
	}
	if feeder == nil {
		return "", ErrFeederUnavailable
	}

	sub := r.broker.Subscribe(protocol.VoiceTopic(callID))
	feeder.bind(callID)
	call.SetFeederIndex(feeder.Index)

	ic := &intercept{sub: sub, feederIdx: feeder.Index, key: interceptionKey(callID, call.Kind), done: make(chan struct{})}
	if call.Kind == registry.KindDuplex {
		ic.merger = &duplexMerger{}
	}
	r.active[callID] = ic

	go r.forward(callID, ic, feeder)
	r.updateFeederMetrics()

	return r.streamURL(feeder, format), nil
}

// StopCallInterception implements §4.4's stop path.
func (r *Router) StopCallInterception(callID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(callID)
}

func (r *Router) stopLocked(callID uint32) error {
	ic, ok := r.active[callID]
	if !ok {
		return ErrNotIntercepted
	}
	ic.sub.Close()
	close(ic.done)
	feeder := r.feeders[ic.feederIdx]
	feeder.release()
	delete(r.active, callID)
	if call, ok := r.registry.Get(callID); ok {
		call.SetFeederIndex(registry.NoFeeder)
	}
	r.updateFeederMetrics()
	return nil
}

// ReleaseCall tears down any interception for a call the registry is
// removing (explicit release or inactivity sweep). It is wired as the
// registry's onRemove hook so §4.3's "tear down any attached feeder
// subscription" contract holds regardless of why the call went away.
func (r *Router) ReleaseCall(call *registry.LiveCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.stopLocked(call.CallID) // ErrNotIntercepted is expected and fine here
}

// forward runs for the lifetime of one call's interception, pulling voice
// frames off its subscription and either forwarding them verbatim (mono) or
// merging them (duplex) before sending to the feeder. It exits as soon as
// stopLocked closes ic.done, rather than waiting on the subscription channel
// itself to close (with the in-memory backend that only happens at
// whole-broker Close, so without this select every stopped/released/swept
// interception would leak a goroutine).
func (r *Router) forward(callID uint32, ic *intercept, feeder *Feeder) {
	for {
		var msg broker.Message
		select {
		case <-ic.done:
			return
		case m, ok := <-ic.sub.Channel():
			if !ok {
				return
			}
			msg = m
		}

		vf, err := protocol.DecodeVoiceFrame(msg.Payload)
		if err != nil {
			slog.Warn("media: malformed voice payload", "call_id", callID, "error", err)
			continue
		}
		if vf.Payload == nil {
			// Non-G.711 payload kind, already dropped by the decoder.
			continue
		}
		if !feeder.BoundTo(callID) {
			// Invariant violation: the feeder we're bound to no longer
			// points back at this call. Log and drop (§7 kind 6).
			slog.Error("media: feeder/call binding invariant violated", "call_id", callID, "feeder", feeder.Index)
			continue
		}

		if ic.merger == nil {
			r.sendTo(feeder, vf.Payload)
			continue
		}

		switch vf.Header.Originator {
		case protocol.OriginatorASub:
			ic.merger.observeA(vf.Payload)
		case protocol.OriginatorBSub:
			if out, ok := ic.merger.observeB(vf.Payload); ok {
				r.sendTo(feeder, out)
			} else {
				slog.Debug("media: dropping unaligned B-side frame", "call_id", callID)
			}
		default:
			slog.Warn("media: unexpected originator on duplex call", "call_id", callID, "originator", vf.Header.Originator)
		}
	}
}

// sendTo is best-effort UDP: failures are logged, never fatal, and never
// tear down the subscription (§4.4 failure semantics).
func (r *Router) sendTo(feeder *Feeder, payload []byte) {
	if _, err := r.conn.WriteToUDP(payload, feeder.Addr); err != nil {
		slog.Warn("media: feeder send failed", "feeder", feeder.Stream, "error", err)
	}
}

func (r *Router) streamURL(feeder *Feeder, format string) string {
	return fmt.Sprintf("%s/%s.%s", r.endpoint, feeder.Stream, format)
}

func (r *Router) updateFeederMetrics() {
	if r.metrics == nil {
		return
	}
	free, bound := 0, 0
	for _, f := range r.feeders {
		if f.Free() {
			free++
		} else {
			bound++
		}
	}
	r.metrics.SetFeederCounts(free, bound)
}
