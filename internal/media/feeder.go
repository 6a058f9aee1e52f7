// Package media is the Media Router (C4): on request it allocates a feeder
// matching a call's kind, subscribes to the call's voice topic, forwards
// (duplex: merges then forwards) frames to the feeder's UDP destination,
// and releases the feeder on stop, release, or inactivity.
//
// Grounded on DMRHub's UDP send path (internal/dmr/server.go's listen/send
// loop) for the outbound-socket shape, and on §9's "cyclic references"
// design note: the feeder arena replaces a LiveCall<->Feeder pointer cycle
// with an integer-indexed array the router alone owns, so "free" has one
// authoritative home.
package media

import (
	"fmt"
	"net"
	"sync"

	"github.com/tetrahub/tetralog/internal/config"
)

// Feeder is one statically configured UDP sink. The arena never grows or
// shrinks at runtime; Router.feeders is the entire set.
type Feeder struct {
	mu sync.Mutex

	Index  int
	Stream string
	Kind   config.FeederKind
	Addr   *net.UDPAddr

	free   bool
	callID uint32
}

func buildFeeders(cfgs []config.FeederConfig) ([]*Feeder, error) {
	feeders := make([]*Feeder, len(cfgs))
	for i, c := range cfgs {
		addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.IP, c.Port))
		if err != nil {
			return nil, fmt.Errorf("feeder %q: resolve %s:%d: %w", c.Stream, c.IP, c.Port, err)
		}
		feeders[i] = &Feeder{
			Index:  i,
			Stream: c.Stream,
			Kind:   c.Kind,
			Addr:   addr,
			free:   true,
		}
	}
	return feeders, nil
}

// Free reports whether the feeder is currently unallocated.
func (f *Feeder) Free() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.free
}

// BoundTo reports whether the feeder is currently allocated to callID.
func (f *Feeder) BoundTo(callID uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.free && f.callID == callID
}

// bind marks the feeder allocated to callID. Caller must already hold
// Router.mu so the free-feeder scan and the bind are atomic together.
func (f *Feeder) bind(callID uint32) {
	f.mu.Lock()
	f.free = false
	f.callID = callID
	f.mu.Unlock()
}

// release marks the feeder free again.
func (f *Feeder) release() {
	f.mu.Lock()
	f.free = true
	f.callID = 0
	f.mu.Unlock()
}

// requiredKind maps a call kind to the feeder kind it needs: duplex calls
// need a stereo feeder (interleaved two-channel), everything else needs
// mono.
func requiredKind(isDuplex bool) config.FeederKind {
	if isDuplex {
		return config.FeederStereo
	}
	return config.FeederMono
}
