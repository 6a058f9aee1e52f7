// Package collector is the Frame Decoder's socket-facing half (C1): it owns
// the UDP ingestion socket, feeds arriving datagrams through
// internal/protocol's Decoder, publishes each decoded event to the Broker,
// touches the Call Registry on signaling/voice activity, and schedules the
// periodic inactivity sweep.
//
// Grounded on DMRHub's internal/dmr/server.go Listen/listen loop for the
// read-then-dispatch shape, and internal/dmr/netscheduler for the gocron
// scheduler wiring.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/metrics"
	"github.com/tetrahub/tetralog/internal/protocol"
	"github.com/tetrahub/tetralog/internal/registry"
)

// datagramBufferSize bounds one read from the ingestion socket. The vendor
// log server never sends a datagram larger than the biggest signaling
// variant (TextSDS, header + 688 bytes) or a voice frame (20 + 480 bytes),
// so this comfortably covers either with room to spare.
const datagramBufferSize = 2048

// Collector owns the UDP ingestion socket and the reassembly buffer that
// bridges datagram boundaries and Decoder.Decode's byte-stream contract.
type Collector struct {
	conn      *net.UDPConn
	decoder   *protocol.Decoder
	broker    broker.Broker
	registry  *registry.Registry
	metrics   *metrics.Metrics
	scheduler gocron.Scheduler

	// reassembly is the carry-over buffer described in §3: bytes Decode
	// couldn't yet consume (a partial message) are kept here and prefixed
	// onto the next datagram read. Its length is bounded by one datagram
	// plus the largest recognized message size (P2).
	reassembly []byte
}

// Listen opens the UDP ingestion socket and builds the Collector around it.
func Listen(cfg config.CollectorConfig) (*Collector, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(cfg.Bind), Port: cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("collector: listen %s:%d: %w", cfg.Bind, cfg.Port, err)
	}
	return &Collector{conn: conn, decoder: protocol.NewDecoder()}, nil
}

// Wire attaches the Broker, Registry, and Metrics the run loop publishes
// to and touches. Kept separate from Listen so tests can open a Collector
// against an ephemeral port without standing up the whole component graph.
func (c *Collector) Wire(b broker.Broker, reg *registry.Registry, m *metrics.Metrics) {
	c.broker = b
	c.registry = reg
	c.metrics = m
}

// LocalAddr returns the address the ingestion socket is bound to.
func (c *Collector) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the ingestion socket and stops the scheduler, if started.
func (c *Collector) Close() error {
	if c.scheduler != nil {
		_ = c.scheduler.Shutdown()
	}
	return c.conn.Close()
}

// Run reads datagrams until ctx is canceled, decoding and publishing each
// recognized event. A read error is logged and the loop continues (§7 kind
// 1, transient I/O).
func (c *Collector) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	buf := make([]byte, datagramBufferSize)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("collector: read failed", "error", err)
			continue
		}
		c.ingest(buf[:n])
	}
}

func (c *Collector) ingest(datagram []byte) {
	c.reassembly = append(c.reassembly, datagram...)

	events, consumed := c.decoder.Decode(c.reassembly)
	c.reassembly = append(c.reassembly[:0], c.reassembly[consumed:]...)

	now := time.Now()
	for _, ev := range events {
		c.publish(ev, now)
	}
}

func (c *Collector) publish(ev protocol.Event, now time.Time) {
	if c.metrics != nil {
		c.metrics.RecordFrameDecoded(kindLabel(ev.Kind))
	}

	if c.broker != nil {
		if err := c.broker.Publish(ev.Topic, ev.Raw); err != nil {
			slog.Warn("collector: publish failed", "topic", ev.Topic, "error", err)
		}
	}

	if c.registry == nil {
		return
	}
	switch ev.Kind {
	case protocol.EventSignaling:
		c.registry.HandleSignaling(ev, now)
	case protocol.EventVoice, protocol.EventVoiceDropped:
		if vf, ok := ev.Message.(*protocol.VoiceFrame); ok && !c.registry.Touch(vf.Header.CallID, now) {
			slog.Debug("collector: voice frame for unknown call", "call_id", vf.Header.CallID)
		}
	}
}

func kindLabel(k protocol.EventKind) string {
	switch k {
	case protocol.EventSignaling:
		return "signaling"
	case protocol.EventVoice:
		return "voice"
	case protocol.EventVoiceDropped:
		return "voice_dropped"
	default:
		return "unknown"
	}
}

// ScheduleSweep starts a gocron job that periodically runs the Call
// Registry's inactivity sweep, per spec §6.5's maintenance_frequency.
func (c *Collector) ScheduleSweep(frequency time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("collector: new scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(frequency),
		gocron.NewTask(func() {
			removed := c.registry.Sweep(time.Now())
			if len(removed) > 0 {
				slog.Debug("collector: swept stale calls", "count", len(removed))
			}
		}),
		gocron.WithName("call-inactivity-sweep"),
	)
	if err != nil {
		return fmt.Errorf("collector: schedule sweep: %w", err)
	}
	c.scheduler = s
	s.Start()
	return nil
}
