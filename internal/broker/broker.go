// Package broker is the in-process publish/subscribe fan-out between the
// Frame Decoder and its consumers (Call Registry, Media Router, and the
// persistence/trace collaborators). Subscribers register a topic *prefix*
// ("S_" for all signaling, "V_12345" for one call's voice) rather than an
// exact topic, so one signaling subscriber can hear every message type
// without per-msg_id registration.
//
// Grounded on DMRHub's internal/pubsub package: the same Broker/Subscription
// interface shape and the same Redis-vs-in-memory backend switch, adapted
// from exact-topic matching to prefix matching and carrying a Topic alongside
// each delivered payload so a subscriber listening on a prefix can tell which
// concrete topic produced it.
package broker

import (
	"context"
	"strings"

	"github.com/tetrahub/tetralog/internal/config"
)

// Message is one published payload, tagged with the exact topic it was
// published on.
type Message struct {
	Topic   string
	Payload []byte
}

// Broker fans out published messages to every subscriber whose registered
// prefix matches the topic.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(prefix string) Subscription
	Close() error
}

// Subscription is a live registration against a topic prefix.
type Subscription interface {
	Close() error
	Channel() <-chan Message
}

// deliveryBufferSize bounds how far a slow subscriber can lag before
// Publish starts dropping messages to it rather than blocking the
// publisher (spec: best-effort, non-blocking fan-out).
const deliveryBufferSize = 256

// Make builds the configured Broker backend.
func Make(ctx context.Context, cfg *config.Config) (Broker, error) {
	if cfg.Redis.Enabled {
		return makeRedisBroker(ctx, cfg)
	}
	return makeMemoryBroker(), nil
}

func matches(prefix, topic string) bool {
	return strings.HasPrefix(topic, prefix)
}
