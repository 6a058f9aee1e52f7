package broker

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// memoryBroker fans out in-process with no external dependency. Grounded on
// DMRHub's in-memory pubsub stub (internal/pubsub/memory.go), which never
// actually delivered anything; this is a real implementation of the same
// slot.
type memoryBroker struct {
	subs   *xsync.Map[int64, *memorySubscription]
	nextID atomic.Int64
}

func makeMemoryBroker() *memoryBroker {
	return &memoryBroker{
		subs: xsync.NewMap[int64, *memorySubscription](),
	}
}

func (b *memoryBroker) Publish(topic string, payload []byte) error {
	msg := Message{Topic: topic, Payload: payload}
	b.subs.Range(func(_ int64, sub *memorySubscription) bool {
		if !matches(sub.prefix, topic) {
			return true
		}
		select {
		case sub.ch <- msg:
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
		return true
	})
	return nil
}

func (b *memoryBroker) Subscribe(prefix string) Subscription {
	id := b.nextID.Add(1)
	sub := &memorySubscription{
		broker: b,
		id:     id,
		prefix: prefix,
		ch:     make(chan Message, deliveryBufferSize),
	}
	b.subs.Store(id, sub)
	return sub
}

func (b *memoryBroker) Close() error {
	b.subs.Range(func(id int64, sub *memorySubscription) bool {
		close(sub.ch)
		return true
	})
	return nil
}

type memorySubscription struct {
	broker *memoryBroker
	id     int64
	prefix string
	ch     chan Message
}

func (s *memorySubscription) Close() error {
	s.broker.subs.Delete(s.id)
	return nil
}

func (s *memorySubscription) Channel() <-chan Message {
	return s.ch
}
