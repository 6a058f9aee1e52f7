package broker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/tetrahub/tetralog/internal/config"
)

// connsPerCPU and maxIdleTime mirror the pool sizing DMRHub's redis pubsub
// backend used (internal/pubsub/redis.go), inlined here since the shared
// consts package that held them was domain-specific to that repo.
const (
	connsPerCPU = 10
	maxIdleTime = 5 * time.Minute
)

func makeRedisBroker(ctx context.Context, cfg *config.Config) (*redisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		PoolFIFO:        true,
		PoolSize:        runtime.GOMAXPROCS(0) * connsPerCPU,
		MinIdleConns:    runtime.GOMAXPROCS(0),
		ConnMaxIdleTime: maxIdleTime,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		if err := redisotel.InstrumentTracing(client); err != nil {
			return nil, fmt.Errorf("failed to trace redis: %w", err)
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
		}
	}

	return &redisBroker{client: client}, nil
}

type redisBroker struct {
	client *redis.Client
}

func (b *redisBroker) Publish(topic string, payload []byte) error {
	ctx := context.Background()
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

// Subscribe uses Redis pattern-subscribe, matching a prefix against "prefix*".
// A literal topic like "V_12345" subscribes only to that call's voice
// stream; "S_" subscribes to every signaling message.
func (b *redisBroker) Subscribe(prefix string) Subscription {
	ctx := context.Background()
	sub := b.client.PSubscribe(ctx, prefix+"*")
	s := &redisSubscription{sub: sub, ch: make(chan Message, deliveryBufferSize)}
	go s.forward()
	return s
}

func (b *redisBroker) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

type redisSubscription struct {
	sub *redis.PubSub
	ch  chan Message
}

// forward runs for the lifetime of the subscription, translating redis
// messages onto ch. It is the only writer to ch, so it closes ch itself once
// sub's underlying channel closes (on Close or connection loss) — unlike the
// in-memory backend, there is no concurrent Publish caller to race against.
func (s *redisSubscription) forward() {
	for msg := range s.sub.Channel() {
		s.ch <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}
	}
	close(s.ch)
}

func (s *redisSubscription) Close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("failed to close redis subscription: %w", err)
	}
	return nil
}

// Channel returns the same channel for the lifetime of the subscription.
// Callers (router.forward, persistence.Run, trace.Run) read it from inside a
// loop's select, so a fresh channel per call would orphan whichever one the
// previous iteration was reading from.
func (s *redisSubscription) Channel() <-chan Message {
	return s.ch
}
