package broker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
)

func TestMemoryBrokerPrefixFanOut(t *testing.T) {
	cfg := &config.Config{}
	b, err := broker.Make(t.Context(), cfg)
	require.NoError(t, err)
	defer b.Close()

	sigSub := b.Subscribe("S_")
	voiceSub := b.Subscribe("V_42")
	defer sigSub.Close()
	defer voiceSub.Close()

	require.NoError(t, b.Publish("S_1", []byte("keepalive")))
	require.NoError(t, b.Publish("V_42", []byte("voice-42")))
	require.NoError(t, b.Publish("V_43", []byte("voice-43")))

	select {
	case msg := <-sigSub.Channel():
		assert.Equal(t, "S_1", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("signaling subscriber received nothing")
	}

	select {
	case msg := <-voiceSub.Channel():
		assert.Equal(t, "V_42", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("voice subscriber received nothing")
	}

	select {
	case msg := <-voiceSub.Channel():
		t.Fatalf("voice subscriber for V_42 should not see V_43, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerDropsWhenSubscriberSlow(t *testing.T) {
	cfg := &config.Config{}
	b, err := broker.Make(t.Context(), cfg)
	require.NoError(t, err)
	defer b.Close()

	sub := b.Subscribe("S_")
	defer sub.Close()

	for i := 0; i < 1000; i++ {
		require.NoError(t, b.Publish("S_1", []byte("x")))
	}

	// Publish must never block regardless of how far the channel lags.
	assert.NoError(t, b.Publish("S_1", []byte("final")))
}

func TestMemoryBrokerUnsubscribeStopsDelivery(t *testing.T) {
	cfg := &config.Config{}
	b, err := broker.Make(t.Context(), cfg)
	require.NoError(t, err)
	defer b.Close()

	sub := b.Subscribe("S_")
	require.NoError(t, sub.Close())

	require.NoError(t, b.Publish("S_1", []byte("after-close")))

	select {
	case msg, ok := <-sub.Channel():
		if ok {
			t.Fatalf("expected no delivery after unsubscribe, got %+v", msg)
		}
	default:
	}
}
