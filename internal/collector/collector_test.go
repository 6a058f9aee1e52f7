package collector_test

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/collector"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/protocol"
	"github.com/tetrahub/tetralog/internal/registry"
)

func keepAliveDatagram() []byte {
	b := make([]byte, protocol.HeaderSize+96)
	binary.LittleEndian.PutUint32(b[0:4], protocol.SignalingSignature)
	b[7] = byte(protocol.MsgKeepAlive)
	return b
}

func TestCollectorPublishesDecodedEvents(t *testing.T) {
	b, err := broker.Make(t.Context(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	reg := registry.New(300*time.Second, nil, nil)

	c, err := collector.Listen(config.CollectorConfig{Bind: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.Wire(b, reg, nil)

	sub := b.Subscribe("S_")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	addr := c.LocalAddr()
	client, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Write(keepAliveDatagram())
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		require.Equal(t, "S_1", msg.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestCollectorSplitDatagramReassembles(t *testing.T) {
	b, err := broker.Make(t.Context(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	reg := registry.New(300*time.Second, nil, nil)
	c, err := collector.Listen(config.CollectorConfig{Bind: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	c.Wire(b, reg, nil)

	sub := b.Subscribe("S_")
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	addr := c.LocalAddr()
	client, err := net.DialUDP("udp", nil, addr)
	require.NoError(t, err)
	defer client.Close()

	full := keepAliveDatagram()
	_, err = client.Write(full[:50])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = client.Write(full[50:])
	require.NoError(t, err)

	select {
	case msg := <-sub.Channel():
		require.Equal(t, "S_1", msg.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
