package media_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/media"
	"github.com/tetrahub/tetralog/internal/protocol"
	"github.com/tetrahub/tetralog/internal/registry"
)

func newTestBroker(t *testing.T) broker.Broker {
	t.Helper()
	b, err := broker.Make(t.Context(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFeederExhaustion(t *testing.T) {
	b := newTestBroker(t)
	reg := registry.New(300*time.Second, nil, nil)
	cfg := config.MediaConfig{
		Feeders: []config.FeederConfig{
			{Stream: "tac1", IP: "127.0.0.1", Port: 19001, Kind: config.FeederMono},
		},
		StreamEndpoint: "http://127.0.0.1:8854",
	}
	router, err := media.NewRouter(cfg, b, reg, nil)
	require.NoError(t, err)
	defer router.Close()

	now := time.Now()
	reg.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 1, Action: protocol.ActionNewCallSetup}}, now)
	reg.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 2, Action: protocol.ActionNewCallSetup}}, now)

	url, err := router.StartCallInterception(1, "alaw")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8854/tac1.alaw", url)

	_, err = router.StartCallInterception(2, "alaw")
	assert.ErrorIs(t, err, media.ErrFeederUnavailable)
}

func TestStartCallInterceptionUnknownCall(t *testing.T) {
	b := newTestBroker(t)
	reg := registry.New(300*time.Second, nil, nil)
	router, err := media.NewRouter(config.MediaConfig{StreamEndpoint: "http://x"}, b, reg, nil)
	require.NoError(t, err)
	defer router.Close()

	_, err = router.StartCallInterception(999, "alaw")
	assert.ErrorIs(t, err, media.ErrCallNotFound)
}

func TestStartCallInterceptionIdempotent(t *testing.T) {
	b := newTestBroker(t)
	reg := registry.New(300*time.Second, nil, nil)
	cfg := config.MediaConfig{
		Feeders:        []config.FeederConfig{{Stream: "tac1", IP: "127.0.0.1", Port: 19002, Kind: config.FeederMono}},
		StreamEndpoint: "http://127.0.0.1:8854",
	}
	router, err := media.NewRouter(cfg, b, reg, nil)
	require.NoError(t, err)
	defer router.Close()

	reg.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 1, Action: protocol.ActionNewCallSetup}}, time.Now())

	url1, err := router.StartCallInterception(1, "alaw")
	require.NoError(t, err)
	url2, err := router.StartCallInterception(1, "alaw")
	require.NoError(t, err)
	assert.Equal(t, url1, url2)
}

func TestStopCallInterceptionErrors(t *testing.T) {
	b := newTestBroker(t)
	reg := registry.New(300*time.Second, nil, nil)
	router, err := media.NewRouter(config.MediaConfig{StreamEndpoint: "http://x"}, b, reg, nil)
	require.NoError(t, err)
	defer router.Close()

	assert.ErrorIs(t, router.StopCallInterception(123), media.ErrNotIntercepted)
}

func encodeVoiceFrame(callID uint32, originator protocol.StreamOriginator, payload byte) []byte {
	b := make([]byte, protocol.VoiceHeaderSize+protocol.G711PayloadSize)
	binary.LittleEndian.PutUint32(b[0:4], protocol.VoiceSignature)
	b[5] = byte(originator)
	binary.LittleEndian.PutUint32(b[8:12], callID)
	b[18] = 7
	for i := protocol.VoiceHeaderSize; i < len(b); i++ {
		b[i] = payload
	}
	return b
}

func TestRouterForwardsMonoFramesVerbatim(t *testing.T) {
	b := newTestBroker(t)
	reg := registry.New(300*time.Second, nil, nil)
	conn := mustListenUDP(t)
	cfg := config.MediaConfig{
		Feeders:        []config.FeederConfig{{Stream: "tac1", IP: conn.addr.IP.String(), Port: conn.addr.Port, Kind: config.FeederMono}},
		StreamEndpoint: "http://127.0.0.1:8854",
	}
	router, err := media.NewRouter(cfg, b, reg, nil)
	require.NoError(t, err)
	defer router.Close()

	reg.HandleSignaling(protocol.Event{Message: protocol.GroupCallStartChange{CallID: 7, Action: protocol.ActionNewCallSetup}}, time.Now())
	_, err = router.StartCallInterception(7, "alaw")
	require.NoError(t, err)

	require.NoError(t, b.Publish(protocol.VoiceTopic(7), encodeVoiceFrame(7, protocol.OriginatorGroupCall, 0x42)))

	got := conn.readOne(t)
	require.Len(t, got, protocol.G711PayloadSize)
	assert.Equal(t, byte(0x42), got[0])
}
