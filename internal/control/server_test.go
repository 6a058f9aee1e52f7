package control_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/control"
	"github.com/tetrahub/tetralog/internal/media"
	"github.com/tetrahub/tetralog/internal/registry"
)

func newTestServer(t *testing.T) *control.Server {
	t.Helper()
	b, err := broker.Make(t.Context(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	reg := registry.New(300*time.Second, nil, nil)
	router, err := media.NewRouter(config.MediaConfig{
		Feeders:        []config.FeederConfig{{Stream: "tac1", IP: "127.0.0.1", Port: 19101, Kind: config.FeederMono}},
		StreamEndpoint: "http://127.0.0.1:8854",
	}, b, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { router.Close() })

	return control.NewServer(config.ControlConfig{
		Bind:               "127.0.0.1",
		Port:               0,
		RateLimitPerSecond: 100,
	}, false, reg, router)
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/ping?echo=hello", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := decodeReply(t, rec)
	require.Equal(t, "OK", body["status"])
}

func TestGetActiveCallsEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/v1/calls", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := decodeReply(t, rec)
	require.Equal(t, "OK", body["status"])
	data := body["data"].(map[string]any)
	require.Equal(t, float64(0), data["count"])
}

func TestStartCallInterceptionUnknownCallReturnsNOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/calls/42/intercept?format=alaw", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := decodeReply(t, rec)
	require.Equal(t, "NOK", body["status"])
	require.Equal(t, "call not found", body["reason"])
}

// TestStopCallInterceptionWithoutAnActiveOneReturnsNOK covers the stop path;
// the happy path (start then stop) is covered by internal/media's router
// tests against the same StartCallInterception/StopCallInterception calls.
func TestStopCallInterceptionWithoutAnActiveOneReturnsNOK(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("DELETE", "/api/v1/calls/7/intercept", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := decodeReply(t, rec)
	require.Equal(t, "NOK", body["status"])
	require.Equal(t, "call has no active interception", body["reason"])
}

func TestPlaybackCommandsAreProxiedAsUnavailable(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/calls/7/play", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	body := decodeReply(t, rec)
	require.Equal(t, "NOK", body["status"])
	require.Equal(t, "playback collaborator not configured", body["reason"])
}

func TestBadCallIDIsRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/calls/not-a-number/intercept", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 400, rec.Code)
}
