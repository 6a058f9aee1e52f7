package trace_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/trace"
)

func TestRunWritesOneLinePerEvent(t *testing.T) {
	b, err := broker.Make(t.Context(), &config.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	path := filepath.Join(t.TempDir(), "trace.jsonl")
	f, err := trace.OpenRotatingFile(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	hub := trace.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	go trace.Run(ctx, b, f, hub)
	t.Cleanup(cancel)

	time.Sleep(20 * time.Millisecond) // let the subscriptions register
	require.NoError(t, b.Publish("S_48", []byte("signaling-payload")))
	require.NoError(t, b.Publish("V_7", []byte("voice-payload")))
	time.Sleep(50 * time.Millisecond)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	scanner := bufio.NewScanner(strings.NewReader(string(contents)))
	lines := 0
	for scanner.Scan() {
		if scanner.Text() != "" {
			lines++
		}
	}
	require.Equal(t, 2, lines)
}
