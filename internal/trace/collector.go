package trace

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/protocol"
)

// Event is one trace line: enough to reconstruct what happened without
// carrying the full decoded struct (which varies per msg_id).
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	Kind      string    `json:"kind"`
	Bytes     int       `json:"bytes"`
}

// Run subscribes to every signaling and voice topic and appends one JSON
// line per event to file, republishing each line to hub, until ctx is
// canceled.
func Run(ctx context.Context, b broker.Broker, file *RotatingFile, hub *Hub) {
	sigSub := b.Subscribe("S_")
	voiceSub := b.Subscribe("V_")
	defer sigSub.Close()
	defer voiceSub.Close()

	record := func(topic, kind string, n int) {
		line, err := json.Marshal(Event{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Topic:     topic,
			Kind:      kind,
			Bytes:     n,
		})
		if err != nil {
			slog.Error("trace: marshal event", "error", err)
			return
		}
		if err := file.WriteLine(line); err != nil {
			slog.Error("trace: write event", "error", err)
		}
		hub.Broadcast(line)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sigSub.Channel():
			if !ok {
				return
			}
			record(msg.Topic, "signaling", len(msg.Payload))
		case msg, ok := <-voiceSub.Channel():
			if !ok {
				return
			}
			kind := "voice"
			if vf, err := protocol.DecodeVoiceFrame(msg.Payload); err == nil && vf.Payload == nil {
				kind = "voice_dropped"
			}
			record(msg.Topic, kind, len(msg.Payload))
		}
	}
}
