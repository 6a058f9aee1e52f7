package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	gormseeder "github.com/kachit/gorm-seeder"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"

	"github.com/tetrahub/tetralog/internal/broker"
	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/protocol"
)

// Sink is what the Broker's persistence subscriber writes through. Defined
// as an interface so tests can stand in a fake rather than a real database.
type Sink interface {
	RecordSignaling(ev protocol.Event) error
	RecordVoiceFrame(callID uint32, vf *protocol.VoiceFrame) error
	FinalizeCall(callID uint32) error
}

// GormSink is the gorm/sqlite-backed Sink.
type GormSink struct {
	db *gorm.DB
}

// NewGormSinkForTest wraps an already-migrated *gorm.DB, letting tests
// exercise GormSink without Open's file/seed/pool-tuning side effects.
func NewGormSinkForTest(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

const connsPerCPU = 10
const maxIdleTime = 10 * time.Minute

// Open opens (creating if needed) the sqlite database at cfg.DSN, migrates
// it, and seeds the feeder reference table from the static feeder list.
func Open(cfg *config.Config) (*GormSink, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Persistence.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("persistence: tracing plugin: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("persistence: migrate: %w", err)
	}

	if err := seedFeeders(db, cfg.Media.Feeders); err != nil {
		return nil, fmt.Errorf("persistence: seed feeders: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("persistence: underlying db: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return &GormSink{db: db}, nil
}

func seedFeeders(db *gorm.DB, feeders []config.FeederConfig) error {
	rows := make([]FeederRow, len(feeders))
	for i, f := range feeders {
		rows[i] = FeederRow{Stream: f.Stream, IP: f.IP, Port: f.Port, Kind: string(f.Kind)}
	}
	seeder := NewFeedersSeeder(gormseeder.SeederConfiguration{Rows: len(rows)}, rows)
	stack := gormseeder.NewSeedersStack(db)
	stack.AddSeeder(&seeder)
	return stack.Seed() //nolint:wrapcheck
}

// RecordSignaling persists one decoded signaling event and finalizes its
// call summary if the event is a release.
func (s *GormSink) RecordSignaling(ev protocol.Event) error {
	msgID, _ := headerMsgID(ev.Raw)
	callID, hasCallID := signalingCallID(ev.Message)

	encoded, err := (&PersistedEvent{Topic: ev.Topic, CallID: callID, MsgID: msgID, Raw: ev.Raw}).MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("persistence: encode: %w", err)
	}
	rec := SignalingRecord{CallID: callID, MsgID: msgID, Topic: ev.Topic, Encoded: encoded, CreatedAt: time.Now()}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("persistence: insert signaling record: %w", err)
	}

	if hasCallID {
		switch ev.Message.(type) {
		case protocol.CallRelease, protocol.GroupCallRelease:
			return s.FinalizeCall(callID)
		}
		if err := s.ensureCallSummary(callID, kindOf(ev.Message)); err != nil {
			return err
		}
	}
	return nil
}

// RecordVoiceFrame accumulates a call's voice statistics.
func (s *GormSink) RecordVoiceFrame(callID uint32, vf *protocol.VoiceFrame) error {
	var summary CallSummary
	result := s.db.FirstOrCreate(&summary, CallSummary{CallID: callID})
	if result.Error != nil {
		return fmt.Errorf("persistence: load call summary: %w", result.Error)
	}
	update := map[string]any{}
	if vf.Payload != nil {
		update["voice_frame_count"] = gorm.Expr("voice_frame_count + 1")
		update["voice_byte_count"] = gorm.Expr("voice_byte_count + ?", len(vf.Payload))
	} else {
		update["dropped_frames"] = gorm.Expr("dropped_frames + 1")
	}
	if err := s.db.Model(&summary).Updates(update).Error; err != nil {
		return fmt.Errorf("persistence: update call summary: %w", err)
	}
	return nil
}

// FinalizeCall stamps a call summary's end time.
func (s *GormSink) FinalizeCall(callID uint32) error {
	now := time.Now()
	err := s.db.Model(&CallSummary{}).Where("call_id = ?", callID).Update("ended_at", now).Error
	if err != nil {
		return fmt.Errorf("persistence: finalize call: %w", err)
	}
	return nil
}

func (s *GormSink) ensureCallSummary(callID uint32, kind string) error {
	summary := CallSummary{CallID: callID, Kind: kind, StartedAt: time.Now()}
	return s.db.Where(CallSummary{CallID: callID}).FirstOrCreate(&summary).Error //nolint:wrapcheck
}

func headerMsgID(raw []byte) (uint8, bool) {
	if len(raw) < protocol.HeaderSize {
		return 0, false
	}
	return raw[7], true
}

func signalingCallID(msg any) (uint32, bool) {
	switch m := msg.(type) {
	case protocol.DuplexCallChange:
		return m.CallID, true
	case protocol.CallRelease:
		return m.CallID, true
	case protocol.GroupCallStartChange:
		return m.CallID, true
	case protocol.GroupCallPttActive:
		return m.CallID, true
	case protocol.GroupCallPttIdle:
		return m.CallID, true
	case protocol.GroupCallRelease:
		return m.CallID, true
	default:
		return 0, false
	}
}

func kindOf(msg any) string {
	switch msg.(type) {
	case protocol.GroupCallStartChange, protocol.GroupCallPttActive, protocol.GroupCallPttIdle, protocol.GroupCallRelease:
		return "group"
	default:
		return "individual"
	}
}

// Run subscribes to the signaling and voice prefixes and persists every
// event until ctx is canceled, mirroring any other Broker consumer.
func Run(ctx context.Context, b broker.Broker, sink Sink) {
	sigSub := b.Subscribe("S_")
	voiceSub := b.Subscribe("V_")
	defer sigSub.Close()
	defer voiceSub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sigSub.Channel():
			if !ok {
				return
			}
			ev, err := protocol.DecodeMessage(msg.Payload)
			if err != nil {
				slog.Warn("persistence: malformed signaling payload", "error", err)
				continue
			}
			if err := sink.RecordSignaling(ev); err != nil {
				slog.Error("persistence: record signaling failed", "error", err)
			}
		case msg, ok := <-voiceSub.Channel():
			if !ok {
				return
			}
			vf, err := protocol.DecodeVoiceFrame(msg.Payload)
			if err != nil {
				slog.Warn("persistence: malformed voice payload", "error", err)
				continue
			}
			if err := sink.RecordVoiceFrame(vf.Header.CallID, vf); err != nil {
				slog.Error("persistence: record voice frame failed", "error", err)
			}
		}
	}
}
