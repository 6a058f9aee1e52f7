// Package persistence is the signaling/voice sink collaborator. It is out
// of spec's core scope (§1) but is wired to the Broker like any other
// subscriber, grounded on DMRHub's internal/db package (gorm + sqlite +
// gormigrate + gorm-seeder).
package persistence

import (
	"time"

	"gorm.io/gorm"
)

// SignalingRecord is one persisted signaling event. Encoded is a compact
// msgp-marshaled PersistedEvent (see encoding.go) rather than one column
// per wire field, since the variant shape differs per msg_id.
type SignalingRecord struct {
	ID        uint           `gorm:"primarykey"`
	CallID    uint32         `gorm:"index"`
	MsgID     uint8          `gorm:"index"`
	Topic     string         `gorm:"index"`
	Encoded   []byte         `gorm:"type:blob"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (SignalingRecord) TableName() string { return "signaling_events" }

// CallSummary accumulates per-call voice statistics, finalized (EndedAt
// stamped) when a release signaling message for the call is recorded; a
// call the registry only expires by inactivity keeps a nil EndedAt.
// Individual voice frames
// are not persisted one row per frame — at 50 frames/s per call that would
// dwarf the signaling table for no operational benefit — only the running
// totals are.
type CallSummary struct {
	CallID          uint32 `gorm:"primarykey"`
	Kind            string
	StartedAt       time.Time
	EndedAt         *time.Time
	VoiceFrameCount uint64
	VoiceByteCount  uint64
	DroppedFrames   uint64
}

func (CallSummary) TableName() string { return "call_summaries" }

// FeederRow mirrors config.FeederConfig as a queryable reference table,
// seeded once at startup from the static feeder list (gorm-seeder).
type FeederRow struct {
	Stream string `gorm:"primarykey"`
	IP     string
	Port   int
	Kind   string
}

func (FeederRow) TableName() string { return "feeders" }
