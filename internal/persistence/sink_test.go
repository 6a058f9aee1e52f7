package persistence_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tetrahub/tetralog/internal/persistence"
	"github.com/tetrahub/tetralog/internal/protocol"
)

func newTestSink(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(""), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.Migrate(db))
	return db
}

func TestRecordSignalingPersistsRow(t *testing.T) {
	db := newTestSink(t)
	sink := persistence.NewGormSinkForTest(db)

	ev := protocol.Event{
		Topic: "S_48",
		Message: protocol.GroupCallStartChange{
			Header: protocol.Header{MsgID: protocol.MsgGroupCallStartChange},
			CallID: 9,
			Action: protocol.ActionNewCallSetup,
		},
		Raw: []byte{0x4C, 0x4F, 0x47, 0x31, 0, 0, 1, byte(protocol.MsgGroupCallStartChange)},
	}
	require.NoError(t, sink.RecordSignaling(ev))

	var count int64
	require.NoError(t, db.Model(&persistence.SignalingRecord{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var summary persistence.CallSummary
	require.NoError(t, db.Where("call_id = ?", 9).First(&summary).Error)
	require.Equal(t, "group", summary.Kind)
	require.Nil(t, summary.EndedAt)
}

func TestFinalizeCallStampsEndedAt(t *testing.T) {
	db := newTestSink(t)
	sink := persistence.NewGormSinkForTest(db)

	require.NoError(t, sink.RecordSignaling(protocol.Event{
		Topic:   "S_48",
		Message: protocol.GroupCallStartChange{CallID: 3, Action: protocol.ActionNewCallSetup},
		Raw:     []byte{0x4C, 0x4F, 0x47, 0x31, 0, 0, 1, byte(protocol.MsgGroupCallStartChange)},
	}))
	require.NoError(t, sink.RecordSignaling(protocol.Event{
		Topic:   "S_57",
		Message: protocol.GroupCallRelease{CallID: 3},
		Raw:     []byte{0x4C, 0x4F, 0x47, 0x31, 0, 0, 1, byte(protocol.MsgGroupCallRelease)},
	}))

	var summary persistence.CallSummary
	require.NoError(t, db.Where("call_id = ?", 3).First(&summary).Error)
	require.NotNil(t, summary.EndedAt)
}

func TestRecordVoiceFrameAccumulates(t *testing.T) {
	db := newTestSink(t)
	sink := persistence.NewGormSinkForTest(db)

	g711 := make([]byte, protocol.G711PayloadSize)
	require.NoError(t, sink.RecordVoiceFrame(11, &protocol.VoiceFrame{Payload: g711}))
	require.NoError(t, sink.RecordVoiceFrame(11, &protocol.VoiceFrame{Payload: g711}))
	require.NoError(t, sink.RecordVoiceFrame(11, &protocol.VoiceFrame{Payload: nil}))

	var summary persistence.CallSummary
	require.NoError(t, db.Where("call_id = ?", 11).First(&summary).Error)
	require.Equal(t, uint64(2), summary.VoiceFrameCount)
	require.Equal(t, uint64(2*protocol.G711PayloadSize), summary.VoiceByteCount)
	require.Equal(t, uint64(1), summary.DroppedFrames)
}
