// Package protocol decodes the DAMM TetraFlex LOG-API byte stream: a common
// 8-byte header followed by one of twelve fixed-size signaling variants, or a
// separate voice-frame format carrying G.711 A-law audio. All multi-byte
// fields are little endian.
//
// The wire layout is grounded on LogApiMsgDef.h (DAMM TetraFlex LogApi,
// LOG-API protocol version 1); the decode loop and manual field-by-field
// unpacking follow the style of DMRHub's models/packet.go.
package protocol

import "encoding/binary"

// HeaderSize is the width of the common signaling header, present on every
// signaling message ahead of its variant-specific body.
const HeaderSize = 8

// Signaling and voice stream signatures ("LOG1"/"LOG2" read as little-endian
// uint32).
const (
	SignalingSignature uint32 = 0x31474F4C
	VoiceSignature     uint32 = 0x32474F4C
)

// MsgID identifies which of the twelve signaling variants follows the header.
type MsgID uint8

// Signaling message IDs, per LogApiMsgType in LogApiMsgDef.h.
const (
	MsgKeepAlive               MsgID = 0x01
	MsgDuplexCallChange        MsgID = 0x10
	MsgDuplexCallRelease       MsgID = 0x19
	MsgSimplexCallStartChange  MsgID = 0x20
	MsgSimplexCallPttChange    MsgID = 0x21
	MsgSimplexCallRelease      MsgID = 0x29
	MsgGroupCallStartChange    MsgID = 0x30
	MsgGroupCallPttActive      MsgID = 0x31
	MsgGroupCallPttIdle        MsgID = 0x32
	MsgGroupCallRelease        MsgID = 0x39
	MsgStatusSDS               MsgID = 0x40
	MsgTextSDS                 MsgID = 0x41
)

// variantSize returns the total wire size (header included) of the
// signaling variant named by id, or 0 if id is not a recognized variant.
func variantSize(id MsgID) int {
	switch id {
	case MsgKeepAlive:
		return HeaderSize + 96
	case MsgDuplexCallChange, MsgSimplexCallStartChange:
		return HeaderSize + 184
	case MsgDuplexCallRelease, MsgSimplexCallRelease:
		return HeaderSize + 8
	case MsgSimplexCallPttChange:
		return HeaderSize + 8
	case MsgGroupCallStartChange:
		return HeaderSize + 96
	case MsgGroupCallPttActive:
		return HeaderSize + 96
	case MsgGroupCallPttIdle:
		return HeaderSize + 8
	case MsgGroupCallRelease:
		return HeaderSize + 8
	case MsgStatusSDS:
		return HeaderSize + 178
	case MsgTextSDS:
		return HeaderSize + 688
	default:
		return 0
	}
}

// Header is the 8-byte envelope common to every signaling message.
type Header struct {
	Signature uint32
	Sequence  uint16
	Version   uint8
	MsgID     MsgID
}

func decodeHeader(b []byte) Header {
	return Header{
		Signature: binary.LittleEndian.Uint32(b[0:4]),
		Sequence:  binary.LittleEndian.Uint16(b[4:6]),
		Version:   b[6],
		MsgID:     MsgID(b[7]),
	}
}
