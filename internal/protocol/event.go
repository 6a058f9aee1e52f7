package protocol

import "strconv"

// EventKind distinguishes a decoded signaling message from a voice frame
// (forwarded or dropped).
type EventKind int

const (
	EventSignaling EventKind = iota
	EventVoice
	EventVoiceDropped
)

// Event is one decoded unit handed to the broker. Message holds the
// concrete decoded type (one of the signaling variant structs, or
// *VoiceFrame) named by Kind. Raw is the exact wire bytes this event was
// decoded from (header included) — the Broker transports Raw, not Message,
// so a Redis-backed deployment never needs a second marshal format, and a
// subscriber re-derives Message with DecodeMessage/DecodeVoiceFrame.
type Event struct {
	Kind    EventKind
	Topic   string
	Message any
	Raw     []byte
}

// signalingTopic returns "S_<msg_id>" per the wire protocol's topic
// convention.
func signalingTopic(id MsgID) string {
	return "S_" + strconv.Itoa(int(id))
}

// VoiceTopic returns "V_<call_id>" for a voice frame's call.
func VoiceTopic(callID uint32) string {
	return "V_" + strconv.FormatUint(uint64(callID), 10)
}
