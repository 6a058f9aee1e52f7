package protocol

import "errors"

// ErrShortMessage is returned by DecodeMessage/DecodeVoiceFrame when raw is
// too short for the header it claims to carry.
var ErrShortMessage = errors.New("protocol: short message")

// ErrUnknownVariant is returned by DecodeMessage when the header's MsgID
// names no known signaling variant.
var ErrUnknownVariant = errors.New("protocol: unknown signaling variant")

// DecodeMessage decodes exactly one signaling message from raw, which must
// be precisely the bytes a Decoder emitted as an Event's Raw field. Broker
// subscribers use this to turn a delivered payload back into a typed
// message without re-running stream resync logic.
func DecodeMessage(raw []byte) (Event, error) {
	if len(raw) < HeaderSize {
		return Event{}, ErrShortMessage
	}
	h := decodeHeader(raw)
	size := variantSize(h.MsgID)
	if size == 0 {
		return Event{}, ErrUnknownVariant
	}
	if len(raw) < size {
		return Event{}, ErrShortMessage
	}
	ev := decodeSignalingVariant(h, raw[:size])
	ev.Raw = raw
	return ev, nil
}

// DecodeVoiceFrame decodes exactly one voice frame from raw (a Decoder's
// Event.Raw for an EventVoice/EventVoiceDropped event).
func DecodeVoiceFrame(raw []byte) (*VoiceFrame, error) {
	if len(raw) < VoiceHeaderSize {
		return nil, ErrShortMessage
	}
	vh := decodeVoiceHeader(raw)
	need, ok := voiceFrameSize(vh)
	if !ok {
		return nil, ErrUnknownVariant
	}
	if len(raw) < need {
		return nil, ErrShortMessage
	}
	vf := &VoiceFrame{Header: vh}
	if vh.Payload1Kind == 7 {
		vf.Payload = append([]byte(nil), raw[VoiceHeaderSize:need]...)
	}
	return vf, nil
}
