package protocol

import "encoding/binary"

// Decoder turns a signature-delimited byte stream into typed Events. It is
// stateless across calls except for the Sequence counter it tracks for
// diagnostics; callers own buffering and pass in whatever bytes have
// accumulated since the last call.
type Decoder struct {
	lastSequence uint16
}

// NewDecoder returns a ready-to-use Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode scans buffer from the start and returns every fully-buffered event
// it finds, plus the number of leading bytes fully consumed. The caller
// keeps the unconsumed suffix (buffer[consumed:]) and prepends whatever
// bytes arrive next before calling Decode again.
//
// Three outcomes per cursor position: a recognized signaling message (emit
// and advance by its fixed size), a recognized voice frame (emit or drop,
// advance by header plus whatever payload region(s) its kind byte(s) imply),
// or unrecognized bytes (advance by exactly one and keep scanning —
// single-byte resync, per §4.1 of the wire format notes).
func (d *Decoder) Decode(buffer []byte) (events []Event, consumed int) {
	cursor := 0
	for {
		remaining := buffer[cursor:]
		if len(remaining) < 4 {
			break
		}
		sig := binary.LittleEndian.Uint32(remaining[0:4])

		switch sig {
		case SignalingSignature:
			if len(remaining) < HeaderSize {
				return events, cursor
			}
			h := decodeHeader(remaining)
			size := variantSize(h.MsgID)
			if size == 0 {
				// Unrecognized msg_id under a valid signature: resync.
				cursor++
				continue
			}
			if len(remaining) < size {
				return events, cursor
			}
			d.lastSequence = h.Sequence
			ev := decodeSignalingVariant(h, remaining[:size])
			ev.Raw = append([]byte(nil), remaining[:size]...)
			events = append(events, ev)
			cursor += size

		case VoiceSignature:
			if len(remaining) < VoiceHeaderSize {
				return events, cursor
			}
			vh := decodeVoiceHeader(remaining)
			need, ok := voiceFrameSize(vh)
			if !ok {
				// Unrecognized payload kind under a valid signature: resync.
				cursor++
				continue
			}
			if len(remaining) < need {
				return events, cursor
			}
			raw := append([]byte(nil), remaining[:need]...)
			if vh.Payload1Kind == 7 {
				payload := make([]byte, G711PayloadSize)
				copy(payload, remaining[VoiceHeaderSize:need])
				events = append(events, Event{
					Kind:    EventVoice,
					Topic:   VoiceTopic(vh.CallID),
					Message: &VoiceFrame{Header: vh, Payload: payload},
					Raw:     raw,
				})
			} else {
				events = append(events, Event{
					Kind:    EventVoiceDropped,
					Topic:   VoiceTopic(vh.CallID),
					Message: &VoiceFrame{Header: vh},
					Raw:     raw,
				})
			}
			cursor += need

		default:
			cursor++
		}
	}
	return events, cursor
}

// decodeSignalingVariant dispatches on h.MsgID to the matching fixed-size
// variant decoder and wraps the result as an Event tagged S_<msg_id>. body
// is exactly size(h.MsgID) bytes, header included.
func decodeSignalingVariant(h Header, body []byte) Event {
	b := body[HeaderSize:]
	topic := signalingTopic(h.MsgID)

	var msg any
	switch h.MsgID {
	case MsgKeepAlive:
		msg = decodeKeepAlive(h, b)
	case MsgDuplexCallChange, MsgSimplexCallStartChange:
		msg = decodeDuplexCallChange(h, b)
	case MsgDuplexCallRelease, MsgSimplexCallRelease:
		msg = decodeCallRelease(h, b)
	case MsgSimplexCallPttChange:
		msg = decodeSimplexCallPttChange(h, b)
	case MsgGroupCallStartChange:
		msg = decodeGroupCallStartChange(h, b)
	case MsgGroupCallPttActive:
		msg = decodeGroupCallPttActive(h, b)
	case MsgGroupCallPttIdle:
		msg = decodeGroupCallPttIdle(h, b)
	case MsgGroupCallRelease:
		msg = decodeGroupCallRelease(h, b)
	case MsgStatusSDS:
		msg = decodeStatusSDS(h, b)
	case MsgTextSDS:
		msg = decodeTextSDS(h, b)
	}

	return Event{Kind: EventSignaling, Topic: topic, Message: msg}
}
