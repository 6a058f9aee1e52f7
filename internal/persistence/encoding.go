package persistence

import "github.com/tinylib/msgp/msgp"

// PersistedEvent is the compact binary envelope stored in
// SignalingRecord.Encoded. It is marshaled by hand in the shape msgp's code
// generator would produce for a four-field, string-keyed struct, since the
// generator itself isn't run in this tree; the wire format (a msgpack map
// keyed by the struct's msg tags) is the same either way.
type PersistedEvent struct {
	Topic  string `msg:"topic"`
	CallID uint32 `msg:"call_id"`
	MsgID  uint8  `msg:"msg_id"`
	Raw    []byte `msg:"raw"`
}

// MarshalMsg implements msgp.Marshaler.
func (z *PersistedEvent) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "topic")
	o = msgp.AppendString(o, z.Topic)
	o = msgp.AppendString(o, "call_id")
	o = msgp.AppendUint32(o, z.CallID)
	o = msgp.AppendString(o, "msg_id")
	o = msgp.AppendUint8(o, z.MsgID)
	o = msgp.AppendString(o, "raw")
	o = msgp.AppendBytes(o, z.Raw)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler.
func (z *PersistedEvent) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	var field []byte
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return nil, err
		}
		switch string(field) {
		case "topic":
			z.Topic, bts, err = msgp.ReadStringBytes(bts)
		case "call_id":
			z.CallID, bts, err = msgp.ReadUint32Bytes(bts)
		case "msg_id":
			z.MsgID, bts, err = msgp.ReadUint8Bytes(bts)
		case "raw":
			z.Raw, bts, err = msgp.ReadBytesBytes(bts, z.Raw)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return nil, err
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound on the encoded size, for pre-allocation.
func (z *PersistedEvent) Msgsize() int {
	return 1 + 6 + msgp.StringPrefixSize + len(z.Topic) +
		8 + msgp.Uint32Size +
		7 + msgp.Uint8Size +
		4 + msgp.BytesPrefixSize + len(z.Raw)
}
