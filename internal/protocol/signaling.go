package protocol

import "encoding/binary"

// Action codes carried by IndividualCallChange / GroupCallChange variants.
const (
	ActionKeepAliveOnly      = 0
	ActionNewCallSetup       = 1
	ActionCallThroughConnect = 2
	ActionChangeOfAOrBUser   = 3
)

// IndiCallReleaseCause values on Duplex/SimplexCallRelease.
const (
	ReleaseCauseUnknown   = 0
	ReleaseCauseASub      = 1
	ReleaseCauseBSub      = 2
)

// GroupCallReleaseCause values on GroupCallRelease.
const (
	GroupReleaseCauseUnknown           = 0
	GroupReleaseCausePTTInactivity     = 1
)

// SimplexPtt values on SimplexCallPttChange.
const (
	TalkingPartyNone = 0
	TalkingPartyA    = 1
	TalkingPartyB    = 2
)

// KeepAlive is msg_id 0x01.
type KeepAlive struct {
	Header      Header
	LogServerNo uint8
	Timeout     uint8
	SwVer       [4]byte
	SwVerString [20]byte
	Descr       Descr
}

func decodeKeepAlive(h Header, b []byte) KeepAlive {
	var k KeepAlive
	k.Header = h
	k.LogServerNo = b[0]
	k.Timeout = b[1]
	// b[2], b[3] spare; b[4:8] spare3
	copy(k.SwVer[:], b[8:12])
	copy(k.SwVerString[:], b[12:32])
	k.Descr = decodeDescr(b[32:96])
	return k
}

// DuplexCallChange is msg_id 0x10. SimplexCallStartChange (0x20) shares this
// exact layout.
type DuplexCallChange struct {
	Header   Header
	CallID   uint32
	Action   uint8
	Timeout  uint8
	ATSI     TSI
	ANumber  Number
	ADescr   Descr
	BTSI     TSI
	BNumber  Number
	BDescr   Descr
}

func decodeDuplexCallChange(h Header, b []byte) DuplexCallChange {
	var d DuplexCallChange
	d.Header = h
	d.CallID = binary.LittleEndian.Uint32(b[0:4])
	d.Action = b[4]
	d.Timeout = b[5]
	// b[6], b[7] spare
	off := 8
	d.ATSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	d.ANumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	d.ADescr = decodeDescr(b[off : off+descrSize])
	off += descrSize
	d.BTSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	d.BNumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	d.BDescr = decodeDescr(b[off : off+descrSize])
	return d
}

// CallRelease covers DuplexCallRelease (0x19) and SimplexCallRelease (0x29),
// which share this layout.
type CallRelease struct {
	Header       Header
	CallID       uint32
	ReleaseCause uint8
}

func decodeCallRelease(h Header, b []byte) CallRelease {
	return CallRelease{
		Header:       h,
		CallID:       binary.LittleEndian.Uint32(b[0:4]),
		ReleaseCause: b[4],
	}
}

// SimplexCallPttChange is msg_id 0x21.
type SimplexCallPttChange struct {
	Header       Header
	CallID       uint32
	TalkingParty uint8
}

func decodeSimplexCallPttChange(h Header, b []byte) SimplexCallPttChange {
	return SimplexCallPttChange{
		Header:       h,
		CallID:       binary.LittleEndian.Uint32(b[0:4]),
		TalkingParty: b[4],
	}
}

// GroupCallStartChange is msg_id 0x30.
type GroupCallStartChange struct {
	Header      Header
	CallID      uint32
	Action      uint8
	Timeout     uint8
	GroupTSI    TSI
	GroupNumber Number
	GroupDescr  Descr
}

func decodeGroupCallStartChange(h Header, b []byte) GroupCallStartChange {
	var g GroupCallStartChange
	g.Header = h
	g.CallID = binary.LittleEndian.Uint32(b[0:4])
	g.Action = b[4]
	g.Timeout = b[5]
	off := 8
	g.GroupTSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	g.GroupNumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	g.GroupDescr = decodeDescr(b[off : off+descrSize])
	return g
}

// GroupCallPttActive is msg_id 0x31.
type GroupCallPttActive struct {
	Header   Header
	CallID   uint32
	TPTSI    TSI
	TPNumber Number
	TPDescr  Descr
}

func decodeGroupCallPttActive(h Header, b []byte) GroupCallPttActive {
	var g GroupCallPttActive
	g.Header = h
	g.CallID = binary.LittleEndian.Uint32(b[0:4])
	// b[4:8] spare
	off := 8
	g.TPTSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	g.TPNumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	g.TPDescr = decodeDescr(b[off : off+descrSize])
	return g
}

// GroupCallPttIdle is msg_id 0x32.
type GroupCallPttIdle struct {
	Header Header
	CallID uint32
}

func decodeGroupCallPttIdle(h Header, b []byte) GroupCallPttIdle {
	return GroupCallPttIdle{Header: h, CallID: binary.LittleEndian.Uint32(b[0:4])}
}

// GroupCallRelease is msg_id 0x39.
type GroupCallRelease struct {
	Header       Header
	CallID       uint32
	ReleaseCause uint8
}

func decodeGroupCallRelease(h Header, b []byte) GroupCallRelease {
	return GroupCallRelease{
		Header:       h,
		CallID:       binary.LittleEndian.Uint32(b[0:4]),
		ReleaseCause: b[4],
	}
}

// StatusSDS is msg_id 0x40.
type StatusSDS struct {
	Header              Header
	ATSI                TSI
	ANumber             Number
	ADescr              Descr
	BTSI                TSI
	BNumber             Number
	BDescr              Descr
	PrecodedStatusValue uint16
}

func decodeStatusSDS(h Header, b []byte) StatusSDS {
	var s StatusSDS
	s.Header = h
	off := 0
	s.ATSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	s.ANumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	s.ADescr = decodeDescr(b[off : off+descrSize])
	off += descrSize
	s.BTSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	s.BNumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	s.BDescr = decodeDescr(b[off : off+descrSize])
	off += descrSize
	s.PrecodedStatusValue = binary.LittleEndian.Uint16(b[off : off+2])
	return s
}

// TextSDS is msg_id 0x41.
type TextSDS struct {
	Header  Header
	ATSI    TSI
	ANumber Number
	ADescr  Descr
	BTSI    TSI
	BNumber Number
	BDescr  Descr
	Text    [512]byte
}

func decodeTextSDS(h Header, b []byte) TextSDS {
	var s TextSDS
	s.Header = h
	off := 0
	s.ATSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	s.ANumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	s.ADescr = decodeDescr(b[off : off+descrSize])
	off += descrSize
	s.BTSI = decodeTSI(b[off : off+tsiSize])
	off += tsiSize
	s.BNumber = decodeNumber(b[off : off+numberSize])
	off += numberSize
	s.BDescr = decodeDescr(b[off : off+descrSize])
	off += descrSize
	copy(s.Text[:], b[off:off+512])
	return s
}
