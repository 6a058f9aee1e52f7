package protocol

import (
	"bytes"
	"encoding/binary"
)

// TSI is a TETRA Subscriber Identity: Ssi (24 bit), Mnc (14 bit), Mcc (10
// bit), packed on the wire as Ssi:u32, Mnc:u16, Mcc:u16 (8 bytes).
type TSI struct {
	Ssi uint32
	Mnc uint16
	Mcc uint16
}

const tsiSize = 8

func decodeTSI(b []byte) TSI {
	return TSI{
		Ssi: binary.LittleEndian.Uint32(b[0:4]),
		Mnc: binary.LittleEndian.Uint16(b[4:6]),
		Mcc: binary.LittleEndian.Uint16(b[6:8]),
	}
}

// Number is a dialed or dialable digit string: a length byte followed by 15
// ASCII digit bytes, most of which are spare when Len is small.
type Number struct {
	Len    uint8
	Digits [15]byte
}

const numberSize = 16

func decodeNumber(b []byte) Number {
	var n Number
	n.Len = b[0]
	copy(n.Digits[:], b[1:16])
	return n
}

// Text returns the valid prefix of the digit string as a string.
func (n Number) Text() string {
	l := int(n.Len)
	if l > len(n.Digits) {
		l = len(n.Digits)
	}
	return string(n.Digits[:l])
}

// Descr is a fixed-width, NUL-padded display string.
type Descr [64]byte

const descrSize = 64

func decodeDescr(b []byte) Descr {
	var d Descr
	copy(d[:], b[0:64])
	return d
}

// String trims trailing NUL padding.
func (d Descr) String() string {
	i := bytes.IndexByte(d[:], 0)
	if i < 0 {
		return string(d[:])
	}
	return string(d[:i])
}
