package fastmodbus

import (
	"github.com/knieriem/hash"
	"github.com/knieriem/hash/crc16"
)

// CRCLen is the size of the checksum trailing every frame.
const CRCLen = 2

var crcTab = crc16.MakeTable(crc16.IBMCRC)

// Hash computes the Modbus CRC of everything written to it.
// Its Sum method appends the checksum low byte first,
// as it is transmitted on the bus.
type Hash struct {
	hash.Hash16
}

func NewHash() Hash {
	return Hash{Hash16: crc16.New(crcTab)}
}

func (h *Hash) Sum(in []byte) []byte {
	s := h.Sum16()
	return append(in, byte(s&0xFF), byte(s>>8))
}

// Checksum returns the CRC-16/Modbus value of p.
func Checksum(p []byte) uint16 {
	return crc16.Checksum(p, crcTab)
}

// AppendCRC appends the checksum of b to b.
func AppendCRC(b []byte) []byte {
	crc := Checksum(b)
	return append(b, byte(crc), byte(crc>>8))
}

// FrameCRC returns the checksum stored in the last two bytes of frame.
func FrameCRC(frame []byte) uint16 {
	n := len(frame)
	return uint16(frame[n-2]) | uint16(frame[n-1])<<8
}

// CheckCRC reports whether the trailing checksum of frame matches
// the value computed over the preceding bytes.
func CheckCRC(frame []byte) bool {
	n := len(frame)
	if n < CRCLen {
		return false
	}
	return Checksum(frame[:n-CRCLen]) == FrameCRC(frame)
}
