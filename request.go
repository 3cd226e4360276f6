package fastmodbus

import (
	"bytes"
	"io"
	"strconv"
)

const (
	// BroadcastAddr is reserved for the fast scan and never
	// assigned to a device.
	BroadcastAddr = 0xFD

	// FnFastScan is the function code of the fast scan extension.
	FnFastScan = 0x60

	// PadByte may precede a response on the bus.
	PadByte = 0xFF
)

type Subcommand byte

const (
	SubStart Subcommand = 1 + iota
	SubContinue
	SubData
	SubEnd
)

func (s Subcommand) String() string {
	switch s {
	case SubStart:
		return "start"
	case SubContinue:
		return "continue"
	case SubData:
		return "data"
	case SubEnd:
		return "end"
	}
	return "0x" + strconv.FormatUint(uint64(s), 16)
}

const (
	// HeaderLen covers address, function code and subcommand.
	HeaderLen = 3

	MinFrameLen     = HeaderLen + CRCLen
	RequestLen      = MinFrameLen
	SerialNumberLen = 4
	DataFrameLen    = MinFrameLen + SerialNumberLen + 1
)

// RequestFrame is a broadcast request as sent on the bus.
type RequestFrame [RequestLen]byte

func (f RequestFrame) Subcommand() Subcommand {
	return Subcommand(f[2])
}

func (f RequestFrame) Encode(w io.Writer) error {
	_, err := w.Write(f[:])
	return err
}

func buildRequest(sub Subcommand) (f RequestFrame) {
	var b bytes.Buffer
	h := NewHash()
	w := io.MultiWriter(&b, &h)
	w.Write([]byte{BroadcastAddr, FnFastScan, byte(sub)})
	copy(f[:], h.Sum(b.Bytes()))
	return
}

// BuildStart returns the request that begins a scan cycle.
func BuildStart() RequestFrame {
	return buildRequest(SubStart)
}

// BuildContinue returns the request asking the next
// silent device to announce itself.
func BuildContinue() RequestFrame {
	return buildRequest(SubContinue)
}

// ParseRequest validates a request frame as received by a device
// and returns its subcommand.
func ParseRequest(frame []byte) (Subcommand, error) {
	if len(frame) != RequestLen {
		return 0, NewInvalidLen(MsgContextRequest, len(frame), RequestLen)
	}
	if err := Validate(frame); err != nil {
		return 0, err
	}
	sub := Subcommand(frame[2])
	switch sub {
	case SubStart, SubContinue:
		return sub, nil
	}
	return 0, SubcommandError(sub)
}

// AppendDataResponse appends the reply of a silent device
// announcing itself to b.
func AppendDataResponse(b []byte, d Device) []byte {
	n := len(b)
	b = append(b, BroadcastAddr, FnFastScan, byte(SubData))
	b = append(b, d.SerialNumber[:]...)
	b = append(b, d.Addr)
	crc := Checksum(b[n:])
	return append(b, byte(crc), byte(crc>>8))
}

// AppendEndResponse appends the reply signalling that no
// silent devices are left to b.
func AppendEndResponse(b []byte) []byte {
	n := len(b)
	b = append(b, BroadcastAddr, FnFastScan, byte(SubEnd))
	crc := Checksum(b[n:])
	return append(b, byte(crc), byte(crc>>8))
}
