package fastmodbus

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Device is a silent device that announced itself during a scan.
type Device struct {
	SerialNumber [SerialNumberLen]byte

	// Addr is the bus address the device asks to be assigned.
	Addr byte
}

// Serial returns the serial number as an integer, most significant
// byte first, the way it is printed on the device label.
func (d Device) Serial() uint32 {
	return binary.BigEndian.Uint32(d.SerialNumber[:])
}

func (d Device) SerialHex() string {
	return hex.EncodeToString(d.SerialNumber[:])
}

func (d Device) String() string {
	return fmt.Sprintf("sn %s addr %d", d.SerialHex(), d.Addr)
}

// ParseSerial decodes a serial number given as eight hex digits.
func ParseSerial(s string) (sn [SerialNumberLen]byte, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return
	}
	if len(b) != SerialNumberLen {
		err = fmt.Errorf("fastmodbus: serial number %q: want %d bytes, have %d", s, SerialNumberLen, len(b))
		return
	}
	copy(sn[:], b)
	return
}
