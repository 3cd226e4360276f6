package debug

import (
	"fmt"

	"github.com/wirenboard/fastmodbus"
)

// FormatFrame renders a frame as seen on the bus for tracing.
// Leading pad bytes and the header are set apart from the
// payload, the checksum is shown in parentheses at the end.
func FormatFrame(msgDir string, buf []byte, err error, chName string) string {
	s := ""
	if msgDir != "" {
		s += msgDir + " "
	}
	s += chName
	n := len(buf)
	npad := 0
	for npad < n && buf[npad] == fastmodbus.PadByte {
		npad++
	}
	frame := buf[npad:]
	if len(frame) < fastmodbus.MinFrameLen {
		if n == 0 {
			s += " [0]"
		} else {
			s += fmt.Sprintf(" [%d] % x", n, buf)
		}
	} else {
		s += fmt.Sprintf(" [%d]", n)
		if npad != 0 {
			s += fmt.Sprintf(" pad*%d", npad)
		}
		end := len(frame) - fastmodbus.CRCLen
		s += fmt.Sprintf(" (% x)", frame[:fastmodbus.HeaderLen])
		if payload := frame[fastmodbus.HeaderLen:end]; len(payload) != 0 {
			s += fmt.Sprintf(" % x", payload)
		}
		s += fmt.Sprintf(" (% x)", frame[end:])
	}
	if err != nil {
		s += " error: " + err.Error()
	}
	return s
}
