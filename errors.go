package fastmodbus

import (
	"fmt"
	"strconv"
)

type Error string

func (e Error) Error() string {
	return "fastmodbus: " + string(e)
}

var ErrTransmission = Error("request not fully transmitted")
var ErrTimeout = Error("timeout")
var ErrBufferOverflow = Error("receive buffer too short")
var ErrCRC = Error("CRC mismatch")
var ErrHeader = Error("wrong header")
var ErrAmbiguous = Error("ambiguous scan result")

// HeaderError reports a response whose address or function
// code does not match the fast scan broadcast.
type HeaderError struct {
	Have MsgHdr
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("fastmodbus: wrong header (expected: %v, got: %v)", ScanHdr, e.Have)
}

func (e *HeaderError) Is(target error) bool {
	return target == ErrHeader
}

// MsgHdr holds the address and function code of a frame.
type MsgHdr [2]byte

// ScanHdr is the header shared by all fast scan frames.
var ScanHdr = MsgHdr{BroadcastAddr, FnFastScan}

func (h MsgHdr) String() string {
	return fmt.Sprintf("% x", h[:])
}

type SubcommandError byte

func (e SubcommandError) Error() string {
	return "fastmodbus: unknown subcommand 0x" + strconv.FormatUint(uint64(e), 16)
}

type InvalidLenError struct {
	MsgContext
	Len         int
	ExpectedLen []int
}

type MsgContext string

const (
	MsgContextFrame   MsgContext = "frame"
	MsgContextData    MsgContext = "data frame"
	MsgContextRequest MsgContext = "request"
)

func NewInvalidLen(ctx MsgContext, have int, want ...int) error {
	return &InvalidLenError{MsgContext: ctx, Len: have, ExpectedLen: want}
}

func (e *InvalidLenError) Error() string {
	if e.MsgContext == "" {
		return "fastmodbus: invalid length (unspecified)"
	}
	if e.TooLong() {
		return fmt.Sprintf("fastmodbus: %s too long (have %d, max %d)", e.MsgContext, e.Len, e.ExpectedLen[0])
	}
	if e.TooShort() {
		return fmt.Sprintf("fastmodbus: %s too short (have %d, want %d)", e.MsgContext, e.Len, e.ExpectedLen[0])
	}
	return fmt.Sprintf("fastmodbus: invalid %s length (have %d, want %v)", e.MsgContext, e.Len, e.ExpectedLen)
}

func (e *InvalidLenError) TooLong() bool {
	return len(e.ExpectedLen) == 1 && e.Len > e.ExpectedLen[0]
}

func (e *InvalidLenError) TooShort() bool {
	return len(e.ExpectedLen) == 1 && e.Len < e.ExpectedLen[0]
}

// AmbiguousError is returned by ScanBus when not exactly one
// device answered during a scan cycle. Cause holds the error
// that ended the cycle early, if any.
type AmbiguousError struct {
	Found int
	Cause error
}

func (e *AmbiguousError) Error() string {
	var s string
	if e.Found == 0 {
		s = "no device answered"
	} else {
		s = strconv.Itoa(e.Found) + " devices answered"
	}
	if e.Cause != nil {
		s += " (" + e.Cause.Error() + ")"
	}
	return "fastmodbus: ambiguous scan result: " + s
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

func (e *AmbiguousError) Unwrap() error {
	return e.Cause
}

// MsgInvalid reports whether err indicates a corrupt
// or unexpected reply, as opposed to a missing one.
func MsgInvalid(err error) bool {
	switch err.(type) {
	case *InvalidLenError, *HeaderError, SubcommandError:
		return true
	}
	switch err {
	default:
		return false
	case ErrCRC:
	case ErrBufferOverflow:
	}
	return true
}
