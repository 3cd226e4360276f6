package fastmodbus

// Response is a decoded fast scan reply.
type Response struct {
	Sub Subcommand

	// Device is set if Sub is SubData.
	Device Device
}

// Found reports whether the response announces a device.
func (r *Response) Found() bool {
	return r.Sub == SubData
}

// Extract skips the pad bytes a response may be preceded with
// and returns the remaining frame. The result is empty if buf
// contains nothing but pad bytes. Frames longer than maxLen
// are rejected.
func Extract(buf []byte, maxLen int) ([]byte, error) {
	i := 0
	for i < len(buf) && buf[i] == PadByte {
		i++
	}
	frame := buf[i:]
	if len(frame) > maxLen {
		return nil, NewInvalidLen(MsgContextFrame, len(frame), maxLen)
	}
	return frame, nil
}

// Validate checks the length, checksum and header of a frame.
func Validate(frame []byte) error {
	if len(frame) < MinFrameLen {
		return NewInvalidLen(MsgContextFrame, len(frame), MinFrameLen)
	}
	if !CheckCRC(frame) {
		return ErrCRC
	}
	if have := (MsgHdr{frame[0], frame[1]}); have != ScanHdr {
		return &HeaderError{Have: have}
	}
	return nil
}

// Decode interprets the subcommand of a validated frame.
func Decode(frame []byte) (r Response, err error) {
	r.Sub = Subcommand(frame[2])
	switch r.Sub {
	case SubData:
		if len(frame) != DataFrameLen {
			err = NewInvalidLen(MsgContextData, len(frame), DataFrameLen)
			return
		}
		copy(r.Device.SerialNumber[:], frame[HeaderLen:HeaderLen+SerialNumberLen])
		r.Device.Addr = frame[HeaderLen+SerialNumberLen]
	case SubEnd:
	default:
		err = SubcommandError(r.Sub)
	}
	return
}

// ParseResponse runs a captured buffer through Extract,
// Validate and Decode. A buffer without anything but
// pad bytes yields ErrTimeout.
func ParseResponse(buf []byte, maxLen int) (r Response, err error) {
	frame, err := Extract(buf, maxLen)
	if err != nil {
		return
	}
	if len(frame) == 0 {
		err = ErrTimeout
		return
	}
	err = Validate(frame)
	if err != nil {
		return
	}
	return Decode(frame)
}
