package fastmodbus

import (
	"fmt"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingFirst
	StateAwaitingNext
	StateDoneOne
	StateDoneNone
	StateDoneMany
	StateDoneError
)

var stateNames = []string{
	StateIdle:          "idle",
	StateAwaitingFirst: "awaiting first response",
	StateAwaitingNext:  "awaiting next response",
	StateDoneOne:       "done, one device",
	StateDoneNone:      "done, no device",
	StateDoneMany:      "done, several devices",
	StateDoneError:     "done, error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) Done() bool {
	return s >= StateDoneOne
}

// Discarder is implemented by channels that can drop input
// which arrived before a request was sent.
type Discarder interface {
	Discard()
}

// Trace directions passed to Scanner.Trace.
const (
	DirTx = "<-"
	DirRx = "->"
)

// Scanner runs fast scan cycles on a channel it owns
// exclusively. A Scanner must not be used concurrently.
type Scanner struct {
	ch Channel

	// Trace, if set, is called for each request sent and
	// each response buffer received.
	Trace func(dir string, buf []byte, err error)

	// TurnaroundDelay is waited for after a request has
	// been written, before reception starts.
	TurnaroundDelay time.Duration

	// MaxFrameLen limits the size of a response frame
	// after pad bytes have been removed.
	MaxFrameLen int

	Stats ScanStats

	state State
	rbuf  RecvBuf
}

func NewScanner(ch Channel) *Scanner {
	s := new(Scanner)
	s.ch = ch
	s.MaxFrameLen = DataFrameLen
	return s
}

// State returns the state the last scan ended in,
// or the current state while a scan is running.
func (s *Scanner) State() State {
	return s.state
}

// ScanBus searches the bus for a single silent device. It sends
// a start request, then continue requests as long as devices
// announce themselves, until the end of the scan is signalled or
// no response arrives within timeout. Exactly one announcing
// device makes the scan successful; otherwise an *AmbiguousError
// is returned. Transmission and response errors abort the scan;
// devices found up to that point are dropped.
func (s *Scanner) ScanBus(timeout time.Duration) (dev Device, err error) {
	defer func() {
		s.Stats.Update(err)
	}()

	s.state = StateAwaitingFirst
	req := BuildStart()
	found := 0
	var cause error
scan:
	for {
		err = s.send(req)
		if err != nil {
			s.state = StateDoneError
			return Device{}, err
		}
		var r Response
		r, err = s.receive(timeout)
		switch {
		case err == ErrTimeout:
			cause = err
			break scan
		case err != nil:
			s.state = StateDoneError
			return Device{}, err
		case !r.Found():
			break scan
		}
		found++
		dev = r.Device
		s.state = StateAwaitingNext
		req = BuildContinue()
	}

	switch found {
	case 1:
		s.state = StateDoneOne
		return dev, nil
	case 0:
		s.state = StateDoneNone
	default:
		s.state = StateDoneMany
	}
	return Device{}, &AmbiguousError{Found: found, Cause: cause}
}

func (s *Scanner) send(req RequestFrame) (err error) {
	if d, ok := s.ch.(Discarder); ok {
		d.Discard()
	}
	n, err := s.ch.Write(req[:])
	if s.Trace != nil {
		s.Trace(DirTx, req[:n], err)
	}
	if err != nil {
		return fmt.Errorf("%w: %d of %d bytes: %v", ErrTransmission, n, len(req), err)
	}
	if n != len(req) {
		return fmt.Errorf("%w: %d of %d bytes", ErrTransmission, n, len(req))
	}
	if s.TurnaroundDelay > 0 {
		time.Sleep(s.TurnaroundDelay)
	}
	return nil
}

func (s *Scanner) receive(timeout time.Duration) (r Response, err error) {
	buf := &s.rbuf
	buf.Reset()
	if s.Trace != nil {
		defer func() {
			s.Trace(DirRx, buf.Bytes(), err)
		}()
	}
	n, err := ReadBytes(s.ch, buf, timeout)
	if err != nil {
		return
	}
	if n == 0 {
		err = ErrTimeout
		return
	}
	maxLen := s.MaxFrameLen
	if maxLen <= 0 {
		maxLen = buf.Cap()
	}
	return ParseResponse(buf.Bytes(), maxLen)
}
