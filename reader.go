package fastmodbus

import (
	"time"
)

// Channel is the serial line a scan runs on.
// ReadByte must not block; it is only called
// while Buffered reports pending input.
type Channel interface {
	Write(p []byte) (int, error)
	Buffered() int
	ReadByte() (byte, error)
}

// RecvBufSize is the capacity of the response capture buffer.
const RecvBufSize = 32

// RecvBuf is a fixed capacity receive buffer.
type RecvBuf struct {
	b [RecvBufSize]byte
	n int
}

func (r *RecvBuf) Reset() {
	r.n = 0
}

func (r *RecvBuf) Len() int {
	return r.n
}

func (r *RecvBuf) Cap() int {
	return len(r.b)
}

func (r *RecvBuf) Bytes() []byte {
	return r.b[:r.n:r.n]
}

func (r *RecvBuf) Full() bool {
	return r.n == len(r.b)
}

// Fits reports whether n more bytes can be appended.
func (r *RecvBuf) Fits(n int) bool {
	return r.n+n <= len(r.b)
}

func (r *RecvBuf) AppendByte(c byte) error {
	if r.n == len(r.b) {
		return ErrBufferOverflow
	}
	r.b[r.n] = c
	r.n++
	return nil
}

// PollInterval is the granularity at which ReadBytes
// checks the channel for new input.
var PollInterval = time.Millisecond

// ReadBytes appends the bytes arriving on ch to buf until buf
// is full or timeout has elapsed. The timeout bounds the whole
// call; it is not restarted when bytes arrive. If more bytes are
// pending than fit into buf, ReadBytes stops with ErrBufferOverflow
// instead of truncating the input. It returns the number of bytes
// captured, which is zero if nothing arrived in time.
func ReadBytes(ch Channel, buf *RecvBuf, timeout time.Duration) (n int, err error) {
	deadline := time.Now().Add(timeout)

	for !buf.Full() {
		avail := ch.Buffered()
		if avail == 0 {
			if !time.Now().Before(deadline) {
				break
			}
			time.Sleep(PollInterval)
			continue
		}
		if !buf.Fits(avail) {
			return n, ErrBufferOverflow
		}
		for i := 0; i < avail; i++ {
			c, err := ch.ReadByte()
			if err != nil {
				return n, err
			}
			if err := buf.AppendByte(c); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
