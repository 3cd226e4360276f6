package port

import (
	"errors"
	"io"
	"sync"
)

var ErrNoData = errors.New("port: no data pending")

// Conn turns a blocking stream into a line that can be polled.
// A background goroutine keeps reading from the stream and queues
// whatever arrives, until the stream fails or is closed.
type Conn struct {
	rwc io.ReadWriteCloser

	Name string
	Info string

	mu      sync.Mutex
	pending []byte
	err     error

	// ExitC receives 0 if the stream reached EOF,
	// 1 if reading failed otherwise.
	ExitC chan int
}

func NewConn(rwc io.ReadWriteCloser, name string) *Conn {
	c := new(Conn)
	c.rwc = rwc
	c.Name = name
	c.ExitC = make(chan int, 1)
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	buf := make([]byte, 256)
	for {
		n, err := c.rwc.Read(buf)
		c.mu.Lock()
		c.pending = append(c.pending, buf[:n]...)
		if err != nil {
			c.err = err
		}
		c.mu.Unlock()
		if err != nil {
			exitCode := 1
			if err == io.EOF {
				exitCode = 0
			}
			c.ExitC <- exitCode
			return
		}
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	return c.rwc.Write(p)
}

func (c *Conn) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ReadByte returns the next queued byte. It does not block;
// if nothing is queued, it returns the error that stopped the
// reader, or ErrNoData.
func (c *Conn) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, ErrNoData
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

// Discard drops all queued input.
func (c *Conn) Discard() {
	c.mu.Lock()
	c.pending = c.pending[:0]
	c.mu.Unlock()
}

// Err returns the error that stopped the reader, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) Close() error {
	return c.rwc.Close()
}
