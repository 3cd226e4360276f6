package fastmodbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunk struct {
	at   time.Duration
	data []byte
}

// lineChannel delivers chunks of input at fixed offsets
// from its creation.
type lineChannel struct {
	mu      sync.Mutex
	t0      time.Time
	chunks  []chunk
	pending []byte
}

func newLineChannel(chunks ...chunk) *lineChannel {
	return &lineChannel{t0: time.Now(), chunks: chunks}
}

func (c *lineChannel) Write(p []byte) (int, error) {
	return len(p), nil
}

func (c *lineChannel) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.t0)
	for len(c.chunks) > 0 && c.chunks[0].at <= elapsed {
		c.pending = append(c.pending, c.chunks[0].data...)
		c.chunks = c.chunks[1:]
	}
	return len(c.pending)
}

func (c *lineChannel) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

func TestReadBytesCollectsUntilTimeout(t *testing.T) {
	ch := newLineChannel(
		chunk{0, []byte{1, 2}},
		chunk{5 * time.Millisecond, []byte{3, 4, 5}},
	)
	var buf RecvBuf
	t0 := time.Now()
	n, err := ReadBytes(ch, &buf, 40*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Bytes())
	assert.GreaterOrEqual(t, time.Since(t0), 40*time.Millisecond)
}

func TestReadBytesNothing(t *testing.T) {
	var buf RecvBuf
	n, err := ReadBytes(newLineChannel(), &buf, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.Bytes())
}

func TestReadBytesStopsWhenFull(t *testing.T) {
	ch := newLineChannel(chunk{0, make([]byte, RecvBufSize)})
	var buf RecvBuf
	t0 := time.Now()
	n, err := ReadBytes(ch, &buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, RecvBufSize, n)
	assert.True(t, buf.Full())
	assert.Less(t, time.Since(t0), 500*time.Millisecond)
}

func TestReadBytesOverflow(t *testing.T) {
	ch := newLineChannel(
		chunk{0, make([]byte, RecvBufSize-2)},
		chunk{5 * time.Millisecond, make([]byte, 5)},
	)
	var buf RecvBuf
	n, err := ReadBytes(ch, &buf, time.Second)
	assert.Equal(t, ErrBufferOverflow, err)
	assert.Equal(t, RecvBufSize-2, n)
}

func TestReadBytesTimeoutNotRestarted(t *testing.T) {
	// Gaps between chunks are shorter than the timeout; an
	// inactivity timer would pick up all of them.
	ch := newLineChannel(
		chunk{0, []byte{1}},
		chunk{30 * time.Millisecond, []byte{2}},
		chunk{90 * time.Millisecond, []byte{3}},
		chunk{120 * time.Millisecond, []byte{4}},
	)
	var buf RecvBuf
	n, err := ReadBytes(ch, &buf, 60*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2}, buf.Bytes())
}

func TestRecvBuf(t *testing.T) {
	var buf RecvBuf
	assert.Equal(t, RecvBufSize, buf.Cap())
	assert.True(t, buf.Fits(RecvBufSize))
	assert.False(t, buf.Fits(RecvBufSize+1))
	for i := 0; i < RecvBufSize; i++ {
		require.NoError(t, buf.AppendByte(byte(i)))
	}
	assert.Equal(t, ErrBufferOverflow, buf.AppendByte(0))
	buf.Reset()
	assert.Zero(t, buf.Len())
}
