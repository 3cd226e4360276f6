package fastmodbus_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wirenboard/fastmodbus"
	"github.com/wirenboard/fastmodbus/sim"
)

const timeout = 20 * time.Millisecond

var (
	devA = fastmodbus.Device{SerialNumber: [4]byte{0x01, 0x02, 0x03, 0x04}, Addr: 0x0A}
	devB = fastmodbus.Device{SerialNumber: [4]byte{0x0A, 0x0B, 0x0C, 0x0D}, Addr: 0x0B}
)

// scriptChannel answers the n-th write with the n-th reply.
type scriptChannel struct {
	replies [][]byte
	pending []byte
	writes  int
}

func (c *scriptChannel) Write(p []byte) (int, error) {
	if c.writes < len(c.replies) {
		c.pending = append(c.pending, c.replies[c.writes]...)
	}
	c.writes++
	return len(p), nil
}

func (c *scriptChannel) Buffered() int { return len(c.pending) }

func (c *scriptChannel) ReadByte() (byte, error) {
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, nil
}

func TestScanBusSingleDevice(t *testing.T) {
	bus := sim.New(devA)
	sc := fastmodbus.NewScanner(bus)

	d, err := sc.ScanBus(timeout)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0x01, 0x02, 0x03, 0x04}, d.SerialNumber)
	assert.Equal(t, byte(0x0A), d.Addr)
	assert.Equal(t, fastmodbus.StateDoneOne, sc.State())
	assert.Equal(t, []fastmodbus.Subcommand{fastmodbus.SubStart, fastmodbus.SubContinue}, bus.Requests)
}

func TestScanBusLiteralFrames(t *testing.T) {
	ch := &scriptChannel{replies: [][]byte{
		{0xFD, 0x60, 0x03, 0x01, 0x02, 0x03, 0x04, 0x0A, 0xA0, 0x5C},
		{0xFD, 0x60, 0x04, 0xC9, 0xF3},
	}}
	d, err := fastmodbus.NewScanner(ch).ScanBus(timeout)
	require.NoError(t, err)
	assert.Equal(t, devA, d)
	assert.Equal(t, 2, ch.writes)
}

func TestScanBusNoDevice(t *testing.T) {
	bus := sim.New()
	bus.Silent = true
	sc := fastmodbus.NewScanner(bus)

	_, err := sc.ScanBus(timeout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fastmodbus.ErrAmbiguous))
	assert.True(t, errors.Is(err, fastmodbus.ErrTimeout))
	var amb *fastmodbus.AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.Zero(t, amb.Found)
	assert.Equal(t, fastmodbus.StateDoneNone, sc.State())
}

func TestScanBusEndOnly(t *testing.T) {
	sc := fastmodbus.NewScanner(sim.New())
	_, err := sc.ScanBus(timeout)
	var amb *fastmodbus.AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.Zero(t, amb.Found)
	assert.NoError(t, amb.Cause)
}

func TestScanBusCollision(t *testing.T) {
	bus := sim.New(devA, devB)
	bus.Collide = true
	sc := fastmodbus.NewScanner(bus)

	_, err := sc.ScanBus(timeout)
	assert.Equal(t, fastmodbus.ErrCRC, err)
	assert.Equal(t, fastmodbus.StateDoneError, sc.State())
}

func TestScanBusTwoRounds(t *testing.T) {
	bus := sim.New(devA, devB)
	sc := fastmodbus.NewScanner(bus)

	_, err := sc.ScanBus(timeout)
	var amb *fastmodbus.AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, 2, amb.Found)
	assert.Equal(t, fastmodbus.StateDoneMany, sc.State())
	assert.Equal(t, []fastmodbus.Subcommand{
		fastmodbus.SubStart,
		fastmodbus.SubContinue,
		fastmodbus.SubContinue,
	}, bus.Requests)
}

func TestScanBusPadBytes(t *testing.T) {
	for _, npad := range []int{0, 1, 5} {
		bus := sim.New(devB)
		bus.Pad = npad
		d, err := fastmodbus.NewScanner(bus).ScanBus(timeout)
		require.NoError(t, err, "%d pad bytes", npad)
		assert.Equal(t, devB, d)
	}
}

func TestScanBusSilenceAfterDevice(t *testing.T) {
	bus := sim.New(devA)
	bus.Silent = true
	d, err := fastmodbus.NewScanner(bus).ScanBus(timeout)
	require.NoError(t, err)
	assert.Equal(t, devA, d)
}

func TestScanBusMuteDevice(t *testing.T) {
	bus := sim.New(devA)
	bus.Add(&sim.Device{Device: devB, Mute: true})
	d, err := fastmodbus.NewScanner(bus).ScanBus(timeout)
	require.NoError(t, err)
	assert.Equal(t, devA, d)
}

func TestScanBusTransmissionError(t *testing.T) {
	bus := sim.New(devA)
	bus.WriteLimit = 3
	sc := fastmodbus.NewScanner(bus)

	_, err := sc.ScanBus(timeout)
	assert.True(t, errors.Is(err, fastmodbus.ErrTransmission))
	assert.Equal(t, fastmodbus.StateDoneError, sc.State())
	assert.Empty(t, bus.Requests)
}

func TestScanBusResponseErrors(t *testing.T) {
	tests := []struct {
		name    string
		replies [][]byte
		check   func(t *testing.T, err error)
	}{
		{
			name:    "wrong header",
			replies: [][]byte{{0xFD, 0x61, 0x04, 0xC8, 0x63}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, fastmodbus.ErrHeader))
			},
		},
		{
			name:    "unknown subcommand",
			replies: [][]byte{{0xFD, 0x60, 0x07, 0x89, 0xF2}},
			check: func(t *testing.T, err error) {
				assert.Equal(t, fastmodbus.SubcommandError(7), err)
			},
		},
		{
			name: "failure after a device was found",
			replies: [][]byte{
				fastmodbus.AppendDataResponse(nil, devA),
				{0xFD, 0x60, 0x04, 0xC9, 0xF4},
			},
			check: func(t *testing.T, err error) {
				assert.Equal(t, fastmodbus.ErrCRC, err)
			},
		},
		{
			name:    "too long",
			replies: [][]byte{append(fastmodbus.AppendDataResponse(nil, devA), 0x00)},
			check: func(t *testing.T, err error) {
				var lenErr *fastmodbus.InvalidLenError
				require.True(t, errors.As(err, &lenErr))
				assert.True(t, lenErr.TooLong())
			},
		},
		{
			name:    "overflow",
			replies: [][]byte{make([]byte, fastmodbus.RecvBufSize+1)},
			check: func(t *testing.T, err error) {
				assert.Equal(t, fastmodbus.ErrBufferOverflow, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := fastmodbus.NewScanner(&scriptChannel{replies: tt.replies})
			d, err := sc.ScanBus(timeout)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, fastmodbus.Device{}, d)
			assert.Equal(t, fastmodbus.StateDoneError, sc.State())
			assert.True(t, fastmodbus.MsgInvalid(err))
		})
	}
}

func TestScanBusStatsAndTrace(t *testing.T) {
	bus := sim.New(devA)
	sc := fastmodbus.NewScanner(bus)

	var dirs []string
	sc.Trace = func(dir string, buf []byte, err error) {
		dirs = append(dirs, dir)
	}

	_, err := sc.ScanBus(timeout)
	require.NoError(t, err)
	bus.Collide = true
	bus.Add(&sim.Device{Device: devB})
	_, err = sc.ScanBus(timeout)
	require.Error(t, err)

	assert.Equal(t, 2, sc.Stats.Num.All)
	assert.Equal(t, 1, sc.Stats.Num.Found)
	assert.Equal(t, 1, sc.Stats.Num.Invalid)
	assert.Equal(t, 50.0, sc.Stats.Percentage(sc.Stats.Num.Found))
	assert.Equal(t, []string{
		fastmodbus.DirTx, fastmodbus.DirRx,
		fastmodbus.DirTx, fastmodbus.DirRx,
		fastmodbus.DirTx, fastmodbus.DirRx,
	}, dirs)
}

func TestScanBusStatsTimeout(t *testing.T) {
	silent := sim.New()
	silent.Silent = true
	sc := fastmodbus.NewScanner(silent)
	_, err := sc.ScanBus(timeout)
	require.ErrorIs(t, err, fastmodbus.ErrTimeout)
	assert.Equal(t, 1, sc.Stats.Num.Ambiguous)
	assert.Equal(t, 1, sc.Stats.Num.Timeout)

	// an end response is not a timeout
	sc = fastmodbus.NewScanner(sim.New())
	_, err = sc.ScanBus(timeout)
	require.ErrorIs(t, err, fastmodbus.ErrAmbiguous)
	assert.Equal(t, 1, sc.Stats.Num.Ambiguous)
	assert.Zero(t, sc.Stats.Num.Timeout)
}
