// Package sim emulates silent devices answering fast scan requests
// on a shared bus.
package sim

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/wirenboard/fastmodbus"
)

type Device struct {
	fastmodbus.Device

	// Mute devices never answer.
	Mute bool

	reported bool
}

// Bus implements fastmodbus.Channel. Each request is answered by
// the next device that has not announced itself since the last
// start request, or by an end response if none is left.
type Bus struct {
	mu      sync.Mutex
	devices []*Device
	pending []byte

	// Pad is the number of pad bytes preceding each response.
	Pad int

	// Collide makes all remaining devices answer at once;
	// their frames overlay each other on the line.
	Collide bool

	// Silent suppresses end responses.
	Silent bool

	// WriteLimit, if non-zero, truncates each write.
	WriteLimit int

	// Requests records the subcommand of each valid request.
	Requests []fastmodbus.Subcommand
}

func New(devices ...fastmodbus.Device) *Bus {
	b := new(Bus)
	for _, d := range devices {
		b.Add(&Device{Device: d})
	}
	return b
}

func (b *Bus) Add(d *Device) {
	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()
}

func (b *Bus) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if b.WriteLimit != 0 && n > b.WriteLimit {
		n = b.WriteLimit
	}
	sub, err := fastmodbus.ParseRequest(p[:n])
	if err != nil {
		// devices ignore anything they cannot parse
		return n, nil
	}
	b.Requests = append(b.Requests, sub)
	if sub == fastmodbus.SubStart {
		for _, d := range b.devices {
			d.reported = false
		}
	}
	b.respond()
	return n, nil
}

func (b *Bus) respond() {
	var frames [][]byte
	for _, d := range b.devices {
		if d.Mute || d.reported {
			continue
		}
		d.reported = true
		frames = append(frames, fastmodbus.AppendDataResponse(nil, d.Device))
		if !b.Collide {
			break
		}
	}
	if len(frames) == 0 {
		if b.Silent {
			return
		}
		frames = append(frames, fastmodbus.AppendEndResponse(nil))
	}
	for i := 0; i < b.Pad; i++ {
		b.pending = append(b.pending, fastmodbus.PadByte)
	}
	b.pending = append(b.pending, overlay(frames)...)
}

// overlay combines frames sent at the same time. A dominant
// zero bit of any sender wins.
func overlay(frames [][]byte) []byte {
	var out []byte
	for _, f := range frames {
		for i, c := range f {
			if i < len(out) {
				out[i] &= c
			} else {
				out = append(out, c)
			}
		}
	}
	return out
}

func (b *Bus) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

var ErrNoData = errors.New("sim: no data pending")

func (b *Bus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return 0, ErrNoData
	}
	c := b.pending[0]
	b.pending = b.pending[1:]
	return c, nil
}

// Inject puts raw bytes on the line, as if sent by a device.
func (b *Bus) Inject(p []byte) {
	b.mu.Lock()
	b.pending = append(b.pending, p...)
	b.mu.Unlock()
}

func (b *Bus) Close() error {
	return nil
}

func (b *Bus) Name() string {
	return "sim"
}

// Parse creates a bus from a comma separated list of devices,
// each written as <serial hex>@<address>. The items pad=<n>
// and collide set the corresponding options.
func Parse(spec string) (*Bus, error) {
	b := New()
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		switch {
		case f == "":
		case f == "collide":
			b.Collide = true
		case strings.HasPrefix(f, "pad="):
			n, err := strconv.Atoi(f[4:])
			if err != nil {
				return nil, errors.New("sim: invalid pad count: " + f[4:])
			}
			b.Pad = n
		default:
			d, err := parseDevice(f)
			if err != nil {
				return nil, err
			}
			b.Add(&Device{Device: d})
		}
	}
	return b, nil
}

func parseDevice(s string) (d fastmodbus.Device, err error) {
	sn, addr, ok := strings.Cut(s, "@")
	if !ok {
		err = errors.New("sim: missing address in device spec: " + s)
		return
	}
	d.SerialNumber, err = fastmodbus.ParseSerial(sn)
	if err != nil {
		return
	}
	a, err := strconv.ParseUint(addr, 0, 8)
	if err != nil {
		err = errors.New("sim: invalid address in device spec: " + s)
		return
	}
	d.Addr = byte(a)
	return
}
