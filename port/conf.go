package port

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSpeed   = 9600
	DefaultFraming = "8N2"
	DefaultDriver  = "serport"
)

// Conf describes the line a Conn is opened on.
//
// Device is either the name of a serial port, a command line
// prefixed with "!" whose standard input and output act as the
// line, or "tcp:host[:port]" naming a serial-to-TCP gateway.
type Conf struct {
	Device  string
	Driver  string
	Speed   int
	Framing string

	// Options are passed on to the serport driver as
	// additional control commands.
	Options []string
}

type Framing struct {
	DataBits int
	Parity   byte
	StopBits int
}

// ParseFraming parses strings like "8N1" or "8E1".
func ParseFraming(s string) (f Framing, err error) {
	if len(s) != 3 {
		err = errors.New("port: invalid framing: " + s)
		return
	}
	f.DataBits = int(s[0] - '0')
	if f.DataBits < 5 || f.DataBits > 8 {
		err = errors.New("port: invalid number of data bits: " + s[:1])
		return
	}
	f.Parity = strings.ToUpper(s[1:2])[0]
	switch f.Parity {
	case 'N', 'E', 'O':
	default:
		err = errors.New("port: invalid parity: " + s[1:2])
		return
	}
	f.StopBits = int(s[2] - '0')
	if f.StopBits != 1 && f.StopBits != 2 {
		err = errors.New("port: invalid number of stop bits: " + s[2:])
	}
	return
}

// CharBits returns the number of bits a character occupies
// on the line.
func (f Framing) CharBits() int {
	n := 1 + f.DataBits + f.StopBits
	if f.Parity != 'N' {
		n++
	}
	return n
}

func (cf *Conf) speed() int {
	if cf.Speed <= 0 {
		return DefaultSpeed
	}
	return cf.Speed
}

func (cf *Conf) framing() (Framing, error) {
	s := cf.Framing
	if s == "" {
		s = DefaultFraming
	}
	return ParseFraming(s)
}

// CharTime returns the time it takes to transmit n characters.
func (cf *Conf) CharTime(n int) time.Duration {
	f, err := cf.framing()
	if err != nil {
		f = Framing{DataBits: 8, Parity: 'N', StopBits: 1}
	}
	return time.Duration(n*f.CharBits()) * time.Second / time.Duration(cf.speed())
}

// ctl returns the serport control commands for the configuration.
func (cf *Conf) ctl() (string, error) {
	f, err := cf.framing()
	if err != nil {
		return "", err
	}
	cmds := []string{
		"b" + strconv.Itoa(cf.speed()),
		"l" + strconv.Itoa(f.DataBits),
		"p" + strings.ToLower(string(f.Parity)),
		"s" + strconv.Itoa(f.StopBits),
	}
	cmds = append(cmds, cf.Options...)
	return strings.Join(cmds, " "), nil
}
