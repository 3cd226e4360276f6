// Package port opens the serial line a fast scan runs on.
package port

import (
	"errors"
	"io"
	"strings"
)

// A Driver opens a serial device.
type Driver struct {
	Name string
	Open func(cf *Conf) (f io.ReadWriteCloser, portName string, err error)
	Info func(portName string) string
}

var drivers = make(map[string]*Driver, 2)

func RegisterDriver(d *Driver) {
	drivers[d.Name] = d
}

func Drivers() []string {
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	return list
}

// Open opens the line described by cf.
func Open(cf *Conf) (conn *Conn, err error) {
	if cf.Device == "" {
		return nil, errors.New("port: no device")
	}
	if c, match := parseCommand(cf.Device); match {
		f, err := c.Dial()
		if err != nil {
			return nil, err
		}
		return NewConn(f, cf.Device), nil
	}
	if addr, ok := strings.CutPrefix(cf.Device, "tcp:"); ok {
		return dialTCP(IPAddr(addr))
	}

	name := cf.Driver
	if name == "" {
		name = DefaultDriver
	}
	d, ok := drivers[name]
	if !ok {
		return nil, errors.New("port: unknown driver: " + name)
	}
	f, portName, err := d.Open(cf)
	if err != nil {
		return nil, err
	}
	conn = NewConn(f, portName)
	if d.Info != nil {
		conn.Info = d.Info(portName)
	}
	return conn, nil
}
