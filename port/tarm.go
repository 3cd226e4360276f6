package port

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
)

func init() {
	RegisterDriver(&Driver{
		Name: "tarm",
		Open: openTarm,
	})
}

func tarmConfig(cf *Conf) (*serial.Config, error) {
	f, err := cf.framing()
	if err != nil {
		return nil, err
	}
	c := &serial.Config{
		Name:     cf.Device,
		Baud:     cf.speed(),
		Size:     byte(f.DataBits),
		Parity:   serial.Parity(f.Parity),
		StopBits: serial.StopBits(f.StopBits),
	}
	return c, nil
}

func openTarm(cf *Conf) (io.ReadWriteCloser, string, error) {
	c, err := tarmConfig(cf)
	if err != nil {
		return nil, "", err
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, cf.Device, fmt.Errorf("port: open %s: %w", cf.Device, err)
	}
	return p, cf.Device, nil
}
