package port

import (
	"io"

	"github.com/knieriem/serport"
	"github.com/knieriem/serport/serenum"
)

func init() {
	RegisterDriver(&Driver{
		Name: "serport",
		Open: openSerport,
		Info: portInfo,
	})
}

func portInfo(name string) string {
	return serenum.Lookup(name).Format(nil)
}

func openSerport(cf *Conf) (c io.ReadWriteCloser, portName string, err error) {
	inictl, err := cf.ctl()
	if err != nil {
		return nil, "", err
	}
	portName, err = serport.Choose(cf.Device)
	if err != nil {
		return nil, "", err
	}
	port, err := serport.Open(portName, serport.MergeCtlCmds(serport.StdConf, inictl))
	if err != nil {
		return nil, portName, err
	}
	return port, portName, nil
}

type Interface struct {
	Name string `json:"name" yaml:"name"`
	Desc string `json:"desc" yaml:"desc"`
}

// Interfaces lists the serial ports present on the system.
func Interfaces() (list []Interface) {
	for _, info := range serenum.Ports() {
		list = append(list, Interface{
			Name: info.Device,
			Desc: info.Format(nil),
		})
	}
	return
}
