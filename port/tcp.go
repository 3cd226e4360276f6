package port

import (
	"net"
	"strings"
)

// DefaultTCPPort is used for gateways given without a port.
const DefaultTCPPort = "502"

type IPAddr string

// Complete appends defaultPort if the address lacks a port.
func (a IPAddr) Complete(defaultPort string) (hostport string, err error) {
	addr := string(a)
	hostport = addr
	switch {
	case strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]"):
		fallthrough
	case strings.LastIndex(addr, ":") == -1:
		hostport = addr + ":" + defaultPort
	}
	_, _, err = net.SplitHostPort(hostport)
	return
}

func dialTCP(a IPAddr) (*Conn, error) {
	addr, err := a.Complete(DefaultTCPPort)
	if err != nil {
		return nil, err
	}
	tc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(tc, "tcp:"+addr), nil
}
