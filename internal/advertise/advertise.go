// Package advertise announces the scan API via mDNS.
package advertise

import (
	"errors"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"

	"github.com/wirenboard/fastmodbus/internal/config"
)

type Server struct {
	zc *zeroconf.Server
}

// ListenPort returns the TCP port of an address like ":8080".
func ListenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 || n > 65535 {
		return 0, errors.New("advertise: invalid port: " + p)
	}
	return n, nil
}

// TXT returns the TXT records announced for the bus.
func TXT(busDevice string) []string {
	return []string{
		"txtvers=1",
		"api=/api/v1",
		"bus=" + busDevice,
	}
}

// Register announces the HTTP API listening on httpAddr.
func Register(cfg config.AdvertiseConfig, httpAddr, busDevice string) (*Server, error) {
	port, err := ListenPort(httpAddr)
	if err != nil {
		return nil, err
	}
	domain := cfg.Domain
	if domain == "" {
		domain = "local."
	}
	zc, err := zeroconf.Register(cfg.Instance, cfg.Service, domain, port, TXT(busDevice), nil)
	if err != nil {
		return nil, err
	}
	return &Server{zc: zc}, nil
}

func (s *Server) Shutdown() {
	s.zc.Shutdown()
}
