// Command mswscan discovers a silent Modbus device on an RS-485 bus
// using the fast scan broadcast.
//
// Usage:
//
//	mswscan [flags] [scan|ports|serve]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wirenboard/fastmodbus"
	"github.com/wirenboard/fastmodbus/internal/advertise"
	"github.com/wirenboard/fastmodbus/internal/config"
	"github.com/wirenboard/fastmodbus/internal/httpserver"
	"github.com/wirenboard/fastmodbus/internal/logging"
	"github.com/wirenboard/fastmodbus/internal/metrics"
	"github.com/wirenboard/fastmodbus/internal/service"
	"github.com/wirenboard/fastmodbus/port"
	"github.com/wirenboard/fastmodbus/sim"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := config.Flags()
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mswscan [flags] [scan|ports|serve]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	cmd := "scan"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}
	if cmd == "ports" {
		return listPorts(stdout)
	}

	cfgPath, _ := fs.GetString("config")
	cfg, err := config.Load(cfgPath, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mswscan:", err)
		return 2
	}
	log, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mswscan:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	switch cmd {
	case "scan":
		return scan(cfg, log, stdout)
	case "serve":
		return serve(cfg, log)
	}
	fmt.Fprintln(os.Stderr, "mswscan: unknown command:", cmd)
	fs.Usage()
	return 2
}

type bus struct {
	ch   fastmodbus.Channel
	name string
	io.Closer
}

// openBus opens the line named in cfg. A device of the form
// sim:<serial>@<addr>,... selects a simulated bus.
func openBus(cfg *config.Config) (*bus, *fastmodbus.Scanner, error) {
	var b *bus
	var turnaround time.Duration

	if spec, ok := strings.CutPrefix(cfg.Bus.Device, "sim:"); ok {
		s, err := sim.Parse(spec)
		if err != nil {
			return nil, nil, err
		}
		b = &bus{ch: s, name: s.Name(), Closer: s}
	} else {
		cf := &port.Conf{
			Device:  cfg.Bus.Device,
			Driver:  cfg.Bus.Driver,
			Speed:   cfg.Bus.Speed,
			Framing: cfg.Bus.Framing,
			Options: cfg.Bus.Options,
		}
		conn, err := port.Open(cf)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Bus.Device, err)
		}
		b = &bus{ch: conn, name: conn.Name, Closer: conn}
		turnaround = cf.CharTime(fastmodbus.RequestLen)
	}
	if cfg.Bus.Turnaround > 0 {
		turnaround = cfg.Bus.Turnaround
	}

	sc := fastmodbus.NewScanner(b.ch)
	sc.TurnaroundDelay = turnaround
	if cfg.Scan.MaxFrameLen > 0 {
		sc.MaxFrameLen = cfg.Scan.MaxFrameLen
	}
	return b, sc, nil
}

func scan(cfg *config.Config, log *zap.Logger, stdout io.Writer) int {
	b, sc, err := openBus(cfg)
	if err != nil {
		log.Error("cannot open bus", zap.Error(err))
		return 1
	}
	defer b.Close()

	svc := service.New(sc, b.name, service.Options{
		Timeout: cfg.Scan.Timeout,
		Log:     log,
	})
	res, err := svc.Scan(context.Background())
	if err != nil {
		log.Error("scan not started", zap.Error(err))
		return 1
	}
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		log.Error("cannot write result", zap.Error(err))
		return 1
	}
	_ = enc.Close()
	if !res.OK() {
		return 1
	}
	return 0
}

func listPorts(stdout io.Writer) int {
	list := port.Interfaces()
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "mswscan: no serial ports found")
		return 1
	}
	for _, p := range list {
		fmt.Fprintf(stdout, "%s\t%s\n", p.Name, p.Desc)
	}
	return 0
}

func serve(cfg *config.Config, log *zap.Logger) int {
	b, sc, err := openBus(cfg)
	if err != nil {
		log.Error("cannot open bus", zap.Error(err))
		return 1
	}
	defer b.Close()

	reg := metrics.NewRegistry()
	opts := service.Options{
		Timeout:   cfg.Scan.Timeout,
		RateLimit: cfg.Scan.RateLimit,
		Burst:     cfg.Scan.Burst,
		Log:       log,
	}
	if cfg.Metrics.Enable {
		opts.Metrics = metrics.NewScanMetrics(reg)
	}
	svc := service.New(sc, b.name, opts)

	var mh http.Handler
	if cfg.Metrics.Enable {
		mh = metrics.Handler(reg)
	}
	srv := httpserver.New(cfg.HTTP, svc, cfg.Metrics.Path, mh)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Advertise.Enable {
		adv, err := advertise.Register(cfg.Advertise, cfg.HTTP.Addr, b.name)
		if err != nil {
			log.Error("mDNS registration failed", zap.Error(err))
			return 1
		}
		defer adv.Shutdown()
		log.Info("mDNS registered",
			zap.String("instance", cfg.Advertise.Instance),
			zap.String("service", cfg.Advertise.Service))
	}

	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTP.Addr), zap.String("bus", b.name))
		if err := srv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	return 0
}
