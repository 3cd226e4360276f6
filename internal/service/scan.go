// Package service serializes fast scans on one bus and keeps
// track of their results.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wirenboard/fastmodbus"
	"github.com/wirenboard/fastmodbus/debug"
	"github.com/wirenboard/fastmodbus/internal/metrics"
)

var (
	ErrBusy        = errors.New("service: scan in progress")
	ErrRateLimited = errors.New("service: scan rate exceeded")
)

// Scan outcomes.
const (
	OutcomeFound = "found"
	OutcomeNone  = "none"
	OutcomeMany  = "many"
	OutcomeError = "error"
)

type Device struct {
	SerialNumber string `json:"serialNumber" yaml:"serial_number"`
	Address      byte   `json:"address" yaml:"address"`
}

type Result struct {
	ID       string        `json:"id" yaml:"id"`
	Port     string        `json:"port" yaml:"port"`
	Started  time.Time     `json:"started" yaml:"started"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Outcome  string        `json:"outcome" yaml:"outcome"`
	Found    int           `json:"found,omitempty" yaml:"found,omitempty"`
	Device   *Device       `json:"device,omitempty" yaml:"device,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *Result) OK() bool {
	return r.Outcome == OutcomeFound
}

type Options struct {
	Timeout   time.Duration
	RateLimit float64 // scans per second; zero disables the limit
	Burst     int
	Log       *zap.Logger
	Metrics   *metrics.ScanMetrics
}

// ScanService runs scans on a single Scanner, one at a time.
type ScanService struct {
	scanner *fastmodbus.Scanner
	port    string
	timeout time.Duration
	limiter *rate.Limiter
	log     *zap.Logger
	metrics *metrics.ScanMetrics

	running sync.Mutex

	mu    sync.RWMutex
	last  *Result
	stats fastmodbus.ScanStats
}

func New(s *fastmodbus.Scanner, portName string, opts Options) *ScanService {
	svc := &ScanService{
		scanner: s,
		port:    portName,
		timeout: opts.Timeout,
		log:     opts.Log,
		metrics: opts.Metrics,
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return svc
}

// Scan runs one scan. It returns ErrBusy if another scan is
// running, and ErrRateLimited if scans are requested too often.
// Scan failures are reported through the Result, not as error.
func (svc *ScanService) Scan(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !svc.running.TryLock() {
		svc.metrics.Reject("busy")
		return nil, ErrBusy
	}
	defer svc.running.Unlock()

	if svc.limiter != nil && !svc.limiter.Allow() {
		svc.metrics.Reject("rate")
		return nil, ErrRateLimited
	}

	r := &Result{
		ID:      uuid.New().String(),
		Port:    svc.port,
		Started: time.Now(),
	}
	log := svc.log.With(zap.String("scan_id", r.ID), zap.String("port", svc.port))
	svc.scanner.Trace = func(dir string, buf []byte, err error) {
		if dir == fastmodbus.DirTx {
			svc.metrics.Frame("tx")
		} else {
			svc.metrics.Frame("rx")
		}
		log.Debug(debug.FormatFrame(dir, buf, err, svc.port))
	}
	defer func() {
		svc.scanner.Trace = nil
	}()

	log.Debug("scan started", zap.Duration("timeout", svc.timeout))
	dev, err := svc.scanner.ScanBus(svc.timeout)
	r.Duration = time.Since(r.Started)

	var amb *fastmodbus.AmbiguousError
	switch {
	case err == nil:
		r.Outcome = OutcomeFound
		r.Found = 1
		r.Device = &Device{SerialNumber: dev.SerialHex(), Address: dev.Addr}
		log.Info("device found",
			zap.String("serial", dev.SerialHex()),
			zap.Uint8("addr", dev.Addr),
			zap.Duration("duration", r.Duration))
	case errors.As(err, &amb):
		r.Found = amb.Found
		r.Outcome = OutcomeNone
		if amb.Found > 1 {
			r.Outcome = OutcomeMany
		}
		r.Error = err.Error()
		log.Info("scan ambiguous", zap.Int("found", amb.Found), zap.Error(err))
	default:
		r.Outcome = OutcomeError
		r.Error = err.Error()
		log.Warn("scan failed", zap.Error(err), zap.String("state", svc.scanner.State().String()))
	}
	svc.metrics.Observe(r.Outcome, r.Duration)

	svc.mu.Lock()
	svc.last = r
	svc.stats = svc.scanner.Stats
	svc.mu.Unlock()
	return r, nil
}

// Last returns the result of the most recent scan, or nil.
func (svc *ScanService) Last() *Result {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.last
}

// Stats returns the statistics as of the most recently
// completed scan. It does not wait for a running scan.
func (svc *ScanService) Stats() fastmodbus.ScanStats {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.stats
}
