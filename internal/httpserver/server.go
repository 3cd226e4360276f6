package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wirenboard/fastmodbus/internal/config"
	"github.com/wirenboard/fastmodbus/internal/service"
	"github.com/wirenboard/fastmodbus/port"
)

// Server exposes scans of one bus over HTTP.
type Server struct {
	srv *http.Server
	svc *service.ScanService

	// Ports lists the serial ports of the system.
	Ports func() []port.Interface
}

func New(cfg config.HTTPConfig, svc *service.ScanService, metricsPath string, metricsHandler http.Handler) *Server {
	s := &Server{svc: svc, Ports: port.Interfaces}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api/v1")
	api.POST("/scan", s.scan)
	api.GET("/scan/last", s.last)
	api.GET("/stats", s.stats)
	api.GET("/ports", s.ports)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) scan(c *gin.Context) {
	res, err := s.svc.Scan(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case !res.OK():
		c.JSON(http.StatusUnprocessableEntity, res)
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) last(c *gin.Context) {
	res := s.svc.Last()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) stats(c *gin.Context) {
	st := s.svc.Stats()
	c.JSON(http.StatusOK, gin.H{
		"all":       st.Num.All,
		"found":     st.Num.Found,
		"ambiguous": st.Num.Ambiguous,
		"invalid":   st.Num.Invalid,
		"timeout":   st.Num.Timeout,
		"other":     st.Num.Other,
		"foundPct":  st.Percentage(st.Num.Found),
	})
}

func (s *Server) ports(c *gin.Context) {
	list := s.Ports()
	if list == nil {
		list = []port.Interface{}
	}
	c.JSON(http.StatusOK, list)
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
