package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/cvnet"
)

// MetricsConfig exports run metrics in the Prometheus format.
type MetricsConfig struct {
	// Addr serves /metrics while the run lasts, e.g. ":2112".
	Addr string `yaml:"addr"`
	// File receives the text exposition when the run ends, for the
	// node_exporter textfile collector.
	File string `yaml:"file"`
}

// metricsExporter owns the registry of one run.
type metricsExporter struct {
	reg       *prometheus.Registry
	collector *cvnet.PrometheusCollector
	srv       *http.Server
	addr      string
	file      string
}

// startMetrics registers a Prometheus collector and starts the /metrics
// listener when an address is configured. It returns nil when metrics are
// disabled.
func startMetrics(c MetricsConfig, logger *cvnet.Logger) (*metricsExporter, error) {
	if c.Addr == "" && c.File == "" {
		return nil, nil
	}
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	pc, err := cvnet.NewPrometheusCollector(reg)
	if err != nil {
		return nil, err
	}
	m := &metricsExporter{reg: reg, collector: pc, file: c.File}

	if c.Addr != "" {
		ln, err := net.Listen("tcp", c.Addr)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		m.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		m.addr = ln.Addr().String()
		go func() {
			if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", m.addr)
	}
	return m, nil
}

// Collector returns the collector to pass to the pipeline.
func (m *metricsExporter) Collector() cvnet.MetricsCollector { return m.collector }

// Close writes the metrics file, if any, and stops the listener.
func (m *metricsExporter) Close() error {
	var errs []error
	if m.file != "" {
		if dir := filepath.Dir(m.file); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, err)
			}
		}
		if err := prometheus.WriteToTextfile(m.file, m.reg); err != nil {
			errs = append(errs, fmt.Errorf("metrics file: %w", err))
		}
	}
	if m.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, m.srv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
