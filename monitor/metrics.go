// Package monitor exposes registry statistics as prometheus metrics.
package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/soactor/soactor/core"
)

// Metrics collects mailbox registry metrics. Creation counts arrive
// through the registry's OnCreate hook; the named mailbox gauge reads
// the registry's statistics on scrape.
type Metrics struct {
	mu     sync.RWMutex
	source *core.Registry

	created *prometheus.CounterVec
	events  *prometheus.CounterVec
	named   prometheus.GaugeFunc
}

// NewMetrics creates an unregistered metrics set. Call SetSource once
// the registry exists, then Register.
func NewMetrics() *Metrics {
	m := &Metrics{}

	m.created = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soactor",
			Subsystem: "registry",
			Name:      "mailboxes_created_total",
			Help:      "Number of mailboxes and chains created, by kind.",
		},
		[]string{"kind"},
	)

	m.events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soactor",
			Subsystem: "registry",
			Name:      "trace_events_total",
			Help:      "Trace events observed on traced mailboxes and chains, by operation and kind.",
		},
		[]string{"op", "kind"},
	)

	m.named = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "soactor",
			Subsystem: "registry",
			Name:      "named_mailboxes",
			Help:      "Current number of distinct named mailbox entries.",
		},
		func() float64 {
			m.mu.RLock()
			source := m.source
			m.mu.RUnlock()

			if source == nil {
				return 0
			}
			return float64(source.Stats().NamedMailboxes)
		},
	)

	return m
}

// SetSource binds the registry whose statistics back the gauges.
func (m *Metrics) SetSource(registry *core.Registry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = registry
}

// OnCreate records a mailbox creation. Wire it into
// core.RegistryOptions.OnCreate.
func (m *Metrics) OnCreate(kind core.MailboxKind) {
	m.created.WithLabelValues(kind.String()).Inc()
}

// Trace counts a trace event. Metrics is a core.TracingSink; combine
// it with a logging sink through core.MultiSink when building the
// tracing gate.
func (m *Metrics) Trace(ev core.TraceEvent) {
	m.events.WithLabelValues(ev.Op.String(), ev.Kind.String()).Inc()
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.created); err != nil {
		return err
	}
	if err := reg.Register(m.events); err != nil {
		return err
	}
	return reg.Register(m.named)
}

// Server serves the metrics endpoint over HTTP.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a metrics HTTP server for the given gatherer.
// A nil logger disables logging.
func NewServer(addr, path string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
