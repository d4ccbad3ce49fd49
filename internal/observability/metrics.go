package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors of the game server.
type Metrics struct {
	operationsExecuted *prometheus.CounterVec
	operationsFailed   *prometheus.CounterVec
	rollbacks          prometheus.Counter
	rollbackFailures   prometheus.Counter
	notificationsSent  prometheus.Counter
	queueDepth         prometheus.Gauge
	cooldownDelay      prometheus.Histogram
	playersConnected   prometheus.GaugeFunc
}

// NewMetrics creates the collectors and registers them on reg. players
// reports the number of connected players when metrics are scraped; nil
// leaves the gauge at zero.
//
// Precondition: reg must not be nil.
// Postcondition: Returns a Metrics or the registration error.
func NewMetrics(reg prometheus.Registerer, players func() int) (*Metrics, error) {
	if players == nil {
		players = func() int { return 0 }
	}
	m := &Metrics{
		operationsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tilemud_operations_executed_total",
			Help: "Operations executed, by kind and result.",
		}, []string{"kind", "result"}),
		operationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tilemud_operations_failed_total",
			Help: "Operations that could not be executed, by kind.",
		}, []string{"kind"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilemud_movement_rollbacks_total",
			Help: "Item movements rolled back after a failed placement.",
		}),
		rollbackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilemud_movement_rollback_failures_total",
			Help: "Rollbacks that could not restore the item; each one is recorded as an orphan.",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tilemud_notifications_sent_total",
			Help: "Notification deliveries accepted by player connections.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tilemud_scheduler_queue_depth",
			Help: "Events waiting in the scheduler.",
		}),
		cooldownDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tilemud_cooldown_delay_seconds",
			Help:    "How long dispatched operations wait for their requestor's cooldown.",
			Buckets: []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		playersConnected: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "tilemud_players_connected",
			Help: "Players with an open connection.",
		}, func() float64 { return float64(players()) }),
	}

	collectors := []prometheus.Collector{
		m.operationsExecuted,
		m.operationsFailed,
		m.rollbacks,
		m.rollbackFailures,
		m.notificationsSent,
		m.queueDepth,
		m.cooldownDelay,
		m.playersConnected,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) OperationExecuted(kind, result string) {
	m.operationsExecuted.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) OperationFailed(kind string) {
	m.operationsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) RollbackPerformed() { m.rollbacks.Inc() }

func (m *Metrics) RollbackFailed() { m.rollbackFailures.Inc() }

func (m *Metrics) NotificationsSent(n int) {
	if n > 0 {
		m.notificationsSent.Add(float64(n))
	}
}

func (m *Metrics) QueueDepth(n int) { m.queueDepth.Set(float64(n)) }

func (m *Metrics) CooldownDelay(d time.Duration) { m.cooldownDelay.Observe(d.Seconds()) }

// MetricsServer serves a Prometheus registry over HTTP.
type MetricsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewMetricsServer returns a server exposing gatherer at /metrics on addr.
//
// Precondition: gatherer and logger must not be nil.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: Component(logger, "metrics"),
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *MetricsServer) Handler() http.Handler { return s.srv.Handler }

// Start serves until Stop is called.
//
// Postcondition: returns nil after Stop, or the listen error.
func (s *MetricsServer) Start() error {
	s.logger.Info("serving metrics", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for open scrapes.
func (s *MetricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("stopping metrics server", zap.Error(err))
	}
}
