package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	moveCnt      *prometheus.CounterVec
	moveDur      *prometheus.HistogramVec
	moveInfl     prometheus.Gauge
	casConflicts prometheus.Counter
	casRetries   prometheus.Histogram

	sessionCnt   *prometheus.CounterVec
	notifierCnt  *prometheus.CounterVec
	storageErrs  *prometheus.CounterVec
	sweepDur     prometheus.Histogram
	sweepExpired prometheus.Counter

	worldDeaths  prometheus.Counter
	worldTaskDur *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	// Move submission pipeline
	moveCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "moves_total"}, []string{"outcome", "reason"})
	moveDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "move_commit_duration_seconds", Buckets: cfg.Buckets}, []string{"outcome"})
	moveInfl := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "moves_inflight"})
	casConflicts := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "cas_conflicts_total"})
	casRetries := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "cas_retries_per_move", Buckets: []float64{0, 1, 2, 3, 5, 8}})
	r.MustRegister(moveCnt, moveDur, moveInfl, casConflicts, casRetries)

	// Session lifecycle and collaborators
	sessionCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "sessions_total"}, []string{"event"})
	notifierCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "notifier_events_total"}, []string{"type", "status"})
	storageErrs := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "storage_errors_total"}, []string{"component"})
	sweepDur := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Name: "sweep_duration_seconds", Buckets: cfg.Buckets})
	sweepExpired := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "sweep_expired_sessions_total"})
	r.MustRegister(sessionCnt, notifierCnt, storageErrs, sweepDur, sweepExpired)

	worldDeaths := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "world_deaths_total"})
	worldTaskDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "world_task_duration_seconds", Buckets: cfg.Buckets}, []string{"task"})
	r.MustRegister(worldDeaths, worldTaskDur)

	return &Metrics{
		registry:     r,
		namespace:    ns,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		httpInfl:     httpInfl,
		moveCnt:      moveCnt,
		moveDur:      moveDur,
		moveInfl:     moveInfl,
		casConflicts: casConflicts,
		casRetries:   casRetries,
		sessionCnt:   sessionCnt,
		notifierCnt:  notifierCnt,
		storageErrs:  storageErrs,
		sweepDur:     sweepDur,
		sweepExpired: sweepExpired,
		worldDeaths:  worldDeaths,
		worldTaskDur: worldTaskDur,
	}
}

// MoveStart marks a move submission entering the pipeline.
func (m *Metrics) MoveStart() {
	m.moveInfl.Inc()
}

// MoveDone records the outcome of a finished submission. reason is empty
// for accepted moves and carries the rejection reason or error kind
// otherwise.
func (m *Metrics) MoveDone(outcome, reason string, retries int, since time.Time) {
	m.moveCnt.WithLabelValues(outcome, reason).Inc()
	m.moveDur.WithLabelValues(outcome).Observe(time.Since(since).Seconds())
	m.casRetries.Observe(float64(retries))
	m.moveInfl.Dec()
}

// CASConflict counts one optimistic-lock collision.
func (m *Metrics) CASConflict() {
	m.casConflicts.Inc()
}

// SessionEvent counts created/expired/archived transitions.
func (m *Metrics) SessionEvent(event string) {
	m.sessionCnt.WithLabelValues(event).Inc()
}

// NotifierEvent counts an emitted (or failed) notification by type.
func (m *Metrics) NotifierEvent(eventType, status string) {
	m.notifierCnt.WithLabelValues(eventType, status).Inc()
}

// StorageError counts a persistence failure surfaced by a component.
func (m *Metrics) StorageError(component string) {
	m.storageErrs.WithLabelValues(component).Inc()
}

// SweepDone records one lifecycle sweep pass.
func (m *Metrics) SweepDone(expired int, since time.Time) {
	m.sweepDur.Observe(time.Since(since).Seconds())
	m.sweepExpired.Add(float64(expired))
}

// DeathLogged counts one recorded player death.
func (m *Metrics) DeathLogged() {
	m.worldDeaths.Inc()
}

// WorldTaskDone records one background world task run (decay, dread recalc).
func (m *Metrics) WorldTaskDone(task string, since time.Time) {
	m.worldTaskDur.WithLabelValues(task).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := httpStatus(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatus(code int) string { return strconv.Itoa(code) }
