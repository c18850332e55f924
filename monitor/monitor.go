// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	RoundsCompleted  prometheus.Counter
	GamesFinished    prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of open connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		RoundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Total number of rounds that reached results",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of games that reached game over",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received by event",
		}, []string{"event"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	registerer.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.RoundsCompleted,
		m.GamesFinished,
		m.MessagesReceived,
		m.MessageLatency,
	)

	return m
}

// Monitor owns a private registry so several servers (and tests) can coexist
// in one process.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Vars reports uptime and message totals for the expvar-style debug endpoint.
func (m *Monitor) Vars() map[string]interface{} {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return map[string]interface{}{
		"uptime":   time.Since(m.startTime).Seconds(),
		"requests": m.requestCount,
	}
}

// PublishExpvar exposes Vars under /debug/vars. Only the first call per
// process takes effect, since expvar names are global.
func (m *Monitor) PublishExpvar() {
	publishOnce.Do(func() {
		expvar.Publish("whosaidit", expvar.Func(func() interface{} {
			return m.Vars()
		}))
	})
}

var publishOnce sync.Once

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) RoomOpened() {
	m.metrics.ActiveRooms.Inc()
}

func (m *Monitor) RoomClosed() {
	m.metrics.ActiveRooms.Dec()
}

func (m *Monitor) RoundCompleted() {
	m.metrics.RoundsCompleted.Inc()
}

func (m *Monitor) GameFinished() {
	m.metrics.GamesFinished.Inc()
}

func (m *Monitor) IncMessagesReceived(event string) {
	m.metrics.MessagesReceived.WithLabelValues(event).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}
