// monitor/monitor.go
package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers       prometheus.Gauge
	XPGrantedTotal      prometheus.Counter
	LevelUps            prometheus.Counter
	QuestsCompleted     *prometheus.CounterVec
	DungeonRuns         *prometheus.CounterVec
	AchievementUnlocks  prometheus.Counter
	WSMessagesReceived  prometheus.Counter
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of distinct players with an open websocket",
		}),
		XPGrantedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_granted_total",
			Help:      "Total XP granted through quests, dungeons and direct grants",
		}),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Total levels gained",
		}),
		QuestsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quests_completed_total",
			Help:      "Completed quests by quest type",
		}, []string{"type"}),
		DungeonRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dungeon_runs_total",
			Help:      "Finished dungeon runs by outcome",
		}, []string{"status"}),
		AchievementUnlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Total achievements unlocked",
		}),
		WSMessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_received_total",
			Help:      "Total number of websocket messages received",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.XPGrantedTotal,
		m.LevelUps,
		m.QuestsCompleted,
		m.DungeonRuns,
		m.AchievementUnlocks,
		m.WSMessagesReceived,
		m.HTTPRequestDuration,
	}
}

// Monitor 持有指标和它们所在的 registry
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

// NewMonitor 使用独立的 registry，测试中可以重复创建
func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the server started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

// Handler /metrics
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) SetOnlinePlayers(count int) {
	m.metrics.OnlinePlayers.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.WSMessagesReceived.Inc()
}

func (m *Monitor) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.metrics.HTTPRequestDuration.
		WithLabelValues(method, route, strconv.Itoa(status)).
		Observe(duration.Seconds())
}

func (m *Monitor) XPGranted(amount int) {
	m.metrics.XPGrantedTotal.Add(float64(amount))
}

func (m *Monitor) LevelsGained(n int) {
	m.metrics.LevelUps.Add(float64(n))
}

func (m *Monitor) QuestCompleted(questType string) {
	m.metrics.QuestsCompleted.WithLabelValues(questType).Inc()
}

func (m *Monitor) DungeonFinished(status string) {
	m.metrics.DungeonRuns.WithLabelValues(status).Inc()
}

func (m *Monitor) AchievementUnlocked() {
	m.metrics.AchievementUnlocks.Inc()
}
