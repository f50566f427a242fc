// Package ops — метрики Prometheus и служебный HTTP (/healthz, /metrics).
package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics реализует наблюдателей esi, zkill и killfeed.
// Все методы безопасны на nil-получателе.
type Metrics struct {
	registry *prometheus.Registry

	feedTicks     *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	pruned        prometheus.Counter
	esiRequests   *prometheus.CounterVec
	esiCacheHits  *prometheus.CounterVec
	commandsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feedTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killbot_feed_ticks_total",
				Help: "RedisQ poll ticks by result (event, empty, error).",
			},
			[]string{"result"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killbot_deliveries_total",
				Help: "Killmail notifications by routing mode and delivery result.",
			},
			[]string{"mode", "result"},
		),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "killbot_subscriptions_pruned_total",
			Help: "Dynamic subscriptions removed after failed delivery.",
		}),
		esiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killbot_esi_requests_total",
				Help: "ESI requests by entity kind and result.",
			},
			[]string{"kind", "result"},
		),
		esiCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killbot_esi_cache_hits_total",
				Help: "ESI lookups served from the in-process cache.",
			},
			[]string{"kind"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "killbot_commands_total",
				Help: "Chat commands handled by command and result.",
			},
			[]string{"command", "result"},
		),
	}
	m.registry.MustRegister(
		m.feedTicks,
		m.deliveries,
		m.pruned,
		m.esiRequests,
		m.esiCacheHits,
		m.commandsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFeedTick(result string) {
	if m == nil {
		return
	}
	m.feedTicks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDelivery(mode, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) ObservePruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

func (m *Metrics) ObserveESIRequest(kind, result string) {
	if m == nil {
		return
	}
	m.esiRequests.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveESICacheHit(kind string) {
	if m == nil {
		return
	}
	m.esiCacheHits.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveCommand(command, result string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, result).Inc()
}
