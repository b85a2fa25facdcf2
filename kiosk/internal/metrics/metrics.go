package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Krimson/triage-kiosk/kiosk/internal/session"
)

// Metrics - счетчики киоска на собственном реестре
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCommitted *prometheus.CounterVec
	sessionsAborted   *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	stateTransitions  *prometheus.CounterVec
	sensorUp          *prometheus.GaugeVec
}

// New создает и регистрирует коллекторы
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiosk_sessions_started_total",
			Help: "Triage sessions started at the kiosk",
		}),
		sessionsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_sessions_committed_total",
			Help: "Triage sessions committed to the aggregates",
		}, []string{"color", "validated"}),
		sessionsAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_sessions_aborted_total",
			Help: "Triage sessions discarded before commit",
		}, []string{"reason"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_http_requests_total",
			Help: "HTTP requests served by route",
		}, []string{"route"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_state_transitions_total",
			Help: "Session state machine entries by state",
		}, []string{"state"}),
		sensorUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kiosk_sensor_up",
			Help: "Last sensor init result (1 ok, 0 failed)",
		}, []string{"sensor"}),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsCommitted,
		m.sessionsAborted,
		m.httpRequests,
		m.stateTransitions,
		m.sensorUp,
	)

	// Все состояния видны в выдаче с нуля
	for _, s := range session.States() {
		m.stateTransitions.WithLabelValues(s.String())
	}
	return m
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestServed реализует transport.RequestObserver
func (m *Metrics) RequestServed(route string) {
	m.httpRequests.WithLabelValues(route).Inc()
}

// Методы session.Observer

func (m *Metrics) StateEntered(s session.State) {
	m.stateTransitions.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) SessionStarted(string) {
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionCommitted(rec session.CommitRecord) {
	m.sessionsCommitted.WithLabelValues(
		rec.Entry.Color.String(),
		strconv.FormatBool(rec.Entry.ColorValidated),
	).Inc()
}

func (m *Metrics) SessionAborted(_ string, reason string) {
	m.sessionsAborted.WithLabelValues(reason).Inc()
}

func (m *Metrics) SensorStatus(sensor session.SensorKind, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	m.sensorUp.WithLabelValues(string(sensor)).Set(v)
}
