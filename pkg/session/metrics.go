package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mapsync-dev/mapsync/pkg/delta"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

// MetricsConfig configures session metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "mapsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for tick duration.
	// Default: 100µs to ~1.6s, doubling.
	Buckets []float64

	// Registry receives the collectors. It is also what the admin
	// endpoint gathers from.
	// Default: a fresh prometheus.Registry.
	Registry *prometheus.Registry
}

// MetricsOption configures session metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "mapsync",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
	}
}

// Metrics holds the Prometheus collectors for one process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesIn       *prometheus.CounterVec
	framesOut      *prometheus.CounterVec
	bytesInTotal   prometheus.Counter
	bytesOutTotal  prometheus.Counter
	commandsOut    *prometheus.CounterVec
	commandsIn     *prometheus.CounterVec
	relayed        prometheus.Counter
	levelMismatch  prometheus.Counter
	protocolErrors *prometheus.CounterVec
	resyncs        *prometheus.CounterVec
	peers          prometheus.Gauge
	tickDuration   prometheus.Histogram
}

// NewMetrics creates and registers the session collectors.
//
// Metrics collected:
//   - mapsync_frames_received_total: frames read, by header
//   - mapsync_frames_sent_total: frames written, by header
//   - mapsync_bytes_received_total / mapsync_bytes_sent_total
//   - mapsync_commands_produced_total: local changes sent, by kind
//   - mapsync_commands_applied_total: remote commands, by outcome
//   - mapsync_frames_relayed_total: frames forwarded to other peers
//   - mapsync_level_mismatch_total: Update frames discarded for level
//   - mapsync_protocol_errors_total: malformed input, by type
//   - mapsync_resyncs_total: resync requests, by outcome
//   - mapsync_peers: connected peers
//   - mapsync_tick_duration_seconds: time spent in one tick
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		registry:       config.Registry,
		framesIn:       counterVec("frames_received_total", "Frames received from peers", "header"),
		framesOut:      counterVec("frames_sent_total", "Frames sent to peers", "header"),
		bytesInTotal:   counter("bytes_received_total", "Bytes read from peers"),
		bytesOutTotal:  counter("bytes_sent_total", "Bytes written to peers"),
		commandsOut:    counterVec("commands_produced_total", "Local changes sent", "kind"),
		commandsIn:     counterVec("commands_applied_total", "Remote commands by outcome", "outcome"),
		relayed:        counter("frames_relayed_total", "Frames forwarded to other peers"),
		levelMismatch:  counter("level_mismatch_total", "Update frames discarded because of a level mismatch"),
		protocolErrors: counterVec("protocol_errors_total", "Malformed frames and commands", "type"),
		resyncs:        counterVec("resyncs_total", "Resync requests by outcome", "outcome"),
		peers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "peers",
			Help:        "Connected peers",
			ConstLabels: config.ConstLabels,
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tick_duration_seconds",
			Help:        "Time spent in one session tick",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) frameIn(h protocol.Header) {
	if m != nil {
		m.framesIn.WithLabelValues(h.String()).Inc()
	}
}

func (m *Metrics) frameOut(h protocol.Header, n int) {
	if m != nil && n > 0 {
		m.framesOut.WithLabelValues(h.String()).Add(float64(n))
	}
}

func (m *Metrics) bytesIn(n int) {
	if m != nil {
		m.bytesInTotal.Add(float64(n))
	}
}

func (m *Metrics) bytesOut(n int) {
	if m != nil {
		m.bytesOutTotal.Add(float64(n))
	}
}

func (m *Metrics) produced(cmds []protocol.Command) {
	if m == nil {
		return
	}
	for i := range cmds {
		m.commandsOut.WithLabelValues(cmds[i].Kind.String()).Inc()
	}
}

func (m *Metrics) applied(res delta.Result) {
	if m == nil {
		return
	}
	if res.LevelMismatch {
		m.levelMismatch.Inc()
		return
	}
	for outcome, n := range map[string]int{
		"created": res.Created,
		"removed": res.Removed,
		"renamed": res.Renamed,
		"updated": res.Updated,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	} {
		if n > 0 {
			m.commandsIn.WithLabelValues(outcome).Add(float64(n))
		}
	}
}

func (m *Metrics) relay(n int) {
	if m != nil && n > 0 {
		m.relayed.Add(float64(n))
	}
}

func (m *Metrics) protocolError(kind string) {
	if m != nil {
		m.protocolErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) resync(outcome string) {
	if m != nil {
		m.resyncs.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) setPeers(n int) {
	if m != nil {
		m.peers.Set(float64(n))
	}
}

func (m *Metrics) observeTick(d time.Duration) {
	if m != nil {
		m.tickDuration.Observe(d.Seconds())
	}
}
