package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects execution metrics for production monitoring,
// namespaced "docreel_":
//
//   - inflight_nodes (gauge): nodes currently executing
//   - ready_queue_depth (gauge): nodes waiting for a worker slot
//   - node_latency_ms (histogram): execution duration per node and status
//   - node_failures_total (counter): node errors per node
//   - node_retries_total (counter): retry attempts per node
//   - loop_iterations_total (counter): back-edge traversals per graph
//   - checkpoint_saves_total (counter): checkpoint writes per graph
//
// Wire it with WithMetrics and expose the registry via promhttp.
type PrometheusMetrics struct {
	inflightNodes   prometheus.Gauge
	readyQueueDepth prometheus.Gauge
	nodeLatency     *prometheus.HistogramVec
	nodeFailures    *prometheus.CounterVec
	nodeRetries     *prometheus.CounterVec
	loopIterations  *prometheus.CounterVec
	checkpointSaves *prometheus.CounterVec
}

// NewPrometheusMetrics registers all metrics with registry
// (prometheus.DefaultRegisterer when nil).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docreel",
			Name:      "inflight_nodes",
			Help:      "Current number of nodes executing concurrently",
		}),
		readyQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docreel",
			Name:      "ready_queue_depth",
			Help:      "Number of ready nodes waiting for a worker slot",
		}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docreel",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"graph", "node", "status"}),
		nodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docreel",
			Name:      "node_failures_total",
			Help:      "Node executions that returned an error",
		}, []string{"graph", "node"}),
		nodeRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docreel",
			Name:      "node_retries_total",
			Help:      "Node retry attempts",
		}, []string{"graph", "node"}),
		loopIterations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docreel",
			Name:      "loop_iterations_total",
			Help:      "Back-edge traversals of declared loops",
		}, []string{"graph"}),
		checkpointSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docreel",
			Name:      "checkpoint_saves_total",
			Help:      "Checkpoint writes",
		}, []string{"graph"}),
	}
}

// nilsafe helpers: the engine calls these unconditionally.

func (pm *PrometheusMetrics) setInflight(n int) {
	if pm == nil {
		return
	}
	pm.inflightNodes.Set(float64(n))
}

func (pm *PrometheusMetrics) setQueueDepth(n int) {
	if pm == nil {
		return
	}
	pm.readyQueueDepth.Set(float64(n))
}

func (pm *PrometheusMetrics) observeLatency(graph, node string, d time.Duration, status string) {
	if pm == nil {
		return
	}
	pm.nodeLatency.WithLabelValues(graph, node, status).Observe(float64(d.Milliseconds()))
}

func (pm *PrometheusMetrics) incFailure(graph, node string) {
	if pm == nil {
		return
	}
	pm.nodeFailures.WithLabelValues(graph, node).Inc()
}

func (pm *PrometheusMetrics) incRetry(graph, node string) {
	if pm == nil {
		return
	}
	pm.nodeRetries.WithLabelValues(graph, node).Inc()
}

func (pm *PrometheusMetrics) incLoop(graph string) {
	if pm == nil {
		return
	}
	pm.loopIterations.WithLabelValues(graph).Inc()
}

func (pm *PrometheusMetrics) incCheckpoint(graph string) {
	if pm == nil {
		return
	}
	pm.checkpointSaves.WithLabelValues(graph).Inc()
}
