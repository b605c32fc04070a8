package graph

import "time"

// Option configures an Engine.
//
// Example:
//
//	engine := graph.NewEngine(compiled, st, emitter,
//	    graph.WithMaxConcurrent(4),
//	    graph.WithDefaultNodeTimeout(2*time.Minute),
//	)
type Option func(*engineConfig)

type engineConfig struct {
	maxConcurrent      int
	maxSteps           int
	defaultNodeTimeout time.Duration
	runTimeout         time.Duration
	metrics            *PrometheusMetrics
}

// WithMaxConcurrent caps how many nodes execute in parallel. Default 4.
// Each inflight node holds a deep copy of state, so memory scales with
// this value.
func WithMaxConcurrent(n int) Option {
	return func(cfg *engineConfig) {
		if n > 0 {
			cfg.maxConcurrent = n
		}
	}
}

// WithMaxSteps caps the total node completions per run, a belt-and-braces
// guard on top of the recursion limit. Default 0 (no cap).
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) { cfg.maxSteps = n }
}

// WithDefaultNodeTimeout bounds individual node execution for nodes
// without a WithTimeout override. Default 0 (unbounded).
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) { cfg.defaultNodeTimeout = d }
}

// WithRunTimeout bounds an entire run's wall clock. When exceeded the run
// checkpoints as interrupted and returns the context error. Default 0
// (unbounded).
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) { cfg.runTimeout = d }
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) { cfg.metrics = m }
}
