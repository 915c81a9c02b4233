package prometheus

import (
	"strconv"
	"time"

	"arithmitra/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements metrics.Collector for Prometheus.
// It is itself a prometheus.Collector, so one MustRegister call exposes every series.
type PrometheusCollector struct {
	namespace string

	// Assessment cache
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec

	// Circuit breakers
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Async warm-up writer
	queueDepth    *prometheus.GaugeVec
	droppedWrites *prometheus.CounterVec
	asyncWrites   *prometheus.CounterVec

	// Chain-level
	chainLookups *prometheus.CounterVec
	chainLatency *prometheus.HistogramVec

	// Gateway
	assessments       *prometheus.CounterVec
	assessmentLatency *prometheus.HistogramVec
	chatStreams       *prometheus.CounterVec
	chatFragments     prometheus.Counter

	// Payment flow
	transitions    *prometheus.CounterVec
	transfers      *prometheus.CounterVec
	transferAmount *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	latencyBuckets := prometheus.ExponentialBuckets(0.0001, 2, 15) // 0.1ms to ~3s
	callBuckets := prometheus.ExponentialBuckets(0.05, 2, 10)      // 50ms to ~25s

	return &PrometheusCollector{
		namespace: namespace,
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of assessment cache hits per layer",
			},
			[]string{"layer"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of assessment cache misses per layer",
			},
			[]string{"layer"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Total number of cache errors per layer and operation",
			},
			[]string{"layer", "operation"},
		),
		cacheLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_operation_duration_seconds",
				Help:      "Cache operation latency",
				Buckets:   latencyBuckets,
			},
			[]string{"layer", "operation"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"circuit"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"circuit"},
		),
		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "warmup_queue_depth",
				Help:      "Current async warm-up queue depth per layer",
			},
			[]string{"layer"},
		),
		droppedWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warmup_dropped_total",
				Help:      "Total number of dropped warm-up writes per layer",
			},
			[]string{"layer"},
		),
		asyncWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warmup_writes_total",
				Help:      "Total number of warm-up writes per layer",
			},
			[]string{"layer", "status"},
		),
		chainLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_lookups_total",
				Help:      "Total number of chain lookups by hit layer (miss when none)",
			},
			[]string{"layer_index"},
		),
		chainLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_get_duration_seconds",
				Help:      "Chain get operation total latency",
				Buckets:   latencyBuckets,
			},
			[]string{"hit"},
		),
		assessments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_total",
				Help:      "Total number of gateway calls by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		assessmentLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assessment_duration_seconds",
				Help:      "Gateway call latency",
				Buckets:   callBuckets,
			},
			[]string{"kind"},
		),
		chatStreams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_streams_total",
				Help:      "Total number of chat streams by status",
			},
			[]string{"status"},
		),
		chatFragments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_fragments_total",
				Help:      "Total number of streamed chat fragments",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_transitions_total",
				Help:      "Payment flow step transitions",
			},
			[]string{"from", "to"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Completed transfer attempts by provider and status",
			},
			[]string{"provider", "status"},
		),
		transferAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_amount_total",
				Help:      "Sum of settled transfer amounts by provider",
			},
			[]string{"provider"},
		),
	}
}

func (pc *PrometheusCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pc.cacheHits,
		pc.cacheMisses,
		pc.cacheErrors,
		pc.cacheLatency,
		pc.circuitOpens,
		pc.circuitState,
		pc.queueDepth,
		pc.droppedWrites,
		pc.asyncWrites,
		pc.chainLookups,
		pc.chainLatency,
		pc.assessments,
		pc.assessmentLatency,
		pc.chatStreams,
		pc.chatFragments,
		pc.transitions,
		pc.transfers,
		pc.transferAmount,
	}
}

// Describe implements prometheus.Collector.
func (pc *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range pc.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (pc *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range pc.collectors() {
		c.Collect(ch)
	}
}

// RecordCacheGet records a cache get operation.
func (pc *PrometheusCollector) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	if hit {
		pc.cacheHits.WithLabelValues(layer).Inc()
	} else {
		pc.cacheMisses.WithLabelValues(layer).Inc()
	}
	pc.cacheLatency.WithLabelValues(layer, "get").Observe(duration.Seconds())
}

// RecordCacheSet records a cache set operation.
func (pc *PrometheusCollector) RecordCacheSet(layer string, success bool, duration time.Duration) {
	if !success {
		pc.cacheErrors.WithLabelValues(layer, "set").Inc()
	}
	pc.cacheLatency.WithLabelValues(layer, "set").Observe(duration.Seconds())
}

// RecordCacheDelete records a cache delete operation.
func (pc *PrometheusCollector) RecordCacheDelete(layer string, success bool, duration time.Duration) {
	if !success {
		pc.cacheErrors.WithLabelValues(layer, "delete").Inc()
	}
	pc.cacheLatency.WithLabelValues(layer, "delete").Observe(duration.Seconds())
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

// RecordQueueDepth records the current async writer queue depth.
func (pc *PrometheusCollector) RecordQueueDepth(layer string, depth int) {
	pc.queueDepth.WithLabelValues(layer).Set(float64(depth))
}

// RecordWriteDropped records a dropped async write.
func (pc *PrometheusCollector) RecordWriteDropped(layer string) {
	pc.droppedWrites.WithLabelValues(layer).Inc()
}

// RecordAsyncWrite records an async write operation.
func (pc *PrometheusCollector) RecordAsyncWrite(layer string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.asyncWrites.WithLabelValues(layer, status).Inc()
}

// RecordChainGet records a chain-level get operation.
func (pc *PrometheusCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {
	if hit {
		pc.chainLookups.WithLabelValues(strconv.Itoa(layerIndex)).Inc()
	} else {
		pc.chainLookups.WithLabelValues("miss").Inc()
	}
	pc.chainLatency.WithLabelValues(strconv.FormatBool(hit)).Observe(totalDuration.Seconds())
}

// RecordAssessment records a gateway call.
func (pc *PrometheusCollector) RecordAssessment(kind string, outcome metrics.Outcome, duration time.Duration) {
	pc.assessments.WithLabelValues(kind, string(outcome)).Inc()
	if outcome != metrics.OutcomeInvalidInput {
		pc.assessmentLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordChatStream records a finished chat stream.
func (pc *PrometheusCollector) RecordChatStream(fragments int, success bool, duration time.Duration) {
	status := "complete"
	if !success {
		status = "aborted"
	}
	pc.chatStreams.WithLabelValues(status).Inc()
	pc.chatFragments.Add(float64(fragments))
}

// RecordTransition records a payment flow step change.
func (pc *PrometheusCollector) RecordTransition(from, to string) {
	pc.transitions.WithLabelValues(from, to).Inc()
}

// RecordTransfer records the end of a transfer attempt.
func (pc *PrometheusCollector) RecordTransfer(provider string, status string, amount float64) {
	pc.transfers.WithLabelValues(provider, status).Inc()
	if status == "success" {
		pc.transferAmount.WithLabelValues(provider).Add(amount)
	}
}
