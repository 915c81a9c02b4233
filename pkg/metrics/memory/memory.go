package memory

import (
	"sync"
	"time"

	"arithmitra/pkg/metrics"
)

// MemoryCollector keeps metrics in process. It backs /metrics/json and the tests.
type MemoryCollector struct {
	mu sync.RWMutex

	layers      map[string]*LayerMetrics
	circuits    map[string]*CircuitMetrics
	assessments map[string]map[metrics.Outcome]int64

	chainHits        int64
	chainMisses      int64
	chainHitsByLayer map[int]int64

	chatStreams   int64
	chatFailures  int64
	chatFragments int64

	transitions map[string]int64
	transfers   map[string]*TransferMetrics
}

// LayerMetrics holds metrics for a single cache layer.
type LayerMetrics struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Deletes int64
	Errors  int64

	QueueDepth    int
	DroppedWrites int64
	AsyncWrites   int64
	AsyncErrors   int64
}

// CircuitMetrics holds the state of one circuit breaker.
type CircuitMetrics struct {
	State metrics.CircuitState
	Opens int64
}

// TransferMetrics aggregates transfers for one provider.
type TransferMetrics struct {
	Count   map[string]int64
	Settled float64
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	mc := &MemoryCollector{}
	mc.reset()
	return mc
}

func (mc *MemoryCollector) reset() {
	mc.layers = make(map[string]*LayerMetrics)
	mc.circuits = make(map[string]*CircuitMetrics)
	mc.assessments = make(map[string]map[metrics.Outcome]int64)
	mc.chainHits = 0
	mc.chainMisses = 0
	mc.chainHitsByLayer = make(map[int]int64)
	mc.chatStreams = 0
	mc.chatFailures = 0
	mc.chatFragments = 0
	mc.transitions = make(map[string]int64)
	mc.transfers = make(map[string]*TransferMetrics)
}

// layer must be called with mu held.
func (mc *MemoryCollector) layer(name string) *LayerMetrics {
	lm, ok := mc.layers[name]
	if !ok {
		lm = &LayerMetrics{}
		mc.layers[name] = lm
	}
	return lm
}

// RecordCacheGet records a cache get operation.
func (mc *MemoryCollector) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	if hit {
		lm.Hits++
	} else {
		lm.Misses++
	}
}

// RecordCacheSet records a cache set operation.
func (mc *MemoryCollector) RecordCacheSet(layer string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	lm.Sets++
	if !success {
		lm.Errors++
	}
}

// RecordCacheDelete records a cache delete operation.
func (mc *MemoryCollector) RecordCacheDelete(layer string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	lm.Deletes++
	if !success {
		lm.Errors++
	}
}

// RecordCircuitState records the current circuit breaker state.
func (mc *MemoryCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	cm, ok := mc.circuits[name]
	if !ok {
		cm = &CircuitMetrics{}
		mc.circuits[name] = cm
	}
	if cm.State != metrics.CircuitOpen && state == metrics.CircuitOpen {
		cm.Opens++
	}
	cm.State = state
}

// RecordQueueDepth records the current async writer queue depth.
func (mc *MemoryCollector) RecordQueueDepth(layer string, depth int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.layer(layer).QueueDepth = depth
}

// RecordWriteDropped records a dropped async write.
func (mc *MemoryCollector) RecordWriteDropped(layer string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.layer(layer).DroppedWrites++
}

// RecordAsyncWrite records an async write operation.
func (mc *MemoryCollector) RecordAsyncWrite(layer string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	lm := mc.layer(layer)
	lm.AsyncWrites++
	if !success {
		lm.AsyncErrors++
	}
}

// RecordChainGet records a chain-level get operation.
func (mc *MemoryCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if hit {
		mc.chainHits++
		mc.chainHitsByLayer[layerIndex]++
	} else {
		mc.chainMisses++
	}
}

// RecordAssessment records one gateway call.
func (mc *MemoryCollector) RecordAssessment(kind string, outcome metrics.Outcome, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	byOutcome, ok := mc.assessments[kind]
	if !ok {
		byOutcome = make(map[metrics.Outcome]int64)
		mc.assessments[kind] = byOutcome
	}
	byOutcome[outcome]++
}

// RecordChatStream records one completed or aborted chat stream.
func (mc *MemoryCollector) RecordChatStream(fragments int, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.chatStreams++
	mc.chatFragments += int64(fragments)
	if !success {
		mc.chatFailures++
	}
}

// RecordTransition records a payment flow step change.
func (mc *MemoryCollector) RecordTransition(from, to string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.transitions[from+"->"+to]++
}

// RecordTransfer records a settled or failed transfer.
func (mc *MemoryCollector) RecordTransfer(provider string, status string, amount float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	tm, ok := mc.transfers[provider]
	if !ok {
		tm = &TransferMetrics{Count: make(map[string]int64)}
		mc.transfers[provider] = tm
	}
	tm.Count[status]++
	if status == "success" {
		tm.Settled += amount
	}
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	Layers           map[string]LayerMetrics              `json:"layers"`
	Circuits         map[string]CircuitMetrics            `json:"circuits"`
	Assessments      map[string]map[metrics.Outcome]int64 `json:"assessments"`
	ChainHits        int64                                `json:"chain_hits"`
	ChainMisses      int64                                `json:"chain_misses"`
	ChainHitsByLayer map[int]int64                        `json:"chain_hits_by_layer"`
	ChatStreams      int64                                `json:"chat_streams"`
	ChatFailures     int64                                `json:"chat_failures"`
	ChatFragments    int64                                `json:"chat_fragments"`
	Transitions      map[string]int64                     `json:"transitions"`
	Transfers        map[string]TransferMetrics           `json:"transfers"`
}

// Snapshot returns a deep copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s := Snapshot{
		Layers:           make(map[string]LayerMetrics, len(mc.layers)),
		Circuits:         make(map[string]CircuitMetrics, len(mc.circuits)),
		Assessments:      make(map[string]map[metrics.Outcome]int64, len(mc.assessments)),
		ChainHits:        mc.chainHits,
		ChainMisses:      mc.chainMisses,
		ChainHitsByLayer: make(map[int]int64, len(mc.chainHitsByLayer)),
		ChatStreams:      mc.chatStreams,
		ChatFailures:     mc.chatFailures,
		ChatFragments:    mc.chatFragments,
		Transitions:      make(map[string]int64, len(mc.transitions)),
		Transfers:        make(map[string]TransferMetrics, len(mc.transfers)),
	}

	for name, lm := range mc.layers {
		s.Layers[name] = *lm
	}
	for name, cm := range mc.circuits {
		s.Circuits[name] = *cm
	}
	for kind, byOutcome := range mc.assessments {
		c := make(map[metrics.Outcome]int64, len(byOutcome))
		for o, n := range byOutcome {
			c[o] = n
		}
		s.Assessments[kind] = c
	}
	for idx, hits := range mc.chainHitsByLayer {
		s.ChainHitsByLayer[idx] = hits
	}
	for k, n := range mc.transitions {
		s.Transitions[k] = n
	}
	for provider, tm := range mc.transfers {
		c := TransferMetrics{Count: make(map[string]int64, len(tm.Count)), Settled: tm.Settled}
		for status, n := range tm.Count {
			c.Count[status] = n
		}
		s.Transfers[provider] = c
	}

	return s
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.reset()
}
