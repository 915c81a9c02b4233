package metrics

import "time"

// Tee forwards every record to each collector in order.
type Tee []Collector

func (t Tee) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	for _, c := range t {
		c.RecordCacheGet(layer, hit, duration)
	}
}

func (t Tee) RecordCacheSet(layer string, success bool, duration time.Duration) {
	for _, c := range t {
		c.RecordCacheSet(layer, success, duration)
	}
}

func (t Tee) RecordCacheDelete(layer string, success bool, duration time.Duration) {
	for _, c := range t {
		c.RecordCacheDelete(layer, success, duration)
	}
}

func (t Tee) RecordCircuitState(name string, state CircuitState) {
	for _, c := range t {
		c.RecordCircuitState(name, state)
	}
}

func (t Tee) RecordQueueDepth(layer string, depth int) {
	for _, c := range t {
		c.RecordQueueDepth(layer, depth)
	}
}

func (t Tee) RecordWriteDropped(layer string) {
	for _, c := range t {
		c.RecordWriteDropped(layer)
	}
}

func (t Tee) RecordAsyncWrite(layer string, success bool, duration time.Duration) {
	for _, c := range t {
		c.RecordAsyncWrite(layer, success, duration)
	}
}

func (t Tee) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {
	for _, c := range t {
		c.RecordChainGet(hit, layerIndex, totalDuration)
	}
}

func (t Tee) RecordAssessment(kind string, outcome Outcome, duration time.Duration) {
	for _, c := range t {
		c.RecordAssessment(kind, outcome, duration)
	}
}

func (t Tee) RecordChatStream(fragments int, success bool, duration time.Duration) {
	for _, c := range t {
		c.RecordChatStream(fragments, success, duration)
	}
}

func (t Tee) RecordTransition(from, to string) {
	for _, c := range t {
		c.RecordTransition(from, to)
	}
}

func (t Tee) RecordTransfer(provider string, status string, amount float64) {
	for _, c := range t {
		c.RecordTransfer(provider, status, amount)
	}
}
