package pipeline

import (
	"math"
	"sync"
)

// ProgressSink receives the overall batch percentage. Values are integers in
// [0,100] and never decrease within one batch.
type ProgressSink func(percent int)

// batchProgress aggregates per-file progress into one batch percentage. Only
// the orchestrator writes to it; the sink is called with the lock held so
// emitted values reach the sink in order.
type batchProgress struct {
	mu        sync.Mutex
	total     int
	completed int
	inFlight  map[int]int
	last      int
	sink      ProgressSink
}

func newBatchProgress(total int, sink ProgressSink) *batchProgress {
	p := &batchProgress{
		total:    total,
		inFlight: make(map[int]int),
		last:     -1,
		sink:     sink,
	}
	p.mu.Lock()
	p.emitLocked()
	p.mu.Unlock()
	return p
}

// update records the in-flight percentage of file idx.
func (p *batchProgress) update(idx, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	percent = clampPercent(percent)
	if percent < p.inFlight[idx] {
		return
	}
	p.inFlight[idx] = percent
	p.emitLocked()
}

// complete moves file idx from in-flight to completed.
func (p *batchProgress) complete(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, idx)
	p.completed++
	p.emitLocked()
}

// abandon drops a failed file's in-flight share without moving the reported
// value backwards.
func (p *batchProgress) abandon(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, idx)
}

func (p *batchProgress) emitLocked() {
	sum := p.completed * 100
	for _, v := range p.inFlight {
		sum += v
	}
	v := BatchPercent(sum, p.total)
	if v <= p.last {
		return
	}
	p.last = v
	if p.sink != nil {
		p.sink(v)
	}
}

// BatchPercent is round(units/total) where units is completed*100 plus the
// in-flight percentages, clamped to [0,100].
func BatchPercent(units, total int) int {
	if total <= 0 {
		return 0
	}
	return clampPercent(int(math.Round(float64(units) / float64(total))))
}

// FilePercent converts a transferred fraction into a rounded percentage.
func FilePercent(fraction float64) int {
	if math.IsNaN(fraction) {
		return 0
	}
	return clampPercent(int(math.Round(fraction * 100)))
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
