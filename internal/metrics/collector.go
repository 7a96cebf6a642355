// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// OpDocument aggregates whole-document latency from admission to outcome.
const OpDocument = "document"

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string
	Count       int64
	Errors      int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the collected statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Admitted      int64
	InFlight      int64
	MaxInFlight   int64
	// Operations are sorted by name.
	Operations []OperationSnapshot
}

// Collector aggregates in-memory runtime statistics. It implements
// pipeline.Observer so it can be attached to an orchestrator directly.
// All methods are thread-safe.
type Collector struct {
	pipeline.NopObserver

	mu          sync.RWMutex
	startTime   time.Time
	ops         map[string]*OperationMetrics
	admitted    int64
	inFlight    int64
	maxInFlight int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if failed {
		m.Errors++
	}

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// DocumentAdmitted implements pipeline.Observer.
func (c *Collector) DocumentAdmitted(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admitted++
	c.inFlight++
	c.maxInFlight = max(c.maxInFlight, c.inFlight)
}

// StageFinished implements pipeline.Observer.
func (c *Collector) StageFinished(_ string, stage string, elapsed time.Duration, err error) {
	c.RecordTiming(stage, elapsed, err != nil)
}

// DocumentFinished implements pipeline.Observer. Documents that were never
// admitted are not timed.
func (c *Collector) DocumentFinished(_ string, outcome pipeline.Outcome) {
	if outcome.Stage == pipeline.StageAdmission {
		return
	}
	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	c.RecordTiming(OpDocument, outcome.Elapsed, !outcome.OK())
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(name string, m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Admitted:      c.admitted,
		InFlight:      c.inFlight,
		MaxInFlight:   c.maxInFlight,
	}
	for name, m := range c.ops {
		if op := snapshotOp(name, m); op != nil {
			snap.Operations = append(snap.Operations, *op)
		}
	}
	slices.SortFunc(snap.Operations, func(a, b OperationSnapshot) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return snap
}

// Operation returns the snapshot for one operation, or nil if it never ran.
func (s Snapshot) Operation(name string) *OperationSnapshot {
	for i := range s.Operations {
		if s.Operations[i].Name == name {
			return &s.Operations[i]
		}
	}
	return nil
}
