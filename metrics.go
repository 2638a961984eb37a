package phaseloop

import (
	"sync/atomic"
)

// metrics tracks runtime counters for the loop. All counters are atomic so
// MetricsSnapshot reads are safe from any goroutine while the loop runs.
type metrics struct {
	iterations    atomic.Uint64
	polls         atomic.Uint64
	tasks         [kindCount]atomic.Uint64
	maxDrainDepth atomic.Uint64
}

func (m *metrics) recordTask(kind TaskKind) {
	if m == nil {
		return
	}
	m.tasks[kind].Add(1)
}

func (m *metrics) recordIteration() {
	if m == nil {
		return
	}
	m.iterations.Add(1)
}

func (m *metrics) recordPoll() {
	if m == nil {
		return
	}
	m.polls.Add(1)
}

// recordDrainDepth updates the drain-depth high-water mark.
func (m *metrics) recordDrainDepth(depth uint64) {
	if m == nil {
		return
	}
	for {
		cur := m.maxDrainDepth.Load()
		if depth <= cur || m.maxDrainDepth.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// MetricsSnapshot is a point-in-time copy of the loop's runtime counters.
//
// Example:
//
//	loop, _ := New(WithMetrics(true))
//	_ = loop.Run()
//	stats := loop.Metrics()
//	fmt.Printf("iterations=%d timers=%d\n", stats.Iterations, stats.TimerTasks)
type MetricsSnapshot struct {
	// Iterations is the number of completed phase cycles.
	Iterations uint64
	// Polls is the number of IOPoller.Poll calls.
	Polls uint64
	// Tasks executed, per queue.
	TimerTasks     uint64
	IOTasks        uint64
	ImmediateTasks uint64
	CloseTasks     uint64
	PriorityTasks  uint64
	Microtasks     uint64
	// MaxDrainDepth is the largest number of tasks executed by a single
	// drain step.
	MaxDrainDepth uint64
}

// Metrics returns a snapshot of the loop's runtime counters. It returns the
// zero snapshot unless the loop was constructed with WithMetrics(true).
func (l *Loop) Metrics() MetricsSnapshot {
	m := l.metrics
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Iterations:     m.iterations.Load(),
		Polls:          m.polls.Load(),
		TimerTasks:     m.tasks[KindTimer].Load(),
		IOTasks:        m.tasks[KindIOCallback].Load(),
		ImmediateTasks: m.tasks[KindImmediate].Load(),
		CloseTasks:     m.tasks[KindClose].Load(),
		PriorityTasks:  m.tasks[KindPriority].Load(),
		Microtasks:     m.tasks[KindMicrotask].Load(),
		MaxDrainDepth:  m.maxDrainDepth.Load(),
	}
}
