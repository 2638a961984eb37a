// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package phaseloop

import (
	"container/heap"
	"time"
)

// timerTask is a scheduled delayed or repeating task.
type timerTask struct {
	fn        func()
	when      time.Time     // absolute due time
	interval  time.Duration // 0 = one-shot
	id        uint64
	seq       uint64 // insertion order, FIFO tie-break
	cancelled bool
}

// timerHeap is a min-heap of timer tasks ordered by due time, with the
// insertion sequence as tie-break so equal deadlines fire FIFO.
type timerHeap []*timerTask

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timerTask))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// timerQueue owns the timer heap plus an id index for O(1) cancellation.
// Cancellation is lazy: the heap entry keeps its slot and is discarded when
// it surfaces at the top.
type timerQueue struct {
	byID map[uint64]*timerTask
	heap timerHeap
	seq  uint64
}

func newTimerQueue() timerQueue {
	return timerQueue{byID: make(map[uint64]*timerTask)}
}

// push registers and enqueues a new timer task.
func (q *timerQueue) push(t *timerTask) {
	q.seq++
	t.seq = q.seq
	q.byID[t.id] = t
	heap.Push(&q.heap, t)
}

// rearm re-enqueues a repeating task that was popped by popDue. The task
// keeps its id (and byID entry) but takes a fresh sequence number.
func (q *timerQueue) rearm(t *timerTask, when time.Time) {
	q.seq++
	t.seq = q.seq
	t.when = when
	heap.Push(&q.heap, t)
}

// popDue pops the earliest-due live task with when <= now. Cancelled tasks
// surfacing at the top are discarded without being returned. One-shot tasks
// leave the id index on pop; repeating tasks stay registered so their handle
// remains valid across firings.
func (q *timerQueue) popDue(now time.Time) (*timerTask, bool) {
	for len(q.heap) > 0 {
		top := q.heap[0]
		if top.cancelled {
			heap.Pop(&q.heap)
			continue
		}
		if top.when.After(now) {
			return nil, false
		}
		heap.Pop(&q.heap)
		if top.interval <= 0 {
			delete(q.byID, top.id)
		}
		return top, true
	}
	return nil, false
}

// untilNext returns the time until the earliest live deadline, discarding
// any cancelled tasks it encounters at the top. Reports false when no live
// timers remain.
func (q *timerQueue) untilNext(now time.Time) (time.Duration, bool) {
	for len(q.heap) > 0 {
		top := q.heap[0]
		if top.cancelled {
			heap.Pop(&q.heap)
			continue
		}
		return top.when.Sub(now), true
	}
	return 0, false
}

// cancel marks the identified task cancelled and drops it from the id
// index. Reports false for unknown (stale, fired, already cancelled) ids.
func (q *timerQueue) cancel(id uint64) bool {
	t, ok := q.byID[id]
	if !ok {
		return false
	}
	t.cancelled = true
	delete(q.byID, id)
	return true
}

// len is the number of live (non-cancelled) timers.
func (q *timerQueue) len() int {
	return len(q.byID)
}
