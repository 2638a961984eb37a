package phaseloop

// fifoEntry is a queued callback plus the id its Handle carries.
type fifoEntry struct {
	fn func()
	id uint64
}

// fifoQueue is the FIFO used for every non-timer queue: pending I/O
// callbacks, immediates, close callbacks, priority tasks, and microtasks.
//
// It is a slice with a moving head rather than a ring: queue depths are
// typically small, and the head space is reclaimed once it dominates the
// backing array.
type fifoQueue struct {
	entries []fifoEntry
	head    int
}

func (q *fifoQueue) push(id uint64, fn func()) {
	q.entries = append(q.entries, fifoEntry{fn: fn, id: id})
}

func (q *fifoQueue) pop() (fifoEntry, bool) {
	if q.head >= len(q.entries) {
		return fifoEntry{}, false
	}
	e := q.entries[q.head]
	q.entries[q.head] = fifoEntry{} // release for GC
	q.head++
	if q.head == len(q.entries) {
		q.entries = q.entries[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.entries) {
		n := copy(q.entries, q.entries[q.head:])
		for i := n; i < len(q.entries); i++ {
			q.entries[i] = fifoEntry{}
		}
		q.entries = q.entries[:n]
		q.head = 0
	}
	return e, true
}

func (q *fifoQueue) len() int {
	return len(q.entries) - q.head
}

// tailID returns the id of the most recently queued entry. Ids come from one
// monotonic counter, so the tail id at a given instant is an upper bound on
// everything queued so far.
func (q *fifoQueue) tailID() (uint64, bool) {
	if q.head >= len(q.entries) {
		return 0, false
	}
	return q.entries[len(q.entries)-1].id, true
}

// popThrough pops the front entry only if its id is at or below limit.
func (q *fifoQueue) popThrough(limit uint64) (fifoEntry, bool) {
	if q.head >= len(q.entries) || q.entries[q.head].id > limit {
		return fifoEntry{}, false
	}
	return q.pop()
}

// remove deletes the entry with the given id, preserving FIFO order of the
// remainder. O(n) scan; acceptable at typical queue depths.
func (q *fifoQueue) remove(id uint64) bool {
	for i := q.head; i < len(q.entries); i++ {
		if q.entries[i].id == id {
			copy(q.entries[i:], q.entries[i+1:])
			q.entries[len(q.entries)-1] = fifoEntry{}
			q.entries = q.entries[:len(q.entries)-1]
			return true
		}
	}
	return false
}
