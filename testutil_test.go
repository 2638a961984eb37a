package phaseloop

import (
	"time"
)

// testBase is the epoch all ManualClock-driven tests start from.
var testBase = time.Unix(1700000000, 0)

// recorder captures execution order by name.
type recorder struct {
	order []string
}

func (r *recorder) mark(name string) func() {
	return func() { r.order = append(r.order, name) }
}

func (r *recorder) equal(want ...string) bool {
	if len(r.order) != len(want) {
		return false
	}
	for i := range want {
		if r.order[i] != want[i] {
			return false
		}
	}
	return true
}

// fakePoller is a scripted IOPoller. When bound to a ManualClock it advances
// the clock by the wait budget (capped at deadline, if set), simulating the
// passage of time during a blocking poll. Each Poll call delivers the next
// scripted batch of ready callbacks and records the requested timeout.
type fakePoller struct {
	clock       *ManualClock
	deadline    time.Time
	ready       [][]ReadyCallback
	timeouts    []time.Duration
	outstanding int
	onPoll      func(timeout time.Duration)
}

func (p *fakePoller) Poll(timeout time.Duration) []ReadyCallback {
	p.timeouts = append(p.timeouts, timeout)
	if p.onPoll != nil {
		p.onPoll(timeout)
	}
	if p.clock != nil && timeout > 0 {
		d := timeout
		if !p.deadline.IsZero() {
			if remaining := p.deadline.Sub(p.clock.Now()); remaining < d {
				d = remaining
			}
		}
		p.clock.Advance(d)
	}
	if len(p.ready) > 0 {
		batch := p.ready[0]
		p.ready = p.ready[1:]
		return batch
	}
	return nil
}

func (p *fakePoller) OutstandingHandles() int { return p.outstanding }
