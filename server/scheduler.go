package main

import (
	"container/heap"
	"sort"
)

// TimerID identifies a scheduled callback
type TimerID uint64

type timer struct {
	id       TimerID
	owner    EntityID
	deadline float64
	fn       func()
	index    int
}

// timerQueue is a min-heap on (deadline, id)
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].deadline != q[j].deadline {
		return q[i].deadline < q[j].deadline
	}
	return q[i].id < q[j].id
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Scheduler runs deferred effects (disposal, stun windows, speed restores,
// shadow dissolution) against game time. Entries are fired at the start of
// a tick; cancelling by owner makes disposal a table removal.
type Scheduler struct {
	now    float64
	nextID TimerID
	queue  timerQueue
	byID   map[TimerID]*timer
}

// NewScheduler creates an empty scheduler at time zero
func NewScheduler() *Scheduler {
	return &Scheduler{byID: make(map[TimerID]*timer)}
}

// After schedules fn to run delay seconds from the current time.
// owner groups timers for CancelOwner; use 0 for level-wide timers.
func (s *Scheduler) After(owner EntityID, delay float64, fn func()) TimerID {
	if delay < 0 {
		delay = 0
	}
	s.nextID++
	t := &timer{
		id:       s.nextID,
		owner:    owner,
		deadline: s.now + delay,
		fn:       fn,
	}
	heap.Push(&s.queue, t)
	s.byID[t.id] = t
	return t.id
}

// Cancel removes a pending timer. Returns false if it already ran.
func (s *Scheduler) Cancel(id TimerID) bool {
	t, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, t.index)
	delete(s.byID, id)
	return true
}

// CancelOwner removes every pending timer of one owner
func (s *Scheduler) CancelOwner(owner EntityID) int {
	var ids []TimerID
	for id, t := range s.byID {
		if t.owner == owner {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		s.Cancel(id)
	}
	return len(ids)
}

// Advance moves time to now and fires due timers ordered by deadline, then
// by scheduling order. Timers scheduled by a callback for a deadline that is
// already due run in the same call.
func (s *Scheduler) Advance(now float64) int {
	if now > s.now {
		s.now = now
	}
	fired := 0
	for len(s.queue) > 0 && s.queue[0].deadline <= s.now {
		t := heap.Pop(&s.queue).(*timer)
		delete(s.byID, t.id)
		t.fn()
		fired++
	}
	return fired
}

// Now returns the scheduler's current game time
func (s *Scheduler) Now() float64 {
	return s.now
}

// Pending returns the number of timers waiting to fire
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// PendingFor returns the deadlines of one owner's timers, earliest first
func (s *Scheduler) PendingFor(owner EntityID) []float64 {
	var out []float64
	for _, t := range s.queue {
		if t.owner == owner {
			out = append(out, t.deadline)
		}
	}
	sort.Float64s(out)
	return out
}

// Clear drops all timers
func (s *Scheduler) Clear() {
	s.queue = nil
	clear(s.byID)
}
