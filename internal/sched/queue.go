// Package sched is the engine's single logical thread: a priority queue of
// one-shot tasks keyed by wall-clock time, drained in order by one actor.
package sched

import (
	"container/heap"
	"time"
)

// Task runs on the owning actor when its time comes. now is the task's due
// time, or later if the task was overdue.
type Task func(now time.Time)

// Token identifies a scheduled task for cancellation. The zero Token is
// never issued.
type Token uint64

type item struct {
	at   time.Time
	seq  uint64
	tok  Token
	task Task
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*item)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is not safe for concurrent use; it belongs to one actor (see Loop).
// Tasks due at the same instant run in the order they were scheduled.
type Queue struct {
	now     time.Time
	h       taskHeap
	seq     uint64
	live    map[Token]struct{}
	running bool
}

// NewQueue starts the queue's notion of time at start.
func NewQueue(start time.Time) *Queue {
	return &Queue{now: start, live: make(map[Token]struct{})}
}

// Now returns the time the queue was last advanced to.
func (q *Queue) Now() time.Time { return q.now }

// At schedules task at t. Times in the past run on the next Advance.
func (q *Queue) At(t time.Time, task Task) Token {
	q.seq++
	tok := Token(q.seq)
	heap.Push(&q.h, &item{at: t, seq: q.seq, tok: tok, task: task})
	q.live[tok] = struct{}{}
	return tok
}

// After schedules task d after the current time.
func (q *Queue) After(d time.Duration, task Task) Token {
	return q.At(q.now.Add(d), task)
}

// Cancel drops a pending task. It reports whether the task was still pending.
func (q *Queue) Cancel(tok Token) bool {
	if _, ok := q.live[tok]; !ok {
		return false
	}
	delete(q.live, tok)
	return true
}

// Pending reports whether tok has neither run nor been cancelled.
func (q *Queue) Pending(tok Token) bool {
	_, ok := q.live[tok]
	return ok
}

// Len returns the number of live tasks.
func (q *Queue) Len() int { return len(q.live) }

// Next returns the due time of the earliest live task.
func (q *Queue) Next() (time.Time, bool) {
	q.dropCancelled()
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0].at, true
}

// Advance runs every task due at or before t in time order, including tasks
// scheduled by other tasks during the drain, then moves time to t. While a
// task runs, Now is its due time (or the current time if it was overdue). It
// returns the number of tasks run. Time never moves backwards.
func (q *Queue) Advance(t time.Time) int {
	if q.running {
		return 0
	}
	q.running = true
	defer func() { q.running = false }()

	ran := 0
	for {
		q.dropCancelled()
		if len(q.h) == 0 || q.h[0].at.After(t) {
			break
		}
		it := heap.Pop(&q.h).(*item)
		delete(q.live, it.tok)
		if it.at.After(q.now) {
			q.now = it.at
		}
		it.task(q.now)
		ran++
	}
	if t.After(q.now) {
		q.now = t
	}
	return ran
}

// AdvanceBy is Advance(Now()+d).
func (q *Queue) AdvanceBy(d time.Duration) int {
	return q.Advance(q.now.Add(d))
}

func (q *Queue) dropCancelled() {
	for len(q.h) > 0 {
		if _, ok := q.live[q.h[0].tok]; ok {
			return
		}
		heap.Pop(&q.h)
	}
}
