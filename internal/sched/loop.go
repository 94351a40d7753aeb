package sched

import (
	"context"
	"time"
)

// Loop drives a Queue in real time on a single goroutine. Work from other
// goroutines reaches the queue's owner only through Post and Do.
type Loop struct {
	q     *Queue
	posts chan func()
	now   func() time.Time
}

// NewLoop wraps q. The queue must not be touched outside the loop once Run
// has started.
func NewLoop(q *Queue) *Loop {
	return &Loop{q: q, posts: make(chan func(), 64), now: time.Now}
}

// Queue returns the queue owned by the loop.
func (l *Loop) Queue() *Queue { return l.q }

// Post enqueues fn to run on the loop. It blocks only if the post buffer is full.
func (l *Loop) Post(fn func()) {
	l.posts <- fn
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.posts <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains due tasks and posted work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.q.Advance(l.now())

		wait := time.Hour
		if next, ok := l.q.Next(); ok {
			wait = next.Sub(l.now())
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			l.q.Advance(l.now())
			fn()
		case <-timer.C:
		}
	}
}
