// Package runtime hosts the single event loop every live callback runs on,
// the topic registry feeding store watchers, and the subscription guards.
package runtime

import (
	"context"
	"groovon/contract"
	"log/slog"
	"sync"
)

var (
	_ contract.Worker     = (*Loop)(nil)
	_ contract.Dispatcher = (*Loop)(nil)
	_ contract.Dispatcher = Inline{}
)

// Loop executes posted tasks one at a time, in posting order.
// It is meant to run under the supervisor: a panicking task crashes Run,
// the supervisor restarts it and the queued tasks are kept.
type Loop struct {
	log   *slog.Logger
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(log *slog.Logger, bufferSize int) *Loop {
	return &Loop{
		log:   log,
		tasks: make(chan func(), bufferSize),
		done:  make(chan struct{}),
	}
}

// Post enqueues task. It blocks while the buffer is full and
// returns false once the loop has been shut down.
func (l *Loop) Post(task func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- task:
		return true
	case <-l.done:
		return false
	}
}

// Backlog reports how many tasks are waiting and the buffer size.
func (l *Loop) Backlog() (int, int) {
	return len(l.tasks), cap(l.tasks)
}

func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.once.Do(func() { close(l.done) })
			l.log.Debug("Stopping event loop", "pending", len(l.tasks))
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}

// Inline runs tasks on the caller's goroutine.
type Inline struct{}

func (Inline) Post(task func()) bool {
	task()
	return true
}
