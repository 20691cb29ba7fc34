package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	samples atomic.Int32
	length  int
}

func (q *fakeQueue) Backlog() (int, int) {
	q.samples.Add(1)
	return q.length, 10
}

func TestSaturated(t *testing.T) {
	req := require.New(t)
	req.False(Saturated(0, 10, 0.8))
	req.False(Saturated(7, 10, 0.8))
	req.True(Saturated(8, 10, 0.8))
	req.True(Saturated(10, 10, 0.8))
	req.False(Saturated(3, 0, 0.8))
}

func TestBacklogWorker_SamplesUntilCancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a nearly full queue
	queue := &fakeQueue{length: 9}
	worker := NewBacklogWorker(log, 10*time.Millisecond, 0.8, NamedQueue{Name: "loop", Queue: queue})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When a few ticks elapse
	req.Eventually(func() bool { return queue.samples.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	// Then the worker stops cleanly
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("backlog worker did not stop")
	}
}
