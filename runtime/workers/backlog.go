package workers

import (
	"context"
	"log/slog"
	"time"
)

// Queue is anything exposing a bounded task buffer.
type Queue interface {
	Backlog() (length, capacity int)
}

type NamedQueue struct {
	Name  string
	Queue Queue
}

// BacklogWorker periodically samples queue occupancy. Reading the
// length of a buffered channel never blocks, so sampling does not
// slow the queue down. A queue filled past threshold is reported once
// until it drains back under it.
type BacklogWorker struct {
	log       *slog.Logger
	queues    []NamedQueue
	interval  time.Duration
	threshold float64
}

func NewBacklogWorker(log *slog.Logger, interval time.Duration, threshold float64, queues ...NamedQueue) *BacklogWorker {
	return &BacklogWorker{log: log, queues: queues, interval: interval, threshold: threshold}
}

func (w *BacklogWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("Backlog sampling disabled")
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	saturated := make(map[string]bool, len(w.queues))
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping backlog sampling")
			return nil
		case <-ticker.C:
			for _, nq := range w.queues {
				length, capacity := nq.Queue.Backlog()
				full := Saturated(length, capacity, w.threshold)
				switch {
				case full && !saturated[nq.Name]:
					w.log.Warn("Queue backlog is high", "name", nq.Name, "length", length, "capacity", capacity)
				case !full && saturated[nq.Name]:
					w.log.Info("Queue backlog drained", "name", nq.Name, "length", length)
				default:
					w.log.Debug("Queue backlog", "name", nq.Name, "length", length, "capacity", capacity)
				}
				saturated[nq.Name] = full
			}
		}
	}
}

// Saturated reports whether length/capacity reached threshold.
// An unbuffered queue is never saturated.
func Saturated(length, capacity int, threshold float64) bool {
	if capacity <= 0 {
		return false
	}
	return float64(length)/float64(capacity) >= threshold
}
