package repositories

import (
	"context"
	"groovon/contract"
	"groovon/domain/event"
	"sync"

	"github.com/google/uuid"
)

var (
	_ contract.EventSink    = (*watcher)(nil)
	_ contract.Subscription = (*watcher)(nil)
)

// watcher re-runs its query every time the topic changes and hands the
// full result to the subscriber. Bursts of changes collapse into one
// re-read, so each delivery reflects a state at least as new as the previous.
type watcher struct {
	id       string
	topic    string
	registry contract.IRegistry
	dirty    chan struct{}
	stop     chan struct{}
	once     sync.Once
}

// watch registers on the topic before the first read so no change
// between the initial snapshot and the registration can be missed.
func watch(ctx context.Context, registry contract.IRegistry, topic string,
	deliver func() error, onError func(error)) (contract.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := &watcher{
		id:       uuid.NewString(),
		topic:    topic,
		registry: registry,
		dirty:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	registry.Subscribe(w.id, topic, w)
	w.dirty <- struct{}{}
	go w.run(deliver, onError)
	return w, nil
}

func (w *watcher) Consume(_ context.Context, _ event.DomainEvent) error {
	select {
	case w.dirty <- struct{}{}:
	default:
		// a re-read is already pending
	}
	return nil
}

func (w *watcher) Unsubscribe() {
	w.once.Do(func() {
		w.registry.Unsubscribe(w.id, w.topic)
		close(w.stop)
	})
}

func (w *watcher) run(deliver func() error, onError func(error)) {
	for {
		select {
		case <-w.stop:
			return
		case <-w.dirty:
			select {
			case <-w.stop:
				return
			default:
			}
			if err := deliver(); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
