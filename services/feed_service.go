package services

import (
	"context"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/runtime"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type IFeedService interface {
	Subscribe(ctx context.Context, group chat.GroupID) error
	Unsubscribe()
	Snapshot() chat.FeedSnapshot
	OnSnapshot(fn func(chat.FeedSnapshot)) contract.Subscription
}

// FeedService keeps one live subscription to the recent window of a group
// and exposes it grouped by calendar day.
type FeedService struct {
	notifyMu   sync.Mutex // orders state changes with their notification
	mu         sync.Mutex
	log        *slog.Logger
	messages   contract.MessageLog
	dispatcher contract.Dispatcher
	limit      int
	loc        *time.Location
	generation uint64
	guard      *runtime.Guard
	snapshot   chat.FeedSnapshot
	listeners  *observers[chat.FeedSnapshot]
}

func NewFeedService(log *slog.Logger, messages contract.MessageLog, dispatcher contract.Dispatcher,
	limit int, loc *time.Location) *FeedService {
	if limit <= 0 {
		limit = chat.DefaultMessageLimit
	}
	return &FeedService{
		log:        log,
		messages:   messages,
		dispatcher: dispatcher,
		limit:      limit,
		loc:        loc,
		listeners:  newObservers[chat.FeedSnapshot](),
	}
}

// Subscribe replaces the current subscription with one scoped to group.
// The previous subscription is torn down first and anything it still had
// queued is discarded. Switching group starts from an empty snapshot.
// An unknown group yields an empty settled snapshot without subscribing.
func (f *FeedService) Subscribe(ctx context.Context, group chat.GroupID) error {
	f.notifyMu.Lock()
	f.mu.Lock()
	f.generation++
	gen := f.generation
	if f.guard != nil {
		f.guard.Unsubscribe()
		f.guard = nil
	}
	changed := f.snapshot.Group != group
	if !chat.IsKnownGroup(group) {
		f.snapshot = chat.FeedSnapshot{Group: group, Settled: true}
		snapshot := f.snapshot
		f.mu.Unlock()
		f.log.Debug("Not subscribing to unknown group", "group", group)
		f.listeners.notify(snapshot)
		f.notifyMu.Unlock()
		return nil
	}
	if changed {
		f.snapshot = chat.FeedSnapshot{Group: group}
	}
	guard := runtime.NewGuard()
	f.guard = guard
	snapshot := f.snapshot
	f.mu.Unlock()

	if changed {
		f.listeners.notify(snapshot)
	}
	f.notifyMu.Unlock()

	sub, err := f.messages.WatchGroup(ctx, group, f.limit,
		func(messages []chat.Message) {
			if err := guard.Post(f.dispatcher, func() { f.deliver(gen, group, messages) }); err != nil {
				f.log.Debug("Feed delivery dropped", "group", group, "error", err)
			}
		},
		func(err error) {
			_ = guard.Post(f.dispatcher, func() { f.fail(gen, err) })
		})
	if err != nil {
		f.fail(gen, err)
		return err
	}
	guard.Attach(sub)
	return nil
}

// Unsubscribe stops the live subscription and clears the snapshot.
func (f *FeedService) Unsubscribe() {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	f.mu.Lock()
	f.generation++
	if f.guard != nil {
		f.guard.Unsubscribe()
		f.guard = nil
	}
	f.snapshot = chat.FeedSnapshot{}
	f.mu.Unlock()
	f.listeners.notify(chat.FeedSnapshot{})
}

func (f *FeedService) Snapshot() chat.FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

// OnSnapshot registers fn for every new snapshot, in order.
// fn must not call Subscribe or Unsubscribe.
func (f *FeedService) OnSnapshot(fn func(chat.FeedSnapshot)) contract.Subscription {
	return f.listeners.add(fn)
}

func (f *FeedService) deliver(gen uint64, group chat.GroupID, messages []chat.Message) {
	// Records of another group never reach the view, whatever the store sends.
	window := lo.Filter(messages, func(m chat.Message, _ int) bool { return m.Group == group })
	if len(window) > f.limit {
		window = window[:f.limit]
	}
	days := chat.GroupByDay(window, f.loc)

	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.snapshot = chat.FeedSnapshot{
		Group:    group,
		Messages: window,
		Days:     days,
		Settled:  true,
	}
	snapshot := f.snapshot
	f.mu.Unlock()

	f.listeners.notify(snapshot)
}

// fail keeps the last known snapshot of the group and flags it as stale.
// Reconnecting is up to the message log.
func (f *FeedService) fail(gen uint64, err error) {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.snapshot.Stale = true
	snapshot := f.snapshot
	f.mu.Unlock()

	f.log.Warn("Message subscription failed", "group", snapshot.Group, "error", err)
	f.listeners.notify(snapshot)
}
