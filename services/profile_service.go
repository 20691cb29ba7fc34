package services

import (
	"context"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/runtime"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

type IProfileService interface {
	Acquire(ctx context.Context, userID string)
	Release(userID string)
	Retain(ctx context.Context, userIDs []string)
	Lookup(userID string) chat.Profile
	Prime(profile chat.Profile)
	OnChange(fn func(userID string)) contract.Subscription
	Close()
	Refs(userID string) int
}

type profileEntry struct {
	refs  int
	guard *runtime.Guard
	live  *chat.Profile
}

// ProfileService resolves user ids to display metadata.
// Each id in use holds one live subscription, dropped with its last reference.
type ProfileService struct {
	mu         sync.Mutex
	log        *slog.Logger
	store      contract.ProfileStore
	dispatcher contract.Dispatcher
	entries    map[string]*profileEntry
	primed     map[string]chat.Profile
	retained   []string
	listeners  *observers[string]
}

func NewProfileService(log *slog.Logger, store contract.ProfileStore, dispatcher contract.Dispatcher) *ProfileService {
	return &ProfileService{
		log:        log,
		store:      store,
		dispatcher: dispatcher,
		entries:    make(map[string]*profileEntry),
		primed:     make(map[string]chat.Profile),
		listeners:  newObservers[string](),
	}
}

// Acquire takes a reference on userID, opening its subscription on the first one.
// A failing subscription leaves the placeholder in place.
func (s *ProfileService) Acquire(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	if entry, ok := s.entries[userID]; ok {
		entry.refs++
		s.mu.Unlock()
		return
	}
	guard := runtime.NewGuard()
	s.entries[userID] = &profileEntry{refs: 1, guard: guard}
	s.mu.Unlock()

	sub, err := s.store.WatchProfile(ctx, userID,
		func(profile chat.Profile, exists bool) {
			if err := guard.Post(s.dispatcher, func() { s.update(userID, guard, profile, exists) }); err != nil {
				s.log.Debug("Profile delivery dropped", "user_id", userID, "error", err)
			}
		},
		func(err error) {
			s.log.Warn("Profile subscription failed", "user_id", userID, "error", err)
		})
	if err != nil {
		s.log.Warn("Unable to watch profile", "user_id", userID, "error", err)
		return
	}
	guard.Attach(sub)
}

// Release drops a reference; the subscription ends with the last one.
func (s *ProfileService) Release(userID string) {
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.entries, userID)
	s.mu.Unlock()
	entry.guard.Unsubscribe()
}

// Retain makes the retained set equal to userIDs: new ids are acquired,
// ids no longer visible are released. It holds one reference per id.
func (s *ProfileService) Retain(ctx context.Context, userIDs []string) {
	visible := lo.Uniq(lo.Compact(userIDs))

	s.mu.Lock()
	acquire, release := lo.Difference(visible, s.retained)
	s.retained = visible
	s.mu.Unlock()

	for _, id := range acquire {
		s.Acquire(ctx, id)
	}
	for _, id := range release {
		s.Release(id)
	}
}

// Lookup never returns an empty field: live value, then primed value, then placeholder.
func (s *ProfileService) Lookup(userID string) chat.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := chat.Profile{ID: userID}
	if primed, ok := s.primed[userID]; ok {
		profile = profile.Merge(primed)
	}
	if entry, ok := s.entries[userID]; ok && entry.live != nil {
		profile = profile.Merge(*entry.live)
	}
	return profile.WithDefaults()
}

// Prime seeds a known value, typically the signed-in user's own session profile.
func (s *ProfileService) Prime(profile chat.Profile) {
	if profile.ID == "" {
		return
	}
	s.mu.Lock()
	s.primed[profile.ID] = profile
	s.mu.Unlock()
	s.listeners.notify(profile.ID)
}

func (s *ProfileService) OnChange(fn func(userID string)) contract.Subscription {
	return s.listeners.add(fn)
}

// Close ends every subscription and forgets primed values.
func (s *ProfileService) Close() {
	s.mu.Lock()
	entries := lo.Values(s.entries)
	s.entries = make(map[string]*profileEntry)
	s.primed = make(map[string]chat.Profile)
	s.retained = nil
	s.mu.Unlock()

	for _, entry := range entries {
		entry.guard.Unsubscribe()
	}
}

func (s *ProfileService) Refs(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[userID]; ok {
		return entry.refs
	}
	return 0
}

func (s *ProfileService) update(userID string, guard *runtime.Guard, profile chat.Profile, exists bool) {
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if !ok || entry.guard != guard {
		s.mu.Unlock()
		return
	}
	if exists {
		entry.live = &profile
	} else {
		entry.live = nil
		s.log.Debug("Profile not found, using placeholder", "user_id", userID)
	}
	s.mu.Unlock()
	s.listeners.notify(userID)
}
