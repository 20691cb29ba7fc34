package services

import (
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/errors"
	"log/slog"
	"sync"
)

// CurrentGroupKey is the local storage key of the selected group.
const CurrentGroupKey = "groovon.currentGroup"

type IGroupService interface {
	Get() chat.GroupID
	Set(id chat.GroupID) error
	Reset() error
	OnChange(fn func(chat.GroupID)) contract.Subscription
}

// GroupService holds the active group. The selection survives restarts.
type GroupService struct {
	mu        sync.Mutex
	log       *slog.Logger
	local     contract.KeyValueStore
	current   chat.GroupID
	listeners *observers[chat.GroupID]
}

// NewGroupService restores the persisted group when it is still part of the catalog.
func NewGroupService(log *slog.Logger, local contract.KeyValueStore) *GroupService {
	s := &GroupService{
		log:       log,
		local:     local,
		current:   chat.DefaultGroup,
		listeners: newObservers[chat.GroupID](),
	}
	stored, ok, err := local.Get(CurrentGroupKey)
	switch {
	case err != nil:
		log.Warn("Unable to read the selected group", "error", err)
	case ok && chat.IsKnownGroup(chat.GroupID(stored)):
		s.current = chat.GroupID(stored)
	case ok:
		log.Debug("Ignoring unknown persisted group", "group", stored)
	}
	return s
}

func (s *GroupService) Get() chat.GroupID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set switches to a known group and persists the choice.
// The switch is applied even when persisting fails.
func (s *GroupService) Set(id chat.GroupID) error {
	if !chat.IsKnownGroup(id) {
		return fmt.Errorf("%w: %q", errors.ErrUnknownGroup, id)
	}
	s.mu.Lock()
	changed := s.current != id
	s.current = id
	err := s.local.Set(CurrentGroupKey, string(id))
	s.mu.Unlock()

	if changed {
		s.log.Debug("Group selected", "group", id)
		s.listeners.notify(id)
	}
	if err != nil {
		return fmt.Errorf("persist group: %w", err)
	}
	return nil
}

// Reset goes back to the default group and forgets the persisted choice.
func (s *GroupService) Reset() error {
	s.mu.Lock()
	changed := s.current != chat.DefaultGroup
	s.current = chat.DefaultGroup
	err := s.local.Remove(CurrentGroupKey)
	s.mu.Unlock()

	if changed {
		s.listeners.notify(chat.DefaultGroup)
	}
	return err
}

func (s *GroupService) OnChange(fn func(chat.GroupID)) contract.Subscription {
	return s.listeners.add(fn)
}
