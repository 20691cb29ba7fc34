package services

import (
	"context"
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/domain/event"
	"groovon/errors"
	"groovon/projection"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

const maxDisplayNameLength = 32

// SessionService ties the chat components to the identity of the user:
// sign-in starts the feed, sign-out tears everything down, and every feed
// or profile delivery produces a new rendering.
type SessionService struct {
	mu        sync.Mutex
	renderMu  sync.Mutex
	log       *slog.Logger
	identity  contract.IdentityProvider
	store     contract.ProfileStore
	feed      *FeedService
	composer  *ComposerService
	groups    *GroupService
	profiles  *ProfileService
	loc       *time.Location
	ctx       context.Context
	userID    string
	watched   string
	items     []projection.DisplayItem
	subs      []contract.Subscription
	listeners *observers[[]projection.DisplayItem]
}

func NewSessionService(log *slog.Logger, identity contract.IdentityProvider, store contract.ProfileStore,
	feed *FeedService, composer *ComposerService, groups *GroupService, profiles *ProfileService,
	loc *time.Location) *SessionService {
	return &SessionService{
		log:       log,
		identity:  identity,
		store:     store,
		feed:      feed,
		composer:  composer,
		groups:    groups,
		profiles:  profiles,
		loc:       loc,
		ctx:       context.Background(),
		listeners: newObservers[[]projection.DisplayItem](),
	}
}

func (s *SessionService) Feed() *FeedService         { return s.feed }
func (s *SessionService) Composer() *ComposerService { return s.composer }
func (s *SessionService) Groups() *GroupService      { return s.groups }
func (s *SessionService) Profiles() *ProfileService  { return s.profiles }

// Start wires the listeners. A user already signed in is picked up right away.
func (s *SessionService) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	subs := []contract.Subscription{
		s.identity.OnAuthStateChanged(s.onAuth),
		s.groups.OnChange(s.onGroup),
		s.feed.OnSnapshot(s.onSnapshot),
		s.profiles.OnChange(func(string) { s.render() }),
	}
	s.mu.Lock()
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()

	if user, ok := s.identity.CurrentUser(); ok {
		s.signedIn(user)
	}
}

// Stop releases every subscription held by the session.
func (s *SessionService) Stop() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	s.mu.Lock()
	s.watched = ""
	s.mu.Unlock()
	s.feed.Unsubscribe()
	s.profiles.Close()
}

func (s *SessionService) Items() []projection.DisplayItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]projection.DisplayItem(nil), s.items...)
}

// OnRender registers fn for every new rendering. fn must not call back into the session.
func (s *SessionService) OnRender(fn func([]projection.DisplayItem)) contract.Subscription {
	return s.listeners.add(fn)
}

// ChangeAvatar merges the avatar of seed into the signed-in user's profile.
func (s *SessionService) ChangeAvatar(ctx context.Context, seed string) error {
	if !lo.Contains(chat.AvatarSeeds, seed) {
		return fmt.Errorf("%w: %q", errors.ErrUnknownAvatar, seed)
	}
	avatar := chat.AvatarURL(seed)
	return s.updateProfile(ctx, chat.ProfilePatch{AvatarURL: &avatar})
}

// ChangeName merges a new display name into the signed-in user's profile.
func (s *SessionService) ChangeName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
		return errors.ErrInvalidDisplayName
	}
	return s.updateProfile(ctx, chat.ProfilePatch{DisplayName: &name})
}

func (s *SessionService) updateProfile(ctx context.Context, patch chat.ProfilePatch) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		return errors.ErrNotSignedIn
	}
	if err := s.store.MergeProfile(ctx, user.ID, patch); err != nil {
		return err
	}
	// The primed value covers users with no visible message yet.
	s.profiles.Prime(patch.Apply(s.profiles.Lookup(user.ID)))
	return nil
}

func (s *SessionService) onAuth(e event.AuthChanged) {
	switch e.Kind {
	case event.SignedIn:
		s.signedIn(e.User)
	case event.SignedOut:
		s.signedOut()
	}
}

func (s *SessionService) signedIn(user chat.User) {
	s.mu.Lock()
	s.userID = user.ID
	ctx := s.ctx
	previous := s.watched
	s.watched = user.ID
	s.mu.Unlock()

	s.log.Debug("Starting session", "user_id", user.ID)
	s.profiles.Prime(user.Profile())
	// The own profile stays live even with none of the user's messages in the window.
	if previous != user.ID {
		s.profiles.Acquire(ctx, user.ID)
		if previous != "" {
			s.profiles.Release(previous)
		}
	}
	if err := s.feed.Subscribe(ctx, s.groups.Get()); err != nil {
		s.log.Debug("Feed subscription not established", "error", err)
	}
}

func (s *SessionService) signedOut() {
	s.mu.Lock()
	s.userID = ""
	s.watched = ""
	s.mu.Unlock()

	s.log.Debug("Ending session")
	s.feed.Unsubscribe()
	s.profiles.Close()
	if err := s.groups.Reset(); err != nil {
		s.log.Warn("Unable to reset the selected group", "error", err)
	}
	s.render()
}

func (s *SessionService) onGroup(group chat.GroupID) {
	s.mu.Lock()
	signedIn := s.userID != ""
	ctx := s.ctx
	s.mu.Unlock()
	if !signedIn {
		return
	}
	if err := s.feed.Subscribe(ctx, group); err != nil {
		s.log.Debug("Feed subscription not established", "group", group, "error", err)
	}
}

func (s *SessionService) onSnapshot(snapshot chat.FeedSnapshot) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.profiles.Retain(ctx, snapshot.AuthorIDs())
	s.render()
}

// render always reads the latest feed snapshot, so renderings never go back in time.
func (s *SessionService) render() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	var items []projection.DisplayItem
	if userID != "" {
		items = projection.Render(s.feed.Snapshot().Days, s.profiles, userID, s.loc)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.listeners.notify(items)
}
