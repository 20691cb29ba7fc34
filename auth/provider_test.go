package auth

import (
	"context"
	"groovon/domain/chat"
	"groovon/domain/event"
	"groovon/errors"
	"groovon/repositories"
	"groovon/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type providerFixture struct {
	provider *LocalProvider
	users    *repositories.UserRepository
	local    *repositories.LocalStore
	tokens   *TokenIssuer
	events   []event.AuthChanged
}

func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	open := func() *badger.DB {
		db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return db
	}
	f := &providerFixture{
		users:  repositories.NewUserRepository(open(), runtime.NewRegistry(log)),
		local:  repositories.NewLocalStore(open()),
		tokens: NewTokenIssuer("test-secret", time.Hour),
	}
	f.provider = NewLocalProvider(log, f.users, f.local, f.tokens, testParams)
	f.provider.OnAuthStateChanged(func(e event.AuthChanged) {
		f.events = append(f.events, e)
	})
	return f
}

func TestLocalProvider_Register_Signs_In(t *testing.T) {
	req := require.New(t)
	f := newProviderFixture(t)

	// When registering without display name
	user, err := f.provider.Register(context.Background(), "alice@example.com", "ComplexPass123!", "")

	// Then the user is signed in with the placeholder profile
	req.NoError(err)
	current, ok := f.provider.CurrentUser()
	req.True(ok)
	req.Equal(user, current)
	req.Equal(chat.PlaceholderName(user.ID), user.DisplayName)
	req.Equal(chat.DefaultAvatarURL(), user.AvatarURL)
	req.Len(f.events, 1)
	req.Equal(event.SignedIn, f.events[0].Kind)

	// And the session token is persisted
	_, ok, err = f.local.Get(SessionKey)
	req.NoError(err)
	req.True(ok)
}

func TestLocalProvider_SignIn_Invalid_Credentials(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newProviderFixture(t)
	_, err := f.provider.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)
	req.NoError(f.provider.SignOut(ctx))

	_, err = f.provider.SignIn(ctx, "bob@example.com", "WrongPass123!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, err = f.provider.SignIn(ctx, "nobody@example.com", "ComplexPass123!")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	user, err := f.provider.SignIn(ctx, "BOB@example.com", "ComplexPass123!")
	req.NoError(err)
	req.Equal("Bob", user.DisplayName)
}

func TestLocalProvider_SignOut_And_Restore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newProviderFixture(t)
	registered, err := f.provider.Register(ctx, "carol@example.com", "ComplexPass123!", "Carol")
	req.NoError(err)

	// Given a new process reading the same local storage
	restarted := NewLocalProvider(f.provider.log, f.users, f.local, f.tokens, testParams)

	// When the session is restored
	user, ok, err := restarted.Restore(ctx)

	// Then the same user is signed in
	req.NoError(err)
	req.True(ok)
	req.Equal(registered.ID, user.ID)

	// When signing out twice
	req.NoError(restarted.SignOut(ctx))
	req.NoError(restarted.SignOut(ctx))

	// Then nothing is left to restore
	_, ok = restarted.CurrentUser()
	req.False(ok)
	_, ok, err = restarted.Restore(ctx)
	req.NoError(err)
	req.False(ok)
}

func TestLocalProvider_Restore_Discards_Invalid_Token(t *testing.T) {
	req := require.New(t)
	f := newProviderFixture(t)
	req.NoError(f.local.Set(SessionKey, "tampered"))

	_, ok, err := f.provider.Restore(context.Background())

	req.NoError(err)
	req.False(ok)
	_, stored, err := f.local.Get(SessionKey)
	req.NoError(err)
	req.False(stored)
	req.Empty(f.events)
}

func TestLocalProvider_Unsubscribed_Listener(t *testing.T) {
	req := require.New(t)
	f := newProviderFixture(t)
	calls := 0
	sub := f.provider.OnAuthStateChanged(func(event.AuthChanged) { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := f.provider.Register(context.Background(), "dan@example.com", "ComplexPass123!", "")

	req.NoError(err)
	req.Zero(calls)
	req.Len(f.events, 1)
}

func TestLocalProvider_Switching_Account_Signs_Previous_Out(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newProviderFixture(t)
	alice, err := f.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)

	// When another account signs in without signing out first
	bob, err := f.provider.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)

	// Then alice's session ends before bob's starts
	req.Len(f.events, 3)
	req.Equal(event.SignedOut, f.events[1].Kind)
	req.Equal(alice.ID, f.events[1].User.ID)
	req.Equal(event.SignedIn, f.events[2].Kind)
	req.Equal(bob.ID, f.events[2].User.ID)
	current, ok := f.provider.CurrentUser()
	req.True(ok)
	req.Equal(bob.ID, current.ID)

	// When the same account signs in again
	_, err = f.provider.SignIn(ctx, "bob@example.com", "ComplexPass123!")
	req.NoError(err)

	// Then no sign-out is emitted
	req.Len(f.events, 4)
	req.Equal(event.SignedIn, f.events[3].Kind)
}
