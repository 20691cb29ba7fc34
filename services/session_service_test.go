package services

import (
	"context"
	"groovon/auth"
	"groovon/domain/chat"
	"groovon/errors"
	"groovon/moderation"
	"groovon/projection"
	"groovon/repositories"
	"groovon/runtime"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var cheapParams = auth.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// device is one client: its own local storage and identity, shared remote stores.
type device struct {
	provider *auth.LocalProvider
	session  *SessionService
}

type backend struct {
	log      *slog.Logger
	messages *repositories.MessageRepository
	users    *repositories.UserRepository
	tokens   *auth.TokenIssuer
}

func newBackend(t *testing.T) *backend {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry(log)
	db := openDB(t)
	return &backend{
		log:      log,
		messages: repositories.NewMessageRepository(db, log, registry),
		users:    repositories.NewUserRepository(db, registry),
		tokens:   auth.NewTokenIssuer("test-secret", time.Hour),
	}
}

func (b *backend) newDevice(t *testing.T) *device {
	local := newLocalStore(t)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', b.log)
	require.NoError(t, err)
	provider := auth.NewLocalProvider(b.log, b.users, local, b.tokens, cheapParams)
	groups := NewGroupService(b.log, local)
	session := NewSessionService(b.log, provider, b.users,
		NewFeedService(b.log, b.messages, runtime.Inline{}, chat.DefaultMessageLimit, time.UTC),
		NewComposerService(b.log, b.messages, provider, groups, moderator, local, time.UTC),
		groups,
		NewProfileService(b.log, b.users, runtime.Inline{}),
		time.UTC)
	session.Start(context.Background())
	t.Cleanup(session.Stop)
	return &device{provider: provider, session: session}
}

func (d *device) post(t *testing.T, text string) chat.Message {
	t.Helper()
	require.NoError(t, d.session.Composer().SetText(text))
	msg, sent, err := d.session.Composer().Submit(context.Background())
	require.NoError(t, err)
	require.True(t, sent)
	return msg
}

func findItem(items []projection.DisplayItem, text string) (projection.DisplayItem, bool) {
	return lo.Find(items, func(item projection.DisplayItem) bool {
		return item.Kind == projection.MessageItem && item.Text == text
	})
}

func TestSession_Own_Messages_Per_Viewer(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	alice, bob := b.newDevice(t), b.newDevice(t)
	_, err := alice.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)
	_, err = bob.provider.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)

	// When alice posts in the shared group
	alice.post(t, "hello from alice")

	// Then it is her own message on her device only
	req.Eventually(func() bool {
		item, ok := findItem(alice.session.Items(), "hello from alice")
		return ok && item.IsOwn && !item.ShowName
	}, 3*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool {
		item, ok := findItem(bob.session.Items(), "hello from alice")
		return ok && !item.IsOwn && item.ShowName && item.SenderName == "Alice"
	}, 3*time.Second, 10*time.Millisecond)

	// When alice renames herself, bob follows
	req.NoError(alice.session.ChangeName(ctx, "Alicia"))
	req.Eventually(func() bool {
		item, ok := findItem(bob.session.Items(), "hello from alice")
		return ok && item.SenderName == "Alicia"
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSession_Group_Switch_Does_Not_Leak(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	alice, bob := b.newDevice(t), b.newDevice(t)
	_, err := alice.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)
	_, err = bob.provider.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)
	alice.post(t, "general chatter")
	req.Eventually(func() bool {
		_, ok := findItem(bob.session.Items(), "general chatter")
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	// When bob moves to tech
	req.NoError(bob.session.Groups().Set("tech"))

	var mu sync.Mutex
	var renders [][]projection.DisplayItem
	bob.session.OnRender(func(items []projection.DisplayItem) {
		mu.Lock()
		renders = append(renders, items)
		mu.Unlock()
	})
	alice.post(t, "more general chatter")
	bob.post(t, "tech talk")

	// Then only tech messages are ever rendered on his device
	req.Eventually(func() bool {
		_, ok := findItem(bob.session.Items(), "tech talk")
		return ok
	}, 3*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for _, items := range append(renders, bob.session.Items()) {
		_, leaked := findItem(items, "general chatter")
		req.False(leaked)
		_, leaked = findItem(items, "more general chatter")
		req.False(leaked)
	}
}

func TestSession_Sign_Out_Tears_Down(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	alice := b.newDevice(t)
	user, err := alice.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "")
	req.NoError(err)
	req.NoError(alice.session.Groups().Set("random"))
	alice.post(t, "the b4dger says hi")
	req.Eventually(func() bool {
		item, ok := findItem(alice.session.Items(), "the ****** says hi")
		return ok && item.SenderName == chat.PlaceholderName(user.ID)
	}, 3*time.Second, 10*time.Millisecond)

	// When signing out
	req.NoError(alice.provider.SignOut(ctx))

	// Then nothing is rendered nor watched and the group is back to default
	req.Empty(alice.session.Items())
	req.Zero(alice.session.Profiles().Refs(user.ID))
	req.Equal(chat.DefaultGroup, alice.session.Groups().Get())
	req.Equal(chat.FeedSnapshot{}, alice.session.Feed().Snapshot())

	// And profile changes need a user
	req.ErrorIs(alice.session.ChangeAvatar(ctx, "Milo"), errors.ErrNotSignedIn)
}

func TestSession_Change_Avatar(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	alice := b.newDevice(t)
	user, err := alice.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)

	req.ErrorIs(alice.session.ChangeAvatar(ctx, "NotASeed"), errors.ErrUnknownAvatar)
	req.ErrorIs(alice.session.ChangeName(ctx, "   "), errors.ErrInvalidDisplayName)

	// When choosing a new avatar before posting anything
	req.NoError(alice.session.ChangeAvatar(ctx, "Milo"))

	// Then the resolver and the stored profile both know it
	req.Equal(chat.AvatarURL("Milo"), alice.session.Profiles().Lookup(user.ID).AvatarURL)
	profile, ok, err := b.users.GetProfile(user.ID)
	req.NoError(err)
	req.True(ok)
	req.Equal(chat.AvatarURL("Milo"), profile.AvatarURL)
	req.Equal("Alice", profile.DisplayName)
}

func TestSession_Switching_Account_Resets_Group(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	device := b.newDevice(t)
	alice, err := device.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)
	req.NoError(device.session.Groups().Set("tech"))
	device.post(t, "alice in tech")

	// When bob registers on the same device without signing out
	bob, err := device.provider.Register(ctx, "bob@example.com", "ComplexPass123!", "Bob")
	req.NoError(err)

	// Then bob starts on the default group and alice is no longer watched
	req.Equal(chat.DefaultGroup, device.session.Groups().Get())
	req.Equal(chat.DefaultGroup, device.session.Feed().Snapshot().Group)
	req.Zero(device.session.Profiles().Refs(alice.ID))
	req.Equal(1, device.session.Profiles().Refs(bob.ID))
	_, leaked := findItem(device.session.Items(), "alice in tech")
	req.False(leaked)
}

func TestSession_Own_Profile_Follows_Other_Device(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newBackend(t)
	laptop, phone := b.newDevice(t), b.newDevice(t)
	user, err := laptop.provider.Register(ctx, "alice@example.com", "ComplexPass123!", "Alice")
	req.NoError(err)
	_, err = phone.provider.SignIn(ctx, "alice@example.com", "ComplexPass123!")
	req.NoError(err)

	// Given no message of alice in the laptop's window
	req.Empty(laptop.session.Feed().Snapshot().Messages)
	req.Equal(1, laptop.session.Profiles().Refs(user.ID))

	// When she renames herself on the phone
	req.NoError(phone.session.ChangeName(ctx, "Alicia"))

	// Then the laptop's own profile converges to the stored value
	req.Eventually(func() bool {
		return laptop.session.Profiles().Lookup(user.ID).DisplayName == "Alicia"
	}, 3*time.Second, 10*time.Millisecond)

	// And the reference is dropped on sign-out
	req.NoError(laptop.provider.SignOut(ctx))
	req.Zero(laptop.session.Profiles().Refs(user.ID))
}
