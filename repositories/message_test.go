package repositories

import (
	"context"
	"groovon/domain/chat"
	"groovon/errors"
	"groovon/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// clock returns increasing instants, one minute apart.
func clock(start time.Time) func() time.Time {
	current := start.Add(-time.Minute)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func Test_Append_Assigns_ID_And_Server_Time(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))
	repository.now = clock(at)

	// Given a message without id nor server time
	msg := chat.Message{Text: "hello", AuthorID: "alice", Group: chat.DefaultGroup}

	// When it is appended
	stored, err := repository.Append(ctx, msg)

	// Then the log fills both fields
	req.NoError(err)
	req.NotEmpty(stored.ID)
	req.Equal(at, stored.ServerTime)
	req.Equal("hello", stored.Text)
}

func Test_Append_Rejects_Unknown_Group(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))

	_, err := repository.Append(context.Background(), chat.Message{Text: "hello", AuthorID: "alice", Group: "nowhere"})

	req.ErrorIs(err, errors.ErrUnknownGroup)
}

func Test_Append_Rejects_Blank_Text(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))

	_, err := repository.Append(context.Background(), chat.Message{Text: " \n ", AuthorID: "alice", Group: chat.DefaultGroup})

	req.Error(err)
}

func Test_GetMessages_Newest_First_And_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))
	repository.now = clock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	// Given three messages appended in order
	for _, text := range []string{"one", "two", "three"} {
		_, err := repository.Append(ctx, chat.Message{Text: text, AuthorID: "alice", Group: chat.DefaultGroup})
		req.NoError(err)
	}

	// When reading with a limit of 2
	messages, err := repository.GetMessages(chat.DefaultGroup, 2)

	// Then only the two most recent come back, newest first
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("three", messages[0].Text)
	req.Equal("two", messages[1].Text)

	all, err := repository.GetMessages(chat.DefaultGroup, 0)
	req.NoError(err)
	req.Len(all, 3)
}

func Test_GetMessages_Isolates_Groups(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))

	_, err := repository.Append(ctx, chat.Message{Text: "in general", AuthorID: "alice", Group: "general"})
	req.NoError(err)
	_, err = repository.Append(ctx, chat.Message{Text: "in tech", AuthorID: "alice", Group: "tech"})
	req.NoError(err)

	messages, err := repository.GetMessages("tech", 10)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("in tech", messages[0].Text)
	req.Equal(chat.GroupID("tech"), messages[0].Group)
}

func Test_WatchGroup_Delivers_Snapshot_On_Append(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))
	snapshots := make(chan []chat.Message, 10)

	// Given a watcher on an empty group
	sub, err := repository.WatchGroup(ctx, "random", 500, func(messages []chat.Message) {
		snapshots <- messages
	}, func(err error) { t.Errorf("unexpected error: %v", err) })
	req.NoError(err)
	defer sub.Unsubscribe()

	// Then the initial snapshot is empty
	select {
	case initial := <-snapshots:
		req.Empty(initial)
	case <-time.After(2 * time.Second):
		req.Fail("no initial snapshot")
	}

	// When a message is appended
	_, err = repository.Append(ctx, chat.Message{Text: "hi", AuthorID: "bob", Group: "random"})
	req.NoError(err)

	// Then a snapshot containing it is delivered
	req.Eventually(func() bool {
		select {
		case messages := <-snapshots:
			return len(messages) == 1 && messages[0].Text == "hi"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_WatchGroup_Unsubscribe_Releases_Topic(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry(slog.Default())
	repository := NewMessageRepository(openDB(t), slog.Default(), registry)

	sub, err := repository.WatchGroup(context.Background(), "tech", 10, func([]chat.Message) {}, nil)
	req.NoError(err)
	req.Len(registry.GetSinksForTopic("messages:tech"), 1)

	sub.Unsubscribe()
	sub.Unsubscribe()

	req.Empty(registry.GetSinksForTopic("messages:tech"))
}

func Test_WatchGroup_Cancelled_Context(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), runtime.NewRegistry(slog.Default()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repository.WatchGroup(ctx, "tech", 10, func([]chat.Message) {}, nil)

	req.ErrorIs(err, context.Canceled)
}
