package repositories

import (
	"context"
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/domain/event"
	"groovon/errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.MessageLog = (*MessageRepository)(nil)

type IMessageRepository interface {
	contract.MessageLog
	GetMessages(group chat.GroupID, limit int) ([]chat.Message, error)
}

// MessageRepository is the shared append-only message log on BadgerDB.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	registry contract.IRegistry
	now      func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, registry contract.IRegistry) *MessageRepository {
	return &MessageRepository{db: db, log: log, registry: registry, now: time.Now}
}

func groupPrefix(group chat.GroupID) string {
	return fmt.Sprintf("msg:%s:", group)
}

// messageKey is formatted as "msg:{group}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero padding keeps lexicographical order chronological;
//  2. the uuid separates two messages written in the same nanosecond.
func messageKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", groupPrefix(m.Group), m.ServerTime.UnixNano(), m.ID))
}

// Append assigns the log id and server time, then notifies the group watchers.
func (m *MessageRepository) Append(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	if !chat.IsKnownGroup(msg.Group) {
		return chat.Message{}, fmt.Errorf("%w: %q", errors.ErrUnknownGroup, msg.Group)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return chat.Message{}, fmt.Errorf("empty message text")
	}

	msg.ID = uuid.NewString()
	msg.ServerTime = m.now().UTC()
	record, err := encodeMessage(msg)
	if err != nil {
		return chat.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), record)
	})
	if err != nil {
		return chat.Message{}, err
	}

	m.registry.Publish(ctx, event.MessageAppended{ID: msg.ID, Group: msg.Group, At: msg.ServerTime})
	return msg, nil
}

// GetMessages returns the most recent messages of a group, newest first,
// using a reverse prefix scan. A limit <= 0 reads the whole group.
func (m *MessageRepository) GetMessages(group chat.GroupID, limit int) ([]chat.Message, error) {
	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(groupPrefix(group))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key of the group, then walk back.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit), "group", group)
				break
			}
			item := it.Item()
			err := item.Value(func(value []byte) error {
				msg, err := decodeMessage(value)
				if err != nil {
					return fmt.Errorf("key %s: %w", item.Key(), err)
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// WatchGroup re-reads the bounded window of group on every append to it.
func (m *MessageRepository) WatchGroup(ctx context.Context, group chat.GroupID, limit int,
	onSnapshot func([]chat.Message), onError func(error)) (contract.Subscription, error) {
	return watch(ctx, m.registry, event.GroupTopic(group), func() error {
		messages, err := m.GetMessages(group, limit)
		if err != nil {
			return err
		}
		onSnapshot(messages)
		return nil
	}, onError)
}
