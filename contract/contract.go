//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"groovon/domain/chat"
	"groovon/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Dispatcher serializes callbacks onto one logical event loop.
// Post returns false when the task has been dropped.
type Dispatcher interface {
	Post(task func()) bool
}

// Subscription is a live handle. Unsubscribe is synchronous and idempotent.
type Subscription interface {
	Unsubscribe()
}

// EventSink consumes change notifications routed by the registry.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	GetSinksForTopic(topic string) []EventSink
	Subscribe(watcherID, topic string, sink EventSink)
	Unsubscribe(watcherID, topic string)
	Publish(ctx context.Context, e event.DomainEvent)
}

// MessageLog is the shared append-only message collection.
// The ctx of WatchGroup only bounds establishing the subscription;
// its lifetime is bound to the returned Subscription.
type MessageLog interface {
	// WatchGroup delivers full snapshots of the most recent limit messages
	// of group, newest first, on every change.
	WatchGroup(ctx context.Context, group chat.GroupID, limit int,
		onSnapshot func([]chat.Message), onError func(error)) (Subscription, error)
	// Append stores msg and returns it with the log-assigned ID and ServerTime.
	Append(ctx context.Context, msg chat.Message) (chat.Message, error)
}

// ProfileStore is the "users" collection.
type ProfileStore interface {
	// WatchProfile delivers the user document on every change;
	// exists is false while the document is missing.
	WatchProfile(ctx context.Context, userID string,
		onProfile func(profile chat.Profile, exists bool), onError func(error)) (Subscription, error)
	MergeProfile(ctx context.Context, userID string, patch chat.ProfilePatch) error
}

// KeyValueStore is the durable device-local storage.
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type IdentityProvider interface {
	CurrentUser() (chat.User, bool)
	SignOut(ctx context.Context) error
	OnAuthStateChanged(fn func(event.AuthChanged)) Subscription
}

// ContentFilter masks unwanted words and reports the ones it found.
// It never rejects a text.
type ContentFilter interface {
	Censor(text string) (string, []string)
}
