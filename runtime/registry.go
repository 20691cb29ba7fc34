package runtime

import (
	"context"
	"groovon/contract"
	"groovon/domain/event"
	"log/slog"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[string]struct{}

// Registry routes store change notifications to the watchers of a topic.
type Registry struct {
	mu           sync.RWMutex
	log          *slog.Logger
	sessions     map[string]contract.EventSink // map watcher -> Sink
	topicMembers map[string]Set                // map topic to watchers
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:          log,
		sessions:     make(map[string]contract.EventSink),
		topicMembers: make(map[string]Set),
	}
}

// GetSinksForTopic resolves the watchers of a topic into their sinks.
// Returns nil if nobody watches the topic.
func (r *Registry) GetSinksForTopic(topic string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.topicMembers[topic]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for watcherID := range members {
		if sink, exists := r.sessions[watcherID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a watcher's sink on a topic.
// The topic entry is created on the fly.
func (r *Registry) Subscribe(watcherID, topic string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[watcherID] = sink

	if _, ok := r.topicMembers[topic]; !ok {
		r.topicMembers[topic] = make(Set)
	}
	r.topicMembers[topic][watcherID] = struct{}{}
}

// Unsubscribe removes the watcher and drops the topic once empty,
// so the maps do not grow with every watcher ever opened.
func (r *Registry) Unsubscribe(watcherID, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, watcherID)

	if members, ok := r.topicMembers[topic]; ok {
		delete(members, watcherID)
		if len(members) == 0 {
			delete(r.topicMembers, topic)
		}
	}
}

// Publish hands e to every sink of its topic. Sinks must not block.
func (r *Registry) Publish(ctx context.Context, e event.DomainEvent) {
	for _, sink := range r.GetSinksForTopic(e.Topic()) {
		if err := sink.Consume(ctx, e); err != nil {
			r.log.Warn("Sink rejected event", "topic", e.Topic(), "error", err)
		}
	}
}
