package services

import (
	"groovon/contract"
	"groovon/runtime"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// observers is a set of listeners notified outside of the owner's lock.
type observers[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
}

func newObservers[T any]() *observers[T] {
	return &observers[T]{fns: make(map[int]func(T))}
}

func (o *observers[T]) add(fn func(T)) contract.Subscription {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.fns[id] = fn
	o.mu.Unlock()
	return runtime.SubscriptionFunc(func() {
		o.mu.Lock()
		delete(o.fns, id)
		o.mu.Unlock()
	})
}

func (o *observers[T]) notify(v T) {
	o.mu.Lock()
	ids := lo.Keys(o.fns)
	o.mu.Unlock()
	slices.Sort(ids) // registration order
	for _, id := range ids {
		o.mu.Lock()
		fn, ok := o.fns[id]
		o.mu.Unlock()
		if ok {
			fn(v)
		}
	}
}
