package runtime

import (
	"groovon/contract"
	"groovon/errors"
	"sync"
	"sync/atomic"
)

var _ contract.Subscription = (*Guard)(nil)

// Guard wraps a store subscription so that cancelling it is immediate:
// once Unsubscribe returns, tasks already queued on the loop are dropped.
type Guard struct {
	cancelled atomic.Bool
	mu        sync.Mutex
	inner     contract.Subscription
}

func NewGuard() *Guard {
	return &Guard{}
}

// Attach binds the underlying subscription. When the guard was cancelled
// in the meantime the subscription is released right away.
func (g *Guard) Attach(sub contract.Subscription) {
	if sub == nil {
		return
	}
	g.mu.Lock()
	if g.cancelled.Load() {
		g.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	g.inner = sub
	g.mu.Unlock()
}

func (g *Guard) Cancelled() bool {
	return g.cancelled.Load()
}

// Post schedules fn on d unless the guard is cancelled, checking again
// when the task actually runs. It fails only when d refused the task.
func (g *Guard) Post(d contract.Dispatcher, fn func()) error {
	if g.cancelled.Load() {
		return nil
	}
	posted := d.Post(func() {
		if g.cancelled.Load() {
			return
		}
		fn()
	})
	if !posted {
		return errors.ErrLoopStopped
	}
	return nil
}

func (g *Guard) Unsubscribe() {
	g.mu.Lock()
	if g.cancelled.Swap(true) {
		g.mu.Unlock()
		return
	}
	inner := g.inner
	g.inner = nil
	g.mu.Unlock()
	if inner != nil {
		inner.Unsubscribe()
	}
}

type funcSubscription struct {
	once sync.Once
	fn   func()
}

// SubscriptionFunc turns fn into a Subscription that runs it at most once.
func SubscriptionFunc(fn func()) contract.Subscription {
	return &funcSubscription{fn: fn}
}

func (s *funcSubscription) Unsubscribe() {
	s.once.Do(s.fn)
}
