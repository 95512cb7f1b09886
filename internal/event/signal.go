package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned by Signal.Subscribe.
// Holding it keeps the handler registered until Cancel is called.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops event delivery to this subscription.
	Pause()

	// Resume restarts event delivery after a pause.
	Resume()

	// Cancel permanently removes the handler from its signal.
	Cancel()
}

// Handler receives values emitted by a Signal.
type Handler[T any] func(T)

// Signal is a typed, synchronous publisher. Emit calls every active handler
// in subscription order on the caller's goroutine and returns after the last
// one. Handlers must not emit on the same signal they are handling.
type Signal[T any] struct {
	subs []*subscription[T]
}

// subscription is the internal implementation of Subscription.
type subscription[T any] struct {
	id      string
	handler Handler[T]
	owner   *Signal[T]
	state   atomic.Int32
}

// Subscribe registers h and returns its handle.
// A nil handler yields a subscription that is already cancelled.
func (s *Signal[T]) Subscribe(h Handler[T]) Subscription {
	sub := &subscription[T]{
		id:      uuid.NewString(),
		handler: h,
		owner:   s,
	}
	if h == nil {
		sub.state.Store(int32(SubscriptionStateCancelled))
		return sub
	}
	sub.state.Store(int32(SubscriptionStateActive))
	s.subs = append(s.subs, sub)
	return sub
}

// Emit delivers v to every active subscriber.
func (s *Signal[T]) Emit(v T) {
	if len(s.subs) == 0 {
		return
	}
	// Handlers may cancel themselves (or others) while we iterate.
	subs := make([]*subscription[T], len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		if sub.IsActive() {
			sub.handler(v)
		}
	}
}

// Len returns the number of registered (active or paused) subscriptions.
func (s *Signal[T]) Len() int {
	return len(s.subs)
}

// Reset cancels every subscription.
func (s *Signal[T]) Reset() {
	for _, sub := range s.subs {
		sub.state.Store(int32(SubscriptionStateCancelled))
	}
	s.subs = nil
}

func (s *Signal[T]) remove(target *subscription[T]) {
	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// ID returns the subscription ID.
func (s *subscription[T]) ID() string {
	return s.id
}

// State returns the current subscription state.
func (s *subscription[T]) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription is active.
func (s *subscription[T]) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// Pause temporarily stops event delivery.
func (s *subscription[T]) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume restarts event delivery.
func (s *subscription[T]) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

// Cancel permanently cancels the subscription.
func (s *subscription[T]) Cancel() {
	if SubscriptionState(s.state.Swap(int32(SubscriptionStateCancelled))) == SubscriptionStateCancelled {
		return
	}
	s.owner.remove(s)
}
