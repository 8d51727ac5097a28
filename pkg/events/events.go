// Package events provides typed observer lists. Each event carries a
// fixed payload type; observers are added and removed by the handle
// returned at subscription.
package events

import "sync"

// Handle identifies one subscription for later removal.
type Handle uint64

// Event is an observer list for payloads of type T. The zero value is
// ready to use. Safe for concurrent use.
type Event[T any] struct {
	mu        sync.Mutex
	next      Handle
	observers map[Handle]func(T)
}

// Subscribe registers fn and returns a handle for Unsubscribe.
func (e *Event[T]) Subscribe(fn func(T)) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.observers == nil {
		e.observers = make(map[Handle]func(T))
	}
	e.next++
	e.observers[e.next] = fn
	return e.next
}

// Unsubscribe removes the observer registered under h. Unknown handles
// are ignored.
func (e *Event[T]) Unsubscribe(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.observers, h)
}

// Emit calls every observer with payload. Observers run synchronously on
// the caller's goroutine, in unspecified order.
func (e *Event[T]) Emit(payload T) {
	e.mu.Lock()
	observers := make([]func(T), 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(payload)
	}
}

// Len returns the number of subscribed observers.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}
