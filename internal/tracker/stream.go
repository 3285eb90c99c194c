package tracker

import "sync"

// Stream holds the latest value of one piece of state and replays it to new
// subscribers before any later change. All subscribers see the same values in
// the same order.
//
// Callbacks run synchronously on the goroutine that changed the state, while
// the tracker is locked: they must not call back into the Tracker or
// Subscribe. Values are shared between subscribers and must not be modified.
type Stream[T any] struct {
	emit   sync.Mutex // serializes deliveries
	mu     sync.Mutex
	latest T
	subs   []subscriber[T]
	nextID int
	closed bool
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func newStream[T any](initial T) *Stream[T] {
	return &Stream[T]{latest: initial}
}

// Value returns the latest value.
func (s *Stream[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Subscribe delivers the latest value to fn immediately and every later
// value until the returned function is called or the stream is closed.
func (s *Stream[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	latest := s.latest
	if s.closed {
		s.mu.Unlock()
		fn(latest)
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	fn(latest)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Stream[T]) publish(v T) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.latest = v
	subs := append([]subscriber[T](nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

func (s *Stream[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}

// Subscribers returns the number of live subscriptions.
func (s *Stream[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
