// Package signal implements the handler lists behind every notification in
// the tray model. Handlers run synchronously on the emitting goroutine, which
// is always the event loop, so a Signal is not safe for concurrent use.
package signal

import "slices"

// HandlerID identifies a connected handler.
type HandlerID uint64

type handler[T any] struct {
	id HandlerID
	fn func(T)
}

// Signal is a list of handlers receiving values of type T.
type Signal[T any] struct {
	next     HandlerID
	handlers []handler[T]
}

// Connect adds fn to the signal and returns its identifier.
func (s *Signal[T]) Connect(fn func(T)) HandlerID {
	s.next++
	s.handlers = append(s.handlers, handler[T]{id: s.next, fn: fn})
	return s.next
}

// Subscribe is like Connect but returns a function that disconnects fn.
// Calling the returned function more than once is a no-op.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	id := s.Connect(fn)
	return func() { s.Disconnect(id) }
}

// Disconnect removes the handler with the given id and reports whether it
// was connected.
func (s *Signal[T]) Disconnect(id HandlerID) bool {
	idx := slices.IndexFunc(s.handlers, func(h handler[T]) bool { return h.id == id })
	if idx < 0 {
		return false
	}

	s.handlers = slices.Delete(s.handlers, idx, idx+1)
	return true
}

// Emit calls every connected handler with v, in connection order.
//
// Handlers disconnected by an earlier handler during the same emission are
// skipped. Handlers connected during the emission are not called.
func (s *Signal[T]) Emit(v T) {
	snapshot := slices.Clone(s.handlers)

	for _, h := range snapshot {
		if !s.connected(h.id) {
			continue
		}

		h.fn(v)
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}

// Clear disconnects every handler.
func (s *Signal[T]) Clear() {
	s.handlers = nil
}

func (s *Signal[T]) connected(id HandlerID) bool {
	return slices.ContainsFunc(s.handlers, func(h handler[T]) bool { return h.id == id })
}
