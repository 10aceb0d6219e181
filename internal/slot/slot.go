package slot

import "sync/atomic"

// Slot is a coalescing single value container shared between one producer
// and any number of readers. The latest Set wins and readers always observe
// a complete value; there is no history and no backpressure.
type Slot[T any] struct {
	v atomic.Pointer[T]
}

// New returns an empty Slot
func New[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Set overwrites the stored value unconditionally
func (s *Slot[T]) Set(v T) {
	s.v.Store(&v)
}

// Get returns a copy of the stored value and whether a value has ever been set
func (s *Slot[T]) Get() (T, bool) {
	p := s.v.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Pointer returns a pointer to a copy of the stored value, or nil when empty.
// Convenient for building records with optional sub-records.
func (s *Slot[T]) Pointer() *T {
	v, ok := s.Get()
	if !ok {
		return nil
	}
	return &v
}
