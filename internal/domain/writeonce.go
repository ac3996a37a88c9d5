package domain

import "sync/atomic"

// WriteOnce is a set-if-absent cell. The first Set wins; later calls are ignored.
// The zero value is empty and ready to use.
type WriteOnce[T any] struct {
	p atomic.Pointer[T]
}

// Set stores v if the cell is empty and reports whether it did.
func (w *WriteOnce[T]) Set(v T) bool {
	return w.p.CompareAndSwap(nil, &v)
}

// Get returns the stored value and whether one has been set.
func (w *WriteOnce[T]) Get() (T, bool) {
	if p := w.p.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// IsSet reports whether a value has been stored.
func (w *WriteOnce[T]) IsSet() bool {
	return w.p.Load() != nil
}
