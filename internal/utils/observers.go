package utils

import "sync"

// Observers is a list of callbacks. Notify iterates over a snapshot taken
// under the lock, so callbacks may add or remove observers (including
// themselves) while being notified.
type Observers[T any] struct {
	mu     sync.Mutex
	nextID uint64
	fns    []entry[T]
}

type entry[T any] struct {
	id uint64
	fn func(T)
}

// Add registers fn and returns a function that removes it. Calling the
// returned function more than once is a no-op.
func (o *Observers[T]) Add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.fns = append(o.fns, entry[T]{id: id, fn: fn})
	return func() { o.remove(id) }
}

func (o *Observers[T]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.fns {
		if e.id == id {
			o.fns = append(o.fns[:i:i], o.fns[i+1:]...)
			return
		}
	}
}

// Notify calls every registered observer with v.
func (o *Observers[T]) Notify(v T) {
	o.mu.Lock()
	snapshot := make([]entry[T], len(o.fns))
	copy(snapshot, o.fns)
	o.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of registered observers.
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fns)
}
