// Package ring provides a fixed-capacity buffer that overwrites its oldest
// element once full.
package ring

// Buffer keeps the most recent Cap() values appended to it. It is not safe
// for concurrent use; callers serialize access.
type Buffer[T comparable] struct {
	data  []T
	head  int // next write position
	count int // number of valid entries (0..len(data))
}

func New[T comparable](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Append inserts v, overwriting the oldest value when the buffer is full.
func (b *Buffer[T]) Append(v T) {
	b.data[b.head] = v
	b.head = (b.head + 1) % len(b.data)
	if b.count < len(b.data) {
		b.count++
	}
}

// Snapshot returns the held values ordered oldest to newest.
func (b *Buffer[T]) Snapshot() []T {
	result := make([]T, b.count)
	if b.count < len(b.data) {
		copy(result, b.data[:b.count])
		return result
	}
	n := copy(result, b.data[b.head:])
	copy(result[n:], b.data[:b.head])
	return result
}

func (b *Buffer[T]) Contains(v T) bool {
	for i := 0; i < b.count; i++ {
		if b.data[i] == v {
			return true
		}
	}
	return false
}

func (b *Buffer[T]) Len() int {
	return b.count
}

func (b *Buffer[T]) Cap() int {
	return len(b.data)
}
