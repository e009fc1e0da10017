package arena

// Vector is a dense, append-only, arena-scoped table. It backs the label
// table, the virtual-register table, and similar dense-id collections where
// the id space is assigned sequentially and never reused.
type Vector[T any] struct {
	items []T
}

// Append adds v and returns its dense index.
func (vec *Vector[T]) Append(v T) uint32 {
	idx := uint32(len(vec.items))
	vec.items = append(vec.items, v)
	return idx
}

// At returns a pointer to the element at idx so callers can mutate it
// in place (e.g. LabelEntry.bind), and whether idx was in range.
func (vec *Vector[T]) At(idx uint32) (*T, bool) {
	if int(idx) >= len(vec.items) {
		return nil, false
	}
	return &vec.items[idx], true
}

// Len reports the number of dense entries appended so far.
func (vec *Vector[T]) Len() int { return len(vec.items) }

// Reset truncates the vector back to empty without releasing its backing
// array, so a container reused via CodeContainer.Reset doesn't need to
// re-grow it from scratch on first use.
func (vec *Vector[T]) Reset() { vec.items = vec.items[:0] }

// Free drops the backing array entirely, letting the garbage collector
// reclaim it instead of holding it for reuse. Use this over Reset when the
// caller does not expect to refill the table to a similar size again soon.
func (vec *Vector[T]) Free() { vec.items = nil }

// Cap reports the backing array's capacity (diagnostics/tests only).
func (vec *Vector[T]) Cap() int { return cap(vec.items) }

// Each iterates all entries in dense-id order.
func (vec *Vector[T]) Each(fn func(id uint32, v *T)) {
	for i := range vec.items {
		fn(uint32(i), &vec.items[i])
	}
}
