package focus

// Ring is a fixed-capacity FIFO. Once full, each Push evicts the oldest
// element and hands it back so the caller can release it.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	count int
}

// NewRing panics when capacity < 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("focus: ring capacity must be at least 1")
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v. When the ring was full the displaced oldest element is
// returned with ok set.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	capacity := len(r.items)
	if r.count < capacity {
		r.items[(r.head+r.count)%capacity] = v
		r.count++
		return evicted, false
	}

	evicted = r.items[r.head]
	r.items[r.head] = v
	r.head = (r.head + 1) % capacity
	return evicted, true
}

func (r *Ring[T]) Len() int { return r.count }

func (r *Ring[T]) Cap() int { return len(r.items) }

// At returns the i-th element, 0 being the oldest. It panics when i is out
// of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("focus: ring index out of range")
	}
	return r.items[(r.head+i)%len(r.items)]
}

// Items returns the elements oldest first in a new slice.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.count)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Clear empties the ring, calling release on each element if non-nil.
func (r *Ring[T]) Clear(release func(T)) {
	var zero T
	for i := 0; i < r.count; i++ {
		idx := (r.head + i) % len(r.items)
		if release != nil {
			release(r.items[idx])
		}
		r.items[idx] = zero
	}
	r.head, r.count = 0, 0
}

// Sharpest returns the element with the highest score, its index (0 being
// the oldest) and the score. Ties go to the older element. ok is false for
// an empty ring.
func Sharpest[T any](r *Ring[T], score func(T) float64) (best T, index int, bestScore float64, ok bool) {
	if r.Len() == 0 {
		return best, -1, 0, false
	}

	best, bestScore = r.At(0), score(r.At(0))
	for i := 1; i < r.Len(); i++ {
		v := r.At(i)
		if s := score(v); s > bestScore {
			best, index, bestScore = v, i, s
		}
	}
	return best, index, bestScore, true
}
