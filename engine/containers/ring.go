package containers

// Ring is a fixed-size rotating set of elements with a cursor selecting the
// current one. Advancing wraps modulo the size.
type Ring[T any] struct {
	data    []T
	current int
}

// Create a new Ring over the given elements. The slice is owned by the ring.
func NewRing[T any](elements []T) *Ring[T] {
	if len(elements) == 0 {
		panic("containers: ring requires at least one element")
	}
	return &Ring[T]{
		data: elements,
	}
}

// Current returns the element under the cursor.
func (r *Ring[T]) Current() T {
	return r.data[r.current]
}

// Index returns the cursor position.
func (r *Ring[T]) Index() int {
	return r.current
}

// Advance moves the cursor forward by one, wrapping at the end, and returns the new index.
func (r *Ring[T]) Advance() int {
	r.current = (r.current + 1) % len(r.data)
	return r.current
}

func (r *Ring[T]) Len() int {
	return len(r.data)
}

// At returns the element at index i.
func (r *Ring[T]) At(i int) T {
	return r.data[i]
}
