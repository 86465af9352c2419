package content

// Rotation tracks the active slide of a slideshow. The index wraps in both
// directions.
type Rotation struct {
	count  int
	active int
}

// NewRotation builds a rotation over count slides, starting at the first.
func NewRotation(count int) *Rotation {
	return &Rotation{count: count}
}

// Active returns the current slide index.
func (r *Rotation) Active() int {
	return r.active
}

// Next advances to the following slide, wrapping to the first.
func (r *Rotation) Next() int {
	if r.count == 0 {
		return 0
	}
	r.active = (r.active + 1) % r.count
	return r.active
}

// Prev steps back to the previous slide, wrapping to the last.
func (r *Rotation) Prev() int {
	if r.count == 0 {
		return 0
	}
	r.active = (r.active - 1 + r.count) % r.count
	return r.active
}

// Select jumps to slide i. Out-of-range indexes are ignored.
func (r *Rotation) Select(i int) int {
	if i >= 0 && i < r.count {
		r.active = i
	}
	return r.active
}
