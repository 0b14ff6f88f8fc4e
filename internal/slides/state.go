package slides

import "time"

// ActiveSlide is a slide in the ON state. Only ON slides can expire or be reordered.
type ActiveSlide struct {
	slide Slide
}

// InactiveSlide is a slide in the OFF state. OFF is left only through Activate.
type InactiveSlide struct {
	slide Slide
}

// Partition splits records into ON and OFF sets, preserving input order within each.
func Partition(records []Slide) ([]ActiveSlide, []InactiveSlide) {
	active := make([]ActiveSlide, 0, len(records))
	inactive := make([]InactiveSlide, 0, len(records))
	for _, record := range records {
		if record.IsActive {
			active = append(active, ActiveSlide{slide: record})
			continue
		}
		inactive = append(inactive, InactiveSlide{slide: record})
	}
	return active, inactive
}

// Slide returns a copy of the underlying record.
func (a ActiveSlide) Slide() Slide {
	return a.slide
}

// Slide returns a copy of the underlying record.
func (i InactiveSlide) Slide() Slide {
	return i.slide
}

// Expire switches the slide off after its posting window ended. The order is kept.
func (a ActiveSlide) Expire(now time.Time) InactiveSlide {
	next := a.slide
	next.IsActive = false
	next.UpdatedAt = now
	return InactiveSlide{slide: next}
}

// Deactivate switches the slide off and moves it to the given order.
func (a ActiveSlide) Deactivate(order int64, now time.Time) InactiveSlide {
	next := a.slide
	next.IsActive = false
	next.Order = order
	next.UpdatedAt = now
	return InactiveSlide{slide: next}
}

// WithOrder returns the ON slide with a new order key.
func (a ActiveSlide) WithOrder(order int64, now time.Time) ActiveSlide {
	next := a.slide
	next.Order = order
	next.UpdatedAt = now
	return ActiveSlide{slide: next}
}

// Activate switches the slide on and moves it to the given order.
func (i InactiveSlide) Activate(order int64, now time.Time) ActiveSlide {
	next := i.slide
	next.IsActive = true
	next.Order = order
	next.UpdatedAt = now
	return ActiveSlide{slide: next}
}
