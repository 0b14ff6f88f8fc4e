package slides

import "time"

// DefaultGrace is how long after a manual change an ON slide is exempt from expiry.
const DefaultGrace = 30 * time.Second

// Normalized is the result of a lifecycle sweep over freshly loaded slides.
type Normalized struct {
	// Slides holds the OFF slides followed by the ON slides, some of which may now be OFF.
	Slides []Slide
	// Expired lists the slides switched off by the sweep; each needs a write.
	Expired []Slide
}

// Normalize switches off ON slides whose posting window has ended. OFF slides
// are returned untouched. ON slides updated less than grace ago are skipped.
func Normalize(records []Slide, now time.Time, grace time.Duration) Normalized {
	active, inactive := Partition(records)

	result := Normalized{
		Slides:  make([]Slide, 0, len(records)),
		Expired: make([]Slide, 0),
	}
	for _, slide := range inactive {
		result.Slides = append(result.Slides, slide.Slide())
	}

	nowMillis := now.UnixMilli()
	for _, slide := range active {
		current := slide.Slide()
		if recentlyTouched(current, now, grace) {
			result.Slides = append(result.Slides, current)
			continue
		}
		start, end := current.Window()
		if WithinWindow(nowMillis, start, end, true) {
			result.Slides = append(result.Slides, current)
			continue
		}
		expired := slide.Expire(now).Slide()
		result.Slides = append(result.Slides, expired)
		result.Expired = append(result.Expired, expired)
	}

	return result
}

func recentlyTouched(slide Slide, now time.Time, grace time.Duration) bool {
	if slide.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(slide.UpdatedAt) < grace
}

func expiryChange(slide Slide) SlideChange {
	return SlideChange{
		ID:        slide.ID,
		IsActive:  boolPointer(false),
		UpdatedAt: slide.UpdatedAt,
	}
}
