package slides

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func instantPointer(value time.Time) *time.Time {
	return &value
}

func TestNormalizeNeverTouchesInactiveSlides(t *testing.T) {
	past := instantPointer(testNow.Add(-48 * time.Hour))
	future := instantPointer(testNow.Add(48 * time.Hour))
	records := []Slide{
		{ID: "off-expired", Type: SlideTypeMain, IsActive: false, PostingEnd: past, UpdatedAt: testNow.Add(-time.Hour)},
		{ID: "off-current", Type: SlideTypeAd, IsActive: false, PostingStart: past, PostingEnd: future, UpdatedAt: testNow.Add(-time.Hour)},
		{ID: "off-unbounded", Type: SlideTypeMain, IsActive: false},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	if len(normalized.Expired) != 0 {
		t.Fatalf("expected no expiry writes, got %d", len(normalized.Expired))
	}
	if len(normalized.Slides) != len(records) {
		t.Fatalf("expected %d slides, got %d", len(records), len(normalized.Slides))
	}
	for index, slide := range normalized.Slides {
		if slide.IsActive {
			t.Fatalf("slide %s must stay inactive", slide.ID)
		}
		if slide.UpdatedAt != records[index].UpdatedAt {
			t.Fatalf("slide %s must not be rewritten", slide.ID)
		}
	}
}

func TestNormalizeExpiresEndedActiveSlide(t *testing.T) {
	records := []Slide{
		{ID: "on-ended", Type: SlideTypeMain, IsActive: true, Order: 3, PostingEnd: instantPointer(testNow.Add(-time.Minute)), UpdatedAt: testNow.Add(-time.Hour)},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	if len(normalized.Expired) != 1 || normalized.Expired[0].ID != "on-ended" {
		t.Fatalf("expected one expiry write for on-ended, got %#v", normalized.Expired)
	}
	slide := normalized.Slides[0]
	if slide.IsActive {
		t.Fatalf("expected slide to be switched off")
	}
	if !slide.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected updated at to be now, got %s", slide.UpdatedAt)
	}
	if slide.Order != 3 {
		t.Fatalf("expiry must keep the order, got %d", slide.Order)
	}
	change := expiryChange(normalized.Expired[0])
	if change.IsActive == nil || *change.IsActive || change.Order != nil {
		t.Fatalf("unexpected expiry change %#v", change)
	}
}

func TestNormalizeHonorsGracePeriod(t *testing.T) {
	records := []Slide{
		{ID: "just-touched", Type: SlideTypeAd, IsActive: true, PostingEnd: instantPointer(testNow.Add(-time.Hour)), UpdatedAt: testNow.Add(-10 * time.Second)},
		{ID: "touched-long-ago", Type: SlideTypeAd, IsActive: true, PostingEnd: instantPointer(testNow.Add(-time.Hour)), UpdatedAt: testNow.Add(-31 * time.Second)},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	if !normalized.Slides[0].IsActive {
		t.Fatalf("slide touched within grace must stay active")
	}
	if normalized.Slides[1].IsActive {
		t.Fatalf("slide touched outside grace must expire")
	}
	if len(normalized.Expired) != 1 || normalized.Expired[0].ID != "touched-long-ago" {
		t.Fatalf("unexpected expired set %#v", normalized.Expired)
	}
}

func TestNormalizeKeepsUnboundedAndCurrentSlidesActive(t *testing.T) {
	records := []Slide{
		{ID: "unbounded", Type: SlideTypeMain, IsActive: true},
		{ID: "current", Type: SlideTypeMain, IsActive: true, PostingStart: instantPointer(testNow.Add(-time.Hour)), PostingEnd: instantPointer(testNow.Add(time.Hour))},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	if len(normalized.Expired) != 0 {
		t.Fatalf("expected no expiry, got %#v", normalized.Expired)
	}
	for _, slide := range normalized.Slides {
		if !slide.IsActive {
			t.Fatalf("slide %s should remain active", slide.ID)
		}
	}
}

func TestNormalizePlacesInactiveBeforeActive(t *testing.T) {
	records := []Slide{
		{ID: "on-1", Type: SlideTypeMain, IsActive: true},
		{ID: "off-1", Type: SlideTypeMain, IsActive: false},
		{ID: "on-2", Type: SlideTypeAd, IsActive: true},
		{ID: "off-2", Type: SlideTypeAd, IsActive: false},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	want := []string{"off-1", "off-2", "on-1", "on-2"}
	for index, id := range want {
		if normalized.Slides[index].ID != id {
			t.Fatalf("position %d: want %s got %s", index, id, normalized.Slides[index].ID)
		}
	}
}

func TestNormalizeExpiresActiveSlideBeforeItsStart(t *testing.T) {
	records := []Slide{
		{ID: "not-started", Type: SlideTypeMain, IsActive: true, Order: 1, PostingStart: instantPointer(testNow.Add(24 * time.Hour)), UpdatedAt: testNow.Add(-time.Minute)},
		{ID: "not-started-touched", Type: SlideTypeMain, IsActive: true, Order: 2, PostingStart: instantPointer(testNow.Add(24 * time.Hour)), UpdatedAt: testNow.Add(-5 * time.Second)},
	}

	normalized := Normalize(records, testNow, DefaultGrace)

	if len(normalized.Expired) != 1 || normalized.Expired[0].ID != "not-started" {
		t.Fatalf("expected only not-started to expire, got %v", positions(normalized.Expired))
	}
	for _, slide := range normalized.Slides {
		if slide.ID == "not-started-touched" && !slide.IsActive {
			t.Fatalf("slide inside the grace period must stay active")
		}
	}
}
