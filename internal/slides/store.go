package slides

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var errMissingStoreDatabase = errors.New("slides: database handle is required")

// Store is the persistence boundary of the slide controller.
type Store interface {
	// ListSlides returns every slide ordered by order ascending.
	ListSlides(ctx context.Context) ([]Slide, error)
	// UpdateSlide applies a single-document write.
	UpdateSlide(ctx context.Context, change SlideChange) error
	// CreateSlide stores a new slide and returns its identifier.
	CreateSlide(ctx context.Context, slide Slide) (string, error)
	// DeleteSlide removes a slide permanently.
	DeleteSlide(ctx context.Context, id string) error
}

// GormStore keeps slides in the slides table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errMissingStoreDatabase
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) ListSlides(ctx context.Context) ([]Slide, error) {
	var records []Slide
	if err := s.db.WithContext(ctx).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) UpdateSlide(ctx context.Context, change SlideChange) error {
	updates := map[string]any{
		"updated_at": change.UpdatedAt.UTC(),
	}
	if change.IsActive != nil {
		updates["is_active"] = *change.IsActive
	}
	if change.Order != nil {
		updates["sort_order"] = *change.Order
	}
	if change.Content != nil {
		updates["title"] = change.Content.Title
		updates["subtitle"] = change.Content.Subtitle
		updates["image_url"] = change.Content.ImageURL
		updates["text_color"] = change.Content.TextColor
		updates["background_color"] = change.Content.BackgroundColor
		updates["link_url"] = change.Content.LinkURL
	}
	if change.ClearWindow {
		updates["posting_start"] = nil
		updates["posting_end"] = nil
	}
	if change.PostingStart != nil {
		updates["posting_start"] = change.PostingStart.UTC()
	}
	if change.PostingEnd != nil {
		updates["posting_end"] = change.PostingEnd.UTC()
	}

	result := s.db.WithContext(ctx).
		Model(&Slide{}).
		Where("id = ?", change.ID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSlideNotFound, change.ID)
	}
	return nil
}

func (s *GormStore) CreateSlide(ctx context.Context, slide Slide) (string, error) {
	if _, err := NewSlideID(slide.ID); err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(&slide).Error; err != nil {
		return "", err
	}
	return slide.ID, nil
}

func (s *GormStore) DeleteSlide(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Slide{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSlideNotFound, id)
	}
	return nil
}

// apply mirrors UpdateSlide on an in-memory record.
func (s *Slide) apply(change SlideChange) {
	s.UpdatedAt = change.UpdatedAt
	if change.IsActive != nil {
		s.IsActive = *change.IsActive
	}
	if change.Order != nil {
		s.Order = *change.Order
	}
	if change.Content != nil {
		s.applyContent(*change.Content)
	}
	if change.ClearWindow {
		s.PostingStart = nil
		s.PostingEnd = nil
	}
	if change.PostingStart != nil {
		start := *change.PostingStart
		s.PostingStart = &start
	}
	if change.PostingEnd != nil {
		end := *change.PostingEnd
		s.PostingEnd = &end
	}
}
