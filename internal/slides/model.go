package slides

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SlideType partitions the ordering space. Order values only compare
// between slides of the same type.
type SlideType string

const (
	// SlideTypeMain is a main page carousel slide.
	SlideTypeMain SlideType = "main"
	// SlideTypeAd is an advertisement slide.
	SlideTypeAd SlideType = "ad"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidSlideType indicates an unknown slide type.
	ErrInvalidSlideType = errors.New("slides: invalid slide type")
	// ErrInvalidSlideID indicates that a slide identifier is empty or exceeds storage bounds.
	ErrInvalidSlideID = errors.New("slides: invalid slide id")
	// ErrSlideNotFound indicates that no slide carries the identifier.
	ErrSlideNotFound = errors.New("slides: slide not found")
	// ErrSlideAlreadyActive is returned when activating an ON slide.
	ErrSlideAlreadyActive = errors.New("slides: slide already active")
	// ErrSlideAlreadyInactive is returned when deactivating an OFF slide.
	ErrSlideAlreadyInactive = errors.New("slides: slide already inactive")
	// ErrSlideNotActive is returned when reordering an OFF slide.
	ErrSlideNotActive = errors.New("slides: slide is not active")
	// ErrPeriodExpired rejects activation of a slide whose posting period has ended.
	ErrPeriodExpired = errors.New("slides: posting period expired")
)

// ParseSlideType validates raw input and returns a SlideType.
func ParseSlideType(raw string) (SlideType, error) {
	switch SlideType(strings.ToLower(strings.TrimSpace(raw))) {
	case SlideTypeMain:
		return SlideTypeMain, nil
	case SlideTypeAd:
		return SlideTypeAd, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSlideType, raw)
	}
}

// NewSlideID validates raw input and returns a trimmed identifier.
func NewSlideID(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSlideID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSlideID, maxIdentifierLength)
	}
	return trimmed, nil
}

// Slide is one promotional slide record.
type Slide struct {
	ID              string     `gorm:"column:id;primaryKey;size:190;not null"`
	Type            SlideType  `gorm:"column:slide_type;size:16;not null;index:idx_slides_type_order,priority:1"`
	IsActive        bool       `gorm:"column:is_active;not null;default:false"`
	Order           int64      `gorm:"column:sort_order;not null;default:0;index:idx_slides_type_order,priority:2"`
	PostingStart    *time.Time `gorm:"column:posting_start"`
	PostingEnd      *time.Time `gorm:"column:posting_end"`
	Title           string     `gorm:"column:title;size:255;not null;default:''"`
	Subtitle        string     `gorm:"column:subtitle;size:512;not null;default:''"`
	ImageURL        string     `gorm:"column:image_url;size:1024;not null;default:''"`
	TextColor       string     `gorm:"column:text_color;size:32;not null;default:''"`
	BackgroundColor string     `gorm:"column:background_color;size:32;not null;default:''"`
	LinkURL         string     `gorm:"column:link_url;size:1024;not null;default:''"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Slide) TableName() string {
	return "slides"
}

// Window returns the posting window bounds of the slide.
func (s Slide) Window() (Bound, Bound) {
	return ParseInstant(s.PostingStart), ParseInstant(s.PostingEnd)
}

// SlideContent is the display payload of a slide. The ordering logic never reads it.
type SlideContent struct {
	Title           string
	Subtitle        string
	ImageURL        string
	TextColor       string
	BackgroundColor string
	LinkURL         string
}

func (s *Slide) applyContent(content SlideContent) {
	s.Title = content.Title
	s.Subtitle = content.Subtitle
	s.ImageURL = content.ImageURL
	s.TextColor = content.TextColor
	s.BackgroundColor = content.BackgroundColor
	s.LinkURL = content.LinkURL
}

// SlideChange describes a single-document write. Nil fields are left untouched.
type SlideChange struct {
	ID           string
	IsActive     *bool
	Order        *int64
	UpdatedAt    time.Time
	Content      *SlideContent
	PostingStart *time.Time
	PostingEnd   *time.Time
	// ClearWindow removes both posting bounds before PostingStart/PostingEnd apply.
	ClearWindow bool
}

// SlideInput carries the fields an admin supplies when creating or editing a slide.
// PostingStart and PostingEnd accept any value ParseInstant understands.
type SlideInput struct {
	Type         SlideType
	IsActive     bool
	PostingStart any
	PostingEnd   any
	Content      SlideContent
}

// IDProvider issues identifiers for new slides.
type IDProvider interface {
	NewID() (string, error)
}

func boolPointer(value bool) *bool {
	v := value
	return &v
}

func int64Pointer(value int64) *int64 {
	v := value
	return &v
}
