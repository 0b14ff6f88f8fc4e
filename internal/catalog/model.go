package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrInvalidBook  = errors.New("invalid book")
)

// SortKey selects the ordering of a catalog listing.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortTitle     SortKey = "title"
	SortAuthor    SortKey = "author"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// Book is a catalog entry. Price is stored in minor currency units.
type Book struct {
	ID            string     `gorm:"column:id;primaryKey;size:190" json:"id"`
	Title         string     `gorm:"column:title;not null" json:"title"`
	Author        string     `gorm:"column:author;not null" json:"author"`
	Publisher     string     `gorm:"column:publisher" json:"publisher"`
	Category      string     `gorm:"column:category;size:100;index:idx_books_category" json:"category"`
	ISBN          string     `gorm:"column:isbn;size:32" json:"isbn"`
	Description   string     `gorm:"column:description" json:"description"`
	CoverImageURL string     `gorm:"column:cover_image_url" json:"coverImageUrl"`
	Price         int64      `gorm:"column:price;not null" json:"price"`
	PublishedAt   *time.Time `gorm:"column:published_at" json:"publishedAt,omitempty"`
	IsPublished   bool       `gorm:"column:is_published;not null" json:"isPublished"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

// BookInput carries the editable fields of a book.
type BookInput struct {
	Title         string
	Author        string
	Publisher     string
	Category      string
	ISBN          string
	Description   string
	CoverImageURL string
	Price         int64
	PublishedAt   *time.Time
	IsPublished   bool
}

func (input BookInput) normalized() (BookInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Publisher = strings.TrimSpace(input.Publisher)
	input.Category = strings.TrimSpace(input.Category)
	input.ISBN = strings.TrimSpace(input.ISBN)
	input.CoverImageURL = strings.TrimSpace(input.CoverImageURL)
	if input.Title == "" {
		return BookInput{}, errors.Join(ErrInvalidBook, errors.New("title is required"))
	}
	if input.Author == "" {
		return BookInput{}, errors.Join(ErrInvalidBook, errors.New("author is required"))
	}
	if input.Price < 0 {
		return BookInput{}, errors.Join(ErrInvalidBook, errors.New("price must not be negative"))
	}
	return input, nil
}

func (b *Book) apply(input BookInput) {
	b.Title = input.Title
	b.Author = input.Author
	b.Publisher = input.Publisher
	b.Category = input.Category
	b.ISBN = input.ISBN
	b.Description = input.Description
	b.CoverImageURL = input.CoverImageURL
	b.Price = input.Price
	b.PublishedAt = input.PublishedAt
	b.IsPublished = input.IsPublished
}

// ListQuery filters and orders a catalog listing.
type ListQuery struct {
	Search        string
	Category      string
	Sort          SortKey
	PublishedOnly bool
}

func orderClause(key SortKey) string {
	switch SortKey(strings.ToLower(strings.TrimSpace(string(key)))) {
	case SortTitle:
		return "title ASC, id ASC"
	case SortAuthor:
		return "author ASC, title ASC, id ASC"
	case SortPriceAsc:
		return "price ASC, id ASC"
	case SortPriceDesc:
		return "price DESC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}
