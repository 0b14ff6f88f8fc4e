package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hjyouh/books/backend/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "catalog.service.new"
	opCreate     = "catalog.create"
	opUpdate     = "catalog.update"
	opGet        = "catalog.get"
	opDelete     = "catalog.delete"
	opList       = "catalog.list"
	fieldBookID  = "book_id"
)

type IDProvider interface {
	NewID() (string, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, serviceerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

func (s *Service) Create(ctx context.Context, input BookInput) (Book, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Book{}, serviceerr.New(opCreate, "invalid_book", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Book{}, serviceerr.New(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	book := Book{ID: id, CreatedAt: now, UpdatedAt: now}
	book.apply(normalized)
	if err := s.db.WithContext(ctx).Create(&book).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String(fieldBookID, id))
		return Book{}, serviceerr.New(opCreate, "insert_failed", err)
	}
	return book, nil
}

func (s *Service) Update(ctx context.Context, id string, input BookInput) (Book, error) {
	normalized, err := input.normalized()
	if err != nil {
		return Book{}, serviceerr.New(opUpdate, "invalid_book", err)
	}

	book, err := s.find(ctx, opUpdate, id)
	if err != nil {
		return Book{}, err
	}
	book.apply(normalized)
	book.UpdatedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Save(&book).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String(fieldBookID, book.ID))
		return Book{}, serviceerr.New(opUpdate, "save_failed", err)
	}
	return book, nil
}

func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.find(ctx, opGet, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return serviceerr.New(opDelete, "not_found", ErrBookNotFound)
	}
	result := s.db.WithContext(ctx).Where("id = ?", trimmed).Delete(&Book{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String(fieldBookID, trimmed))
		return serviceerr.New(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return serviceerr.New(opDelete, "not_found", fmt.Errorf("%w: %s", ErrBookNotFound, trimmed))
	}
	return nil
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns the books matching query. Search is a case-insensitive
// substring match over title, author and publisher.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Book, error) {
	tx := s.db.WithContext(ctx).Model(&Book{})
	if needle := strings.ToLower(strings.TrimSpace(query.Search)); needle != "" {
		pattern := "%" + likeEscaper.Replace(needle) + "%"
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(author) LIKE ? ESCAPE '\' OR LOWER(publisher) LIKE ? ESCAPE '\'`, pattern, pattern, pattern)
	}
	if category := strings.TrimSpace(query.Category); category != "" {
		tx = tx.Where("category = ?", category)
	}
	if query.PublishedOnly {
		tx = tx.Where("is_published = ?", true)
	}

	var books []Book
	if err := tx.Order(orderClause(query.Sort)).Find(&books).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	return books, nil
}

// Exists reports whether a book with id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.find(ctx, opGet, id)
	if errors.Is(err, ErrBookNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) find(ctx context.Context, operation, id string) (Book, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Book{}, serviceerr.New(operation, "not_found", ErrBookNotFound)
	}
	var book Book
	err := s.db.WithContext(ctx).Where("id = ?", trimmed).Take(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, serviceerr.New(operation, "not_found", fmt.Errorf("%w: %s", ErrBookNotFound, trimmed))
	}
	if err != nil {
		s.logError(operation, "query_failed", err, zap.String(fieldBookID, trimmed))
		return Book{}, serviceerr.New(operation, "query_failed", err)
	}
	return book, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog service error", attrs...)
}
