package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hjyouh/books/backend/internal/metrics"
	"github.com/hjyouh/books/backend/internal/serviceerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingBooks      = errors.New("book catalog is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew     = "reviews.service.new"
	opApply          = "reviews.apply"
	opListForMember  = "reviews.list_for_member"
	opList           = "reviews.list"
	opApprove        = "reviews.approve"
	opReject         = "reviews.reject"
	opDelete         = "reviews.delete"
	fieldApplication = "application_id"
	fieldMemberID    = "member_id"
	fieldBookID      = "book_id"
)

type IDProvider interface {
	NewID() (string, error)
}

// BookCatalog answers whether a book can be applied for.
type BookCatalog interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	Books      BookCatalog
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	books      BookCatalog
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, serviceerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Books == nil {
		return nil, serviceerr.New(opServiceNew, "missing_books", errMissingBooks)
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
		books:      cfg.Books,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Apply files a pending application. A member may hold at most one
// non-rejected application per book.
func (s *Service) Apply(ctx context.Context, memberID, bookID, message string) (Application, error) {
	memberID = strings.TrimSpace(memberID)
	bookID = strings.TrimSpace(bookID)
	if memberID == "" || bookID == "" {
		return Application{}, serviceerr.New(opApply, "invalid_application", ErrInvalidApplication)
	}

	exists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		s.logError(opApply, "book_lookup_failed", err, zap.String(fieldBookID, bookID))
		return Application{}, serviceerr.New(opApply, "book_lookup_failed", err)
	}
	if !exists {
		return Application{}, serviceerr.New(opApply, "book_not_found", fmt.Errorf("%w: %s", ErrBookNotFound, bookID))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opApply, "id_generation_failed", err)
		return Application{}, serviceerr.New(opApply, "id_generation_failed", err)
	}
	now := s.clock().UTC()
	application := Application{
		ID:        id,
		BookID:    bookID,
		MemberID:  memberID,
		Message:   strings.TrimSpace(message),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&Application{}).
			Where("member_id = ? AND book_id = ? AND status <> ?", memberID, bookID, StatusRejected).
			Count(&open).Error; err != nil {
			s.logError(opApply, "query_failed", err, zap.String(fieldMemberID, memberID))
			return serviceerr.New(opApply, "query_failed", err)
		}
		if open > 0 {
			return serviceerr.New(opApply, "duplicate_application", ErrDuplicateApplication)
		}
		if err := tx.Create(&application).Error; err != nil {
			s.logError(opApply, "insert_failed", err, zap.String(fieldApplication, id))
			return serviceerr.New(opApply, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Application{}, txErr
	}
	return application, nil
}

// ListForMember returns a member's applications, newest first.
func (s *Service) ListForMember(ctx context.Context, memberID string) ([]Application, error) {
	var applications []Application
	err := s.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Order("created_at DESC, id DESC").
		Find(&applications).Error
	if err != nil {
		s.logError(opListForMember, "query_failed", err, zap.String(fieldMemberID, memberID))
		return nil, serviceerr.New(opListForMember, "query_failed", err)
	}
	return applications, nil
}

// List returns every application, optionally restricted to one status.
func (s *Service) List(ctx context.Context, status Status) ([]Application, error) {
	parsed, err := ParseStatus(string(status))
	if err != nil {
		return nil, serviceerr.New(opList, "invalid_status", err)
	}
	tx := s.db.WithContext(ctx).Model(&Application{})
	if parsed != "" {
		tx = tx.Where("status = ?", parsed)
	}
	var applications []Application
	if err := tx.Order("created_at DESC, id DESC").Find(&applications).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	return applications, nil
}

func (s *Service) Approve(ctx context.Context, id string) (Application, error) {
	return s.decide(ctx, opApprove, id, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, id string) (Application, error) {
	return s.decide(ctx, opReject, id, StatusRejected)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	result := s.db.WithContext(ctx).Where("id = ?", trimmed).Delete(&Application{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String(fieldApplication, trimmed))
		return serviceerr.New(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return serviceerr.New(opDelete, "not_found", fmt.Errorf("%w: %s", ErrApplicationNotFound, trimmed))
	}
	return nil
}

// decide moves a pending application to status. The update is conditional
// on the row still being pending so concurrent decisions cannot both win.
func (s *Service) decide(ctx context.Context, operation, id string, status Status) (Application, error) {
	trimmed := strings.TrimSpace(id)
	var application Application
	err := s.db.WithContext(ctx).Where("id = ?", trimmed).Take(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Application{}, serviceerr.New(operation, "not_found", fmt.Errorf("%w: %s", ErrApplicationNotFound, trimmed))
	}
	if err != nil {
		s.logError(operation, "query_failed", err, zap.String(fieldApplication, trimmed))
		return Application{}, serviceerr.New(operation, "query_failed", err)
	}
	if application.Status != StatusPending {
		return Application{}, serviceerr.New(operation, "already_decided", ErrAlreadyDecided)
	}

	now := s.clock().UTC()
	result := s.db.WithContext(ctx).Model(&Application{}).
		Where("id = ? AND status = ?", trimmed, StatusPending).
		Updates(map[string]any{"status": status, "decided_at": now, "updated_at": now})
	if result.Error != nil {
		s.logError(operation, "update_failed", result.Error, zap.String(fieldApplication, trimmed))
		return Application{}, serviceerr.New(operation, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Application{}, serviceerr.New(operation, "already_decided", ErrAlreadyDecided)
	}

	application.Status = status
	application.DecidedAt = &now
	application.UpdatedAt = now
	metrics.ReviewDecisionsTotal.WithLabelValues(string(status)).Inc()
	return application, nil
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
	s.logger.Error("reviews service error", attrs...)
}
