package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hjyouh/books/backend/internal/metrics"
	"github.com/hjyouh/books/backend/internal/serviceerr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew   = "members.service.new"
	opSignUp       = "members.sign_up"
	opAuthenticate = "members.authenticate"
	opList         = "members.list"
	opGet          = "members.get"
	opDelete       = "members.delete"
	opSetRole      = "members.set_role"
	opEnsureAdmin  = "members.ensure_admin"
	fieldMemberID  = "member_id"

	timingPassword = "books-member-timing-equalizer"
)

type IDProvider interface {
	NewID() (string, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	hashCost   int
	// missHash is compared against when no member matches an email so
	// unknown addresses cost the same bcrypt work as wrong passwords.
	missHash []byte
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
	hashCost := cfg.HashCost
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	missHash, err := bcrypt.GenerateFromPassword([]byte(timingPassword), hashCost)
	if err != nil {
		return nil, serviceerr.New(opServiceNew, "hash_failed", err)
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		hashCost:   hashCost,
		missHash:   missHash,
	}, nil
}

// SignUp registers a member with the member role.
func (s *Service) SignUp(ctx context.Context, request SignUpRequest) (Member, error) {
	normalized, err := request.normalized()
	if err != nil {
		return Member{}, serviceerr.New(opSignUp, "invalid_signup", err)
	}

	member, err := s.create(ctx, opSignUp, normalized, RoleMember)
	if err != nil {
		return Member{}, err
	}
	metrics.MemberSignupsTotal.Inc()
	s.logger.Info("member signed up", zap.String(fieldMemberID, member.ID))
	return member, nil
}

// Authenticate checks the password of the member registered under email.
// Unknown addresses and wrong passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Member, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		s.compareMiss(password)
		return Member{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}

	member, err := s.findByEmail(ctx, opAuthenticate, normalized)
	if errors.Is(err, ErrMemberNotFound) {
		s.compareMiss(password)
		return Member{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		return Member{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return Member{}, serviceerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}
	return member, nil
}

func (s *Service) List(ctx context.Context) ([]Member, error) {
	var members []Member
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&members).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, serviceerr.New(opList, "query_failed", err)
	}
	return members, nil
}

func (s *Service) Get(ctx context.Context, id string) (Member, error) {
	return s.find(ctx, opGet, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	trimmed := strings.TrimSpace(id)
	result := s.db.WithContext(ctx).Where("id = ?", trimmed).Delete(&Member{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error, zap.String(fieldMemberID, trimmed))
		return serviceerr.New(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return serviceerr.New(opDelete, "not_found", fmt.Errorf("%w: %s", ErrMemberNotFound, trimmed))
	}
	return nil
}

func (s *Service) SetRole(ctx context.Context, id string, role Role) (Member, error) {
	parsed, err := ParseRole(string(role))
	if err != nil {
		return Member{}, serviceerr.New(opSetRole, "invalid_role", err)
	}
	member, err := s.find(ctx, opSetRole, id)
	if err != nil {
		return Member{}, err
	}
	if member.Role == parsed {
		return member, nil
	}

	member.Role = parsed
	member.UpdatedAt = s.clock().UTC()
	if err := s.db.WithContext(ctx).Model(&Member{}).Where("id = ?", member.ID).
		Updates(map[string]any{"role": member.Role, "updated_at": member.UpdatedAt}).Error; err != nil {
		s.logError(opSetRole, "update_failed", err, zap.String(fieldMemberID, member.ID))
		return Member{}, serviceerr.New(opSetRole, "update_failed", err)
	}
	return member, nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes the member
// already registered under email. An existing password is left unchanged.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (Member, error) {
	normalized, err := SignUpRequest{Email: email, Password: password, DisplayName: "Administrator"}.normalized()
	if err != nil {
		return Member{}, serviceerr.New(opEnsureAdmin, "invalid_admin", err)
	}

	existing, err := s.findByEmail(ctx, opEnsureAdmin, normalized.Email)
	switch {
	case err == nil:
		if existing.Role == RoleAdmin {
			return existing, nil
		}
		promoted, err := s.SetRole(ctx, existing.ID, RoleAdmin)
		if err != nil {
			return Member{}, err
		}
		s.logger.Info("member promoted to admin", zap.String(fieldMemberID, promoted.ID))
		return promoted, nil
	case errors.Is(err, ErrMemberNotFound):
		member, err := s.create(ctx, opEnsureAdmin, normalized, RoleAdmin)
		if err != nil {
			return Member{}, err
		}
		s.logger.Info("admin account created", zap.String(fieldMemberID, member.ID))
		return member, nil
	default:
		return Member{}, err
	}
}

func (s *Service) create(ctx context.Context, operation string, request SignUpRequest, role Role) (Member, error) {
	if _, err := s.findByEmail(ctx, operation, request.Email); err == nil {
		return Member{}, serviceerr.New(operation, "email_taken", ErrEmailTaken)
	} else if !errors.Is(err, ErrMemberNotFound) {
		return Member{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), s.hashCost)
	if err != nil {
		s.logError(operation, "hash_failed", err)
		return Member{}, serviceerr.New(operation, "hash_failed", err)
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, "id_generation_failed", err)
		return Member{}, serviceerr.New(operation, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	member := Member{
		ID:           id,
		Email:        request.Email,
		PasswordHash: string(hash),
		DisplayName:  request.DisplayName,
		Phone:        request.Phone,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		// A concurrent signup can claim the address between the check and the insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) || s.emailRegistered(ctx, request.Email) {
			return Member{}, serviceerr.New(operation, "email_taken", ErrEmailTaken)
		}
		s.logError(operation, "insert_failed", err, zap.String(fieldMemberID, id))
		return Member{}, serviceerr.New(operation, "insert_failed", err)
	}
	return member, nil
}

func (s *Service) find(ctx context.Context, operation, id string) (Member, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return Member{}, serviceerr.New(operation, "not_found", ErrMemberNotFound)
	}
	var member Member
	err := s.db.WithContext(ctx).Where("id = ?", trimmed).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Member{}, serviceerr.New(operation, "not_found", fmt.Errorf("%w: %s", ErrMemberNotFound, trimmed))
	}
	if err != nil {
		s.logError(operation, "query_failed", err, zap.String(fieldMemberID, trimmed))
		return Member{}, serviceerr.New(operation, "query_failed", err)
	}
	return member, nil
}

func (s *Service) findByEmail(ctx context.Context, operation, email string) (Member, error) {
	var member Member
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Member{}, ErrMemberNotFound
	}
	if err != nil {
		s.logError(operation, "query_failed", err)
		return Member{}, serviceerr.New(operation, "query_failed", err)
	}
	return member, nil
}

func (s *Service) emailRegistered(ctx context.Context, email string) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Member{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (s *Service) compareMiss(password string) {
	_ = bcrypt.CompareHashAndPassword(s.missHash, []byte(password))
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
	s.logger.Error("members service error", attrs...)
}
