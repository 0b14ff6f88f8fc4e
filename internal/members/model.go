package members

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidSignUp      = errors.New("invalid signup")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

const minPasswordLength = 8

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole accepts "member" or "admin" in any case.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Member is a registered account. PasswordHash never leaves the service in JSON.
type Member struct {
	ID           string    `gorm:"column:id;primaryKey;size:190" json:"id"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_members_email" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  string    `gorm:"column:display_name" json:"displayName"`
	Phone        string    `gorm:"column:phone;size:40" json:"phone"`
	Role         Role      `gorm:"column:role;size:16;not null" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (Member) TableName() string {
	return "members"
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

// NormalizeEmail trims and lower-cases an address and rejects malformed input.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.New("email is required")
	}
	address, err := mail.ParseAddress(email)
	if err != nil || address.Address != email {
		return "", fmt.Errorf("malformed email %q", raw)
	}
	return email, nil
}

func (r SignUpRequest) normalized() (SignUpRequest, error) {
	email, err := NormalizeEmail(r.Email)
	if err != nil {
		return SignUpRequest{}, errors.Join(ErrInvalidSignUp, err)
	}
	if len(r.Password) < minPasswordLength {
		return SignUpRequest{}, errors.Join(ErrInvalidSignUp, fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	return SignUpRequest{
		Email:       email,
		Password:    r.Password,
		DisplayName: strings.TrimSpace(r.DisplayName),
		Phone:       strings.TrimSpace(r.Phone),
	}, nil
}
