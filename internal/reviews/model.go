package reviews

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrApplicationNotFound  = errors.New("review application not found")
	ErrDuplicateApplication = errors.New("review application already exists")
	ErrAlreadyDecided       = errors.New("review application already decided")
	ErrBookNotFound         = errors.New("book not found")
	ErrInvalidApplication   = errors.New("invalid review application")
	ErrInvalidStatus        = errors.New("invalid review status")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts a status name in any case. An empty string yields an
// empty Status, meaning no filter.
func ParseStatus(raw string) (Status, error) {
	trimmed := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch trimmed {
	case "", StatusPending, StatusApproved, StatusRejected:
		return trimmed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Application is a member's request to review a book.
type Application struct {
	ID        string     `gorm:"column:id;primaryKey;size:190" json:"id"`
	BookID    string     `gorm:"column:book_id;size:190;not null;index:idx_review_applications_book_member" json:"bookId"`
	MemberID  string     `gorm:"column:member_id;size:190;not null;index:idx_review_applications_book_member;index:idx_review_applications_member" json:"memberId"`
	Message   string     `gorm:"column:message" json:"message"`
	Status    Status     `gorm:"column:status;size:16;not null;index:idx_review_applications_status" json:"status"`
	DecidedAt *time.Time `gorm:"column:decided_at" json:"decidedAt,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (Application) TableName() string {
	return "review_applications"
}
