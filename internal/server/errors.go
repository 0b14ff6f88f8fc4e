package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/catalog"
	"github.com/hjyouh/books/backend/internal/members"
	"github.com/hjyouh/books/backend/internal/reviews"
	"github.com/hjyouh/books/backend/internal/serviceerr"
	"github.com/hjyouh/books/backend/internal/slides"
	"go.uber.org/zap"
)

var (
	notFoundErrors = []error{
		slides.ErrSlideNotFound,
		catalog.ErrBookNotFound,
		members.ErrMemberNotFound,
		reviews.ErrApplicationNotFound,
		reviews.ErrBookNotFound,
	}
	conflictErrors = []error{
		slides.ErrPeriodExpired,
		slides.ErrSlideAlreadyActive,
		slides.ErrSlideAlreadyInactive,
		slides.ErrSlideNotActive,
		members.ErrEmailTaken,
		reviews.ErrDuplicateApplication,
		reviews.ErrAlreadyDecided,
	}
	badRequestErrors = []error{
		slides.ErrInvalidSlideType,
		slides.ErrInvalidSlideID,
		catalog.ErrInvalidBook,
		members.ErrInvalidSignUp,
		members.ErrInvalidRole,
		reviews.ErrInvalidApplication,
		reviews.ErrInvalidStatus,
	}
)

func statusForError(err error) int {
	switch {
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, members.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorReason is the last segment of a service error code, e.g.
// "period_expired" for "slides.activate.period_expired".
func errorReason(code string) string {
	if index := strings.LastIndex(code, "."); index >= 0 {
		return code[index+1:]
	}
	if code == "" {
		return "internal_error"
	}
	return code
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	code := serviceerr.Code(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorReason(code), "code": code})
}

func respondInvalidRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}
