package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/reviews"
)

type applyRequestPayload struct {
	BookID  string `json:"bookId" binding:"required"`
	Message string `json:"message" binding:"max=2000"`
}

type applicationListResponsePayload struct {
	Applications []reviews.Application `json:"applications"`
}

func (h *httpHandler) handleApplyForReview(c *gin.Context) {
	var request applyRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	application, err := h.reviews.Apply(c.Request.Context(), currentSession(c).Subject, request.BookID, request.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, application)
}

func (h *httpHandler) handleListOwnApplications(c *gin.Context) {
	applications, err := h.reviews.ListForMember(c.Request.Context(), currentSession(c).Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondApplications(c, applications)
}

func (h *httpHandler) handleListApplications(c *gin.Context) {
	applications, err := h.reviews.List(c.Request.Context(), reviews.Status(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondApplications(c, applications)
}

type decisionFunc func(ctx context.Context, id string) (reviews.Application, error)

func (h *httpHandler) handleDecideApplication(decide decisionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		application, err := decide(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, application)
	}
}

func (h *httpHandler) handleDeleteApplication(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondApplications(c *gin.Context, applications []reviews.Application) {
	if applications == nil {
		applications = []reviews.Application{}
	}
	c.JSON(http.StatusOK, applicationListResponsePayload{Applications: applications})
}
