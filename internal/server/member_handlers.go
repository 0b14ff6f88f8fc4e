package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/members"
)

type roleRequestPayload struct {
	Role string `json:"role" binding:"required"`
}

type memberListResponsePayload struct {
	Members []members.Member `json:"members"`
}

func (h *httpHandler) handleListMembers(c *gin.Context) {
	list, err := h.members.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if list == nil {
		list = []members.Member{}
	}
	c.JSON(http.StatusOK, memberListResponsePayload{Members: list})
}

func (h *httpHandler) handleSetMemberRole(c *gin.Context) {
	var request roleRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	if h.isSelf(c) {
		c.JSON(http.StatusConflict, gin.H{"error": "self_modification"})
		return
	}
	member, err := h.members.SetRole(c.Request.Context(), c.Param("id"), members.Role(request.Role))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *httpHandler) handleDeleteMember(c *gin.Context) {
	if h.isSelf(c) {
		c.JSON(http.StatusConflict, gin.H{"error": "self_modification"})
		return
	}
	if err := h.members.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// isSelf keeps an admin from demoting or deleting their own account.
func (h *httpHandler) isSelf(c *gin.Context) bool {
	return strings.TrimSpace(c.Param("id")) == currentSession(c).Subject
}
