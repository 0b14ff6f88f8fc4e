package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/auth"
	"github.com/hjyouh/books/backend/internal/members"
	"go.uber.org/zap"
)

type signUpRequestPayload struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"max=120"`
	Phone       string `json:"phone" binding:"max=40"`
}

type loginRequestPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponsePayload struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
	TokenType   string         `json:"token_type"`
	Member      members.Member `json:"member"`
}

func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request signUpRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}

	member, err := h.members.SignUp(c.Request.Context(), members.SignUpRequest{
		Email:       request.Email,
		Password:    request.Password,
		DisplayName: request.DisplayName,
		Phone:       request.Phone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, member)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}

	member, err := h.members.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, member)
}

func (h *httpHandler) respondWithToken(c *gin.Context, status int, member members.Member) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.SessionClaims{
		Subject: member.ID,
		Role:    string(member.Role),
		Email:   member.Email,
	})
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(status, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Member:      member,
	})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	member, err := h.members.Get(c.Request.Context(), currentSession(c).Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}
