package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/auth"
	"github.com/hjyouh/books/backend/internal/catalog"
	"github.com/hjyouh/books/backend/internal/members"
	"github.com/hjyouh/books/backend/internal/metrics"
	"github.com/hjyouh/books/backend/internal/reviews"
	"github.com/hjyouh/books/backend/internal/slides"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	sessionContextKey     = "books_session"
	defaultPersistTimeout = 10 * time.Second
)

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingSlides        = errors.New("slides service dependency required")
	errMissingCatalog       = errors.New("catalog service dependency required")
	errMissingMembers       = errors.New("members service dependency required")
	errMissingReviews       = errors.New("reviews service dependency required")
	errMissingDispatcher    = errors.New("slide event dispatcher dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

type TokenManager interface {
	IssueToken(ctx context.Context, claims auth.SessionClaims) (string, int64, error)
	ValidateToken(token string) (auth.SessionClaims, error)
}

type Dependencies struct {
	TokenManager   TokenManager
	Slides         *slides.Service
	Catalog        *catalog.Service
	Members        *members.Service
	Reviews        *reviews.Service
	Dispatcher     *SlideEventDispatcher
	Logger         *zap.Logger
	AllowedOrigins []string
	// PersistTimeout bounds how long a slide action waits for its writes.
	PersistTimeout    time.Duration
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.TokenManager == nil:
		return nil, errMissingTokenManager
	case deps.Slides == nil:
		return nil, errMissingSlides
	case deps.Catalog == nil:
		return nil, errMissingCatalog
	case deps.Members == nil:
		return nil, errMissingMembers
	case deps.Reviews == nil:
		return nil, errMissingReviews
	case deps.Dispatcher == nil:
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	persistTimeout := deps.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}
	heartbeatInterval := deps.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestObserver(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:            deps.TokenManager,
		slides:            deps.Slides,
		catalog:           deps.Catalog,
		members:           deps.Members,
		reviews:           deps.Reviews,
		dispatcher:        deps.Dispatcher,
		logger:            logger,
		persistTimeout:    persistTimeout,
		heartbeatInterval: heartbeatInterval,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/books", handler.handleListBooks)
	router.GET("/books/:id", handler.handleGetBook)
	router.GET("/slides", handler.handleActiveSlides)
	router.POST("/auth/signup", handler.handleSignUp)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/me", handler.handleMe)
	protected.POST("/reviews/applications", handler.handleApplyForReview)
	protected.GET("/reviews/applications", handler.handleListOwnApplications)

	admin := router.Group("/admin")
	admin.Use(handler.authorizeRequest, handler.requireRole(members.RoleAdmin))

	admin.GET("/books", handler.handleAdminListBooks)
	admin.POST("/books", handler.handleCreateBook)
	admin.PUT("/books/:id", handler.handleUpdateBook)
	admin.DELETE("/books/:id", handler.handleDeleteBook)

	admin.GET("/slides", handler.handleListSlides)
	admin.POST("/slides", handler.handleCreateSlide)
	admin.GET("/slides/events", handler.handleSlideEvents)
	admin.PUT("/slides/:id", handler.handleUpdateSlide)
	admin.DELETE("/slides/:id", handler.handleDeleteSlide)
	admin.POST("/slides/:id/activate", handler.slideAction(handler.slides.Activate))
	admin.POST("/slides/:id/deactivate", handler.slideAction(handler.slides.Deactivate))
	admin.POST("/slides/:id/move-up", handler.slideAction(handler.slides.MoveUp))
	admin.POST("/slides/:id/move-down", handler.slideAction(handler.slides.MoveDown))

	admin.GET("/members", handler.handleListMembers)
	admin.PUT("/members/:id/role", handler.handleSetMemberRole)
	admin.DELETE("/members/:id", handler.handleDeleteMember)

	admin.GET("/reviews", handler.handleListApplications)
	admin.POST("/reviews/:id/approve", handler.handleDecideApplication(handler.reviews.Approve))
	admin.POST("/reviews/:id/reject", handler.handleDecideApplication(handler.reviews.Reject))
	admin.DELETE("/reviews/:id", handler.handleDeleteApplication)

	return router, nil
}

type httpHandler struct {
	tokens            TokenManager
	slides            *slides.Service
	catalog           *catalog.Service
	members           *members.Service
	reviews           *reviews.Service
	dispatcher        *SlideEventDispatcher
	logger            *zap.Logger
	persistTimeout    time.Duration
	heartbeatInterval time.Duration
}

// authorizeRequest accepts a Bearer header, or an access_token query
// parameter for EventSource clients that cannot set headers.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := ""
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
			return
		}
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	} else {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(sessionContextKey, claims)
	c.Next()
}

func (h *httpHandler) requireRole(role members.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c).Role != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// requestObserver records request metrics and logs each request at debug
// level. Unmatched routes are grouped under "unmatched".
func requestObserver(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(started)
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	}
}

func currentSession(c *gin.Context) auth.SessionClaims {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return auth.SessionClaims{}
	}
	claims, _ := value.(auth.SessionClaims)
	return claims
}
