package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/haletran/todo-auth-service/internal/core/domain"
	"github.com/haletran/todo-auth-service/internal/logger"
	logicv1 "github.com/haletran/todo-auth-service/internal/logic/v1"
	"github.com/haletran/todo-auth-service/internal/web/cookies"
	"github.com/haletran/todo-auth-service/middleware"
)

// Fixed response messages. Unknown email and wrong password share one
// message so the API does not leak which emails are registered.
const (
	msgMissingCredentials = "Email and password are required"
	msgDuplicateEmail     = "User already exists with this email"
	msgInvalidCredentials = "Invalid email or password"
	msgInternalError      = "Internal server error"
)

// Handler groups HTTP handlers for the auth API.
// Dependencies are injected via the constructor — no global state.
type Handler struct {
	auth    *logicv1.AuthService
	cookies cookies.Policy
	service string
	version string
}

// NewHandler creates a new Handler with the given AuthService and cookie policy.
func NewHandler(auth *logicv1.AuthService, policy cookies.Policy, service, version string) *Handler {
	return &Handler{auth: auth, cookies: policy, service: service, version: version}
}

// RegisterRoutes registers the auth routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/sign-up", h.SignUp)
	rg.POST("/auth/sign-in/email", h.SignIn)
	rg.POST("/auth/sign-out", h.SignOut)
	rg.GET("/auth/get-session", h.GetSession)
}

// SignUp handles POST /auth/sign-up: creates the account, signs the user in,
// and sets the session cookie. 201 on success, 400 on duplicate email.
func (h *Handler) SignUp(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingCredentials})
		return
	}

	result, err := h.auth.SignUp(ctx, req)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrDuplicateEmail):
			log.Warn().Str("email", req.Email).Msg("Duplicate signup attempt")
			c.JSON(http.StatusBadRequest, gin.H{"error": msgDuplicateEmail})
		default:
			log.Error().Err(err).Msg("Signup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	h.cookies.Set(c, result.Token)
	log.Info().Int64("user_id", result.User.ID).Msg("Signup successful")
	c.JSON(http.StatusCreated, domain.AuthResponse{
		Message: "Account created successfully",
		User:    result.User,
	})
}

// SignIn handles POST /auth/sign-in/email: verifies credentials and sets the
// session cookie. Unknown email and wrong password both return 401 with an
// identical body.
func (h *Handler) SignIn(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	var req domain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingCredentials})
		return
	}

	result, err := h.auth.SignIn(ctx, req)
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials), errors.Is(err, logicv1.ErrUserNotFound):
			log.Warn().Str("email", req.Email).Msg("Login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidCredentials})
		default:
			log.Error().Err(err).Msg("Login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	h.cookies.Set(c, result.Token)
	log.Info().Int64("user_id", result.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, domain.AuthResponse{
		Message: "Login successful",
		User:    result.User,
	})
}

// SignOut handles POST /auth/sign-out. The cookie is cleared with the exact
// attributes that set it; when the revocation set is enabled the token is
// also revoked server-side. Always 200.
func (h *Handler) SignOut(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	h.auth.SignOut(ctx, extractToken(c))
	h.cookies.Clear(c)

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// GetSession handles GET /auth/get-session: resolves the presented token to
// the current user. Token failures clear the cookie to stop client retry
// loops.
func (h *Handler) GetSession(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	log := logger.FromContext(ctx)

	tok := extractToken(c)
	if tok == "" {
		span.SetAttributes(attribute.Bool("auth.present", false))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authentication token"})
		return
	}

	session, err := h.auth.Session(ctx, tok)
	if err != nil {
		span.RecordError(err)
		log.Warn().Err(err).Msg("Session lookup failed")

		switch {
		case errors.Is(err, logicv1.ErrTokenExpired):
			h.cookies.Clear(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
		case errors.Is(err, logicv1.ErrTokenInvalid), errors.Is(err, logicv1.ErrTokenRevoked):
			h.cookies.Clear(c)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		case errors.Is(err, logicv1.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
		}
		return
	}

	log.Info().Int64("user_id", session.User.ID).Msg("Session validated")
	c.JSON(http.StatusOK, session)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.service,
		"version":   h.version,
	})
}

// NotFound is the catch-all route listing the available endpoints.
func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "Not Found",
		"message": "Cannot " + c.Request.Method + " " + c.Request.URL.Path,
		"availableRoutes": []string{
			"GET /health",
			"POST /auth/sign-up",
			"POST /auth/sign-in/email",
			"POST /auth/sign-out",
			"GET /auth/get-session",
		},
	})
}

// extractToken pulls the session token from the Authorization header first
// (cross-domain callers) and falls back to the auth_token cookie.
func extractToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, bearerPrefix) {
		if tok := strings.TrimSpace(authHeader[len(bearerPrefix):]); tok != "" {
			return tok
		}
	}
	return cookies.Token(c)
}
