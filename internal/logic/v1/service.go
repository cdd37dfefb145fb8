package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/haletran/todo-auth-service/internal/core/domain"
	"github.com/haletran/todo-auth-service/internal/logger"
	"github.com/haletran/todo-auth-service/internal/revocation"
	"github.com/haletran/todo-auth-service/internal/token"
	"github.com/haletran/todo-auth-service/middleware"
)

// bcryptCost matches the salt rounds the original deployment hashed with, so
// existing password hashes keep verifying.
const bcryptCost = 12

// AuthService implements authentication business rules.
// It depends on the repository interface and the token manager (injected via
// constructor) and MUST NOT access the database or SQL directly.
type AuthService struct {
	users   domain.UserRepository
	tokens  *token.Manager
	revoked revocation.Store
}

// AuthResult pairs the authenticated user with a freshly issued token.
// The web layer turns the token into the auth_token cookie.
type AuthResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(users domain.UserRepository, tokens *token.Manager, revoked revocation.Store) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
	}
}

// SignUp creates an account and issues a token so the user is signed in
// immediately. The email is stored exactly as provided.
func (s *AuthService) SignUp(ctx context.Context, req domain.SignUpRequest) (*AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.sign_up", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", req.Email),
	))
	defer span.End()

	// Friendly pre-check; the unique index on users.email is what actually
	// decides concurrent signups for the same address.
	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("signup.success", false))
		return nil, fmt.Errorf("sign up %q: %w", req.Email, ErrDuplicateEmail)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.users.Create(ctx, req.Email, string(passwordHash), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			// Lost the race at the unique index.
			span.SetAttributes(attribute.Bool("signup.success", false))
			return nil, fmt.Errorf("sign up %q: %w", req.Email, ErrDuplicateEmail)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	result, err := s.issue(userID, req.Email, req.Name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Bool("signup.success", true),
	)
	span.AddEvent("user.registered")

	return result, nil
}

// SignIn verifies credentials and issues a token. Unknown email and wrong
// password both come back as 401-mapped errors with an identical message at
// the HTTP boundary, to avoid user enumeration.
func (s *AuthService) SignIn(ctx context.Context, req domain.SignInRequest) (*AuthResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.sign_in", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("email", req.Email),
	))
	defer span.End()

	row, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", req.Email, err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Email, ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Email, ErrInvalidCredentials)
	}

	// Touch updated_at (best-effort, don't fail login)
	if touchErr := s.users.TouchUpdated(ctx, row.ID); touchErr != nil {
		span.RecordError(fmt.Errorf("touch updated_at: %w", touchErr))
	}

	result, err := s.issue(row.ID, row.Email, row.Name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return result, nil
}

// Session validates the presented token and resolves it to the current user
// (for GET /auth/get-session).
func (s *AuthService) Session(ctx context.Context, tokenStr string) (*domain.SessionResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.get_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	claims, err := s.verify(ctx, tokenStr)
	if err != nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, err
	}

	row, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %d: %w", claims.UserID, err)
	}
	if row == nil {
		// Token outlived the account.
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("resolve user %d: %w", claims.UserID, ErrUserNotFound)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	span.SetAttributes(
		attribute.Int64("user.id", row.ID),
		attribute.Bool("session.valid", true),
	)

	return &domain.SessionResponse{
		User: domain.User{ID: row.ID, Email: row.Email, Name: row.Name},
		Session: domain.SessionInfo{
			Token:     tokenStr,
			ExpiresAt: expiresAt,
		},
	}, nil
}

// SignOut revokes the presented token when the revocation set is enabled.
// Logout always succeeds: the cookie is cleared by the web layer regardless,
// and a stateless token that cannot be revoked simply runs out its expiry.
func (s *AuthService) SignOut(ctx context.Context, tokenStr string) {
	ctx, span := middleware.StartSpan(ctx, "auth.sign_out", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if tokenStr == "" {
		return
	}

	claims, err := s.tokens.Verify(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		// Nothing worth revoking.
		return
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Token revocation failed")
	}
}

// issue mints a token and assembles the AuthResult.
func (s *AuthService) issue(userID int64, email string, name *string) (*AuthResult, error) {
	tok, err := s.tokens.Issue(userID, email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{
		User:      domain.User{ID: userID, Email: email, Name: name},
		Token:     tok,
		ExpiresAt: time.Now().Add(s.tokens.TTL()),
	}, nil
}

// verify maps token-layer failures onto the logic sentinels and consults the
// revocation set.
func (s *AuthService) verify(ctx context.Context, tokenStr string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, fmt.Errorf("verify token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", ErrTokenInvalid)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", ErrTokenRevoked)
	}

	return claims, nil
}
