// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common authentication
// failures. These errors should be wrapped with context using
// fmt.Errorf("%w") when returned from business logic methods.
//
// Example Usage:
//
//	if user == nil {
//	    return nil, fmt.Errorf("authenticate user %q: %w", email, ErrUserNotFound)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
//	case errors.Is(err, logicv1.ErrUserNotFound):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned.
var (
	// ErrInvalidCredentials indicates the provided password is incorrect.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates the user does not exist in the system.
	// HTTP Status: 401 Unauthorized (don't reveal user existence)
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail indicates the email is already registered.
	// HTTP Status: 400 Bad Request, fixed message, no internal detail
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrTokenInvalid indicates the token is malformed or its signature
	// does not match the server secret.
	// HTTP Status: 401 Unauthorized, cookie cleared
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired indicates the token's exp claim is in the past.
	// HTTP Status: 401 Unauthorized, cookie cleared
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked indicates the token was revoked by a sign-out.
	// Only possible when the revocation set is enabled.
	// HTTP Status: 401 Unauthorized, cookie cleared
	ErrTokenRevoked = errors.New("token revoked")
)
