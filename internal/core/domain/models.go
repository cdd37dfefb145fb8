package domain

import "time"

// User is the public representation of an account, returned by every
// auth endpoint. The password hash never leaves the repository layer.
type User struct {
	ID    int64   `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Identity is the resolved subject of a verified token. The session gate
// stores it on the request context for downstream handlers.
type Identity struct {
	UserID int64
	Email  string
}

// SignUpRequest is the payload for POST /auth/sign-up.
type SignUpRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Name     *string `json:"name"`
}

// SignInRequest is the payload for POST /auth/sign-in/email.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful signup and login. The token itself
// travels in the auth_token cookie, not in the body.
type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// SessionInfo describes the current token for GET /auth/get-session.
type SessionInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse is returned by GET /auth/get-session.
type SessionResponse struct {
	User    User        `json:"user"`
	Session SessionInfo `json:"session"`
}
