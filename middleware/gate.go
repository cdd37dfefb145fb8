package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/haletran/todo-auth-service/internal/core/domain"
	"github.com/haletran/todo-auth-service/internal/token"
	"github.com/haletran/todo-auth-service/internal/web/cookies"
)

const identityKey = "auth_identity"

// Default page paths the gate redirects between.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Verifier validates a raw cookie token. *token.Manager satisfies it.
type Verifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

// SessionGate protects page routes. It runs before any rendering and is a
// pure function of the cookie and the current time — no I/O.
//
// Outcomes per request:
//   - no cookie: redirect to the login page, carrying the requested path in
//     the redirect query parameter for post-login navigation.
//   - expired token: clear the cookie, redirect with expired=true so the
//     frontend can show a "session expired" banner.
//   - malformed token or bad signature: clear the cookie, redirect without
//     the expired marker.
//   - valid token: store the resolved identity on the context and continue.
func SessionGate(verify Verifier, policy cookies.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := cookies.Token(c)
		if tok == "" {
			c.Redirect(http.StatusFound, loginURL(c.Request.URL.Path, false))
			c.Abort()
			return
		}

		claims, err := verify.Verify(tok)
		if err != nil {
			policy.Clear(c)
			c.Redirect(http.StatusFound, loginURL(c.Request.URL.Path, errors.Is(err, token.ErrExpired)))
			c.Abort()
			return
		}

		c.Set(identityKey, domain.Identity{UserID: claims.UserID, Email: claims.Email})
		c.Next()
	}
}

// RedirectAuthenticated is the symmetric rule for the public auth pages
// (/login, /signup): a request bearing a valid token is sent to the
// dashboard; an invalid or expired token is cleared and the page proceeds.
func RedirectAuthenticated(verify Verifier, policy cookies.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := cookies.Token(c)
		if tok == "" {
			c.Next()
			return
		}

		if _, err := verify.Verify(tok); err != nil {
			policy.Clear(c)
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, DashboardPath)
		c.Abort()
	}
}

// IdentityFromContext returns the identity resolved by the session gate.
func IdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

func loginURL(requested string, expired bool) string {
	q := url.Values{}
	q.Set("redirect", requested)
	if expired {
		q.Set("expired", "true")
	}
	return LoginPath + "?" + q.Encode()
}
