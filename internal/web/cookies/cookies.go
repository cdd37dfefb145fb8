// Package cookies centralizes the auth_token cookie policy. Every write and
// every clear goes through the same Policy so the attributes always match —
// browsers only delete a cookie when the clearing attributes equal the
// setting ones.
package cookies

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Name is the session cookie carrying the signed token.
const Name = "auth_token"

// Policy holds the client-side storage rules for the token.
type Policy struct {
	// MaxAge is the cookie lifetime in seconds; it must equal the token TTL.
	MaxAge int
	// Secure is set in production deployments only, so local HTTP
	// development keeps working.
	Secure bool
}

// Set attaches the token to the response under the session cookie policy:
// HttpOnly, SameSite=Lax, Path=/.
func (p Policy) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(Name, token, p.MaxAge, "/", "", p.Secure, true)
}

// Clear deletes the session cookie using the exact attributes Set used.
func (p Policy) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(Name, "", -1, "/", "", p.Secure, true)
}

// Token reads the session cookie, returning an empty string when absent.
func Token(c *gin.Context) string {
	v, err := c.Cookie(Name)
	if err != nil {
		return ""
	}
	return v
}
