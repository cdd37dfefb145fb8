package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return m
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "super-secret")

	tok, err := m.Issue(42, "a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id mismatch: got %d want 42", claims.UserID)
	}
	if claims.Email != "a@b.com" {
		t.Fatalf("email mismatch: got %q", claims.Email)
	}
	if claims.Subject != "42" {
		t.Fatalf("sub mismatch: got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected non-empty jti")
	}

	wantExp := time.Now().Add(15 * time.Minute)
	if d := claims.ExpiresAt.Sub(wantExp); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("exp out of range: %v", claims.ExpiresAt.Time)
	}
}

func TestIssue_TokensAreDistinct(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "super-secret")

	first, err := m.Issue(1, "a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	second, err := m.Issue(1, "a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if first == second {
		t.Fatal("two tokens for the same user must differ")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")
	tok, err := m.Issue(1, "u@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// Advance the manager clock past the 15-minute lifetime.
	m.now = func() time.Time { return time.Now().Add(15*time.Minute + 1*time.Second) }

	if _, err := m.Verify(tok); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_ExpInPast(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")
	m.now = func() time.Time { return time.Now().Add(-time.Second - 15*time.Minute) }
	tok, err := m.Issue(1, "u@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(tok); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestManager(t, "right-secret").Issue(2, "u@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := newTestManager(t, "wrong-secret").Verify(tok); err != ErrSignature {
		t.Fatalf("expected ErrSignature, got %v", err)
	}
}

func TestVerify_MutatedPayload(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")
	tok, err := m.Issue(3, "u@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}

	// Flip one byte of the payload; the signature no longer matches.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	mutated := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := m.Verify(mutated); err == nil {
		t.Fatal("expected verification failure for mutated payload")
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")
	for _, tok := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := m.Verify(tok); err != ErrMalformed {
			t.Fatalf("token %q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_NoExpiryClaimIsAccepted(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")

	// Tokens without exp verify forever. Documented laxity, kept on purpose.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		Email:  "forever@example.com",
	})
	tok, err := raw.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("user id mismatch: got %d", claims.UserID)
	}
}

func TestVerify_RejectsUnexpectedAlgorithm(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, "secret")

	raw := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 9})
	tok, err := raw.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, err := m.Verify(tok); err == nil {
		t.Fatal("expected rejection of alg=none token")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewManager("", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewManager("s", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
