package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/haletran/todo-auth-service/internal/core/domain"
	logicv1 "github.com/haletran/todo-auth-service/internal/logic/v1"
	"github.com/haletran/todo-auth-service/internal/revocation"
	"github.com/haletran/todo-auth-service/internal/token"
	"github.com/haletran/todo-auth-service/internal/web/cookies"
)

const testSecret = "handler-test-secret"

type fakeUsers struct {
	byEmail map[string]*domain.UserRow
	byID    map[int64]*domain.UserRow
	nextID  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byEmail: make(map[string]*domain.UserRow),
		byID:    make(map[int64]*domain.UserRow),
		nextID:  1,
	}
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*domain.UserRow, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) Create(ctx context.Context, email, passwordHash string, name *string) (int64, error) {
	if _, ok := f.byEmail[email]; ok {
		return 0, domain.ErrDuplicateEmail
	}
	row := &domain.UserRow{ID: f.nextID, Email: email, PasswordHash: passwordHash, Name: name}
	f.nextID++
	f.byEmail[email] = row
	f.byID[row.ID] = row
	return row.ID, nil
}

func (f *fakeUsers) TouchUpdated(ctx context.Context, id int64) error { return nil }

func (f *fakeUsers) seed(t *testing.T, email, password string, name *string) *domain.UserRow {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	id, err := f.Create(context.Background(), email, string(hash), name)
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}
	return f.byID[id]
}

func newTestRouter(t *testing.T, users domain.UserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := token.NewManager(testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	auth := logicv1.NewAuthService(users, tokens, revocation.Noop{})
	handler := NewHandler(auth, cookies.Policy{MaxAge: 900, Secure: false}, "todo-auth-service", "test")

	r := gin.New()
	handler.RegisterRoutes(&r.RouterGroup)
	r.GET("/health", handler.Health)
	r.NoRoute(handler.NotFound)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func authCookie(t *testing.T, resp *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == cookies.Name {
			return c
		}
	}
	return nil
}

func TestSignUp_SetsCookieWithPolicy(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	resp := doJSON(t, r, http.MethodPost, "/auth/sign-up",
		map[string]string{"email": "a@b.com", "password": "password123", "name": "A"}, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body domain.AuthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if body.User.Email != "a@b.com" || body.User.Name == nil || *body.User.Name != "A" {
		t.Fatalf("unexpected user: %+v", body.User)
	}

	cookie := authCookie(t, resp)
	if cookie == nil {
		t.Fatal("expected auth_token cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie SameSite: got %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Fatalf("cookie Path: got %q, want /", cookie.Path)
	}
	if cookie.MaxAge != 900 {
		t.Fatalf("cookie Max-Age: got %d, want 900", cookie.MaxAge)
	}
	if cookie.Secure {
		t.Fatal("cookie must not be Secure outside production")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	users := newFakeUsers()
	users.seed(t, "a@b.com", "password123", nil)
	r := newTestRouter(t, users)

	resp := doJSON(t, r, http.MethodPost, "/auth/sign-up",
		map[string]string{"email": "a@b.com", "password": "other"}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("User already exists")) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestSignUp_MissingFields(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	for _, payload := range []map[string]string{
		{},
		{"email": "a@b.com"},
		{"password": "x"},
	} {
		resp := doJSON(t, r, http.MethodPost, "/auth/sign-up", payload, nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: expected 400, got %d", payload, resp.Code)
		}
	}
}

func TestSignIn_SuccessAndSessionRoundtrip(t *testing.T) {
	users := newFakeUsers()
	name := "A"
	users.seed(t, "a@b.com", "password123", &name)
	r := newTestRouter(t, users)

	resp := doJSON(t, r, http.MethodPost, "/auth/sign-in/email",
		map[string]string{"email": "a@b.com", "password": "password123"}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	cookie := authCookie(t, resp)
	if cookie == nil {
		t.Fatal("expected auth_token cookie")
	}

	sessionResp := doJSON(t, r, http.MethodGet, "/auth/get-session", nil, func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if sessionResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", sessionResp.Code, sessionResp.Body.String())
	}

	var session domain.SessionResponse
	if err := json.Unmarshal(sessionResp.Body.Bytes(), &session); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if session.User.Email != "a@b.com" || session.User.Name == nil || *session.User.Name != "A" {
		t.Fatalf("unexpected session user: %+v", session.User)
	}
	if session.Session.Token != cookie.Value {
		t.Fatal("session token must match the cookie")
	}
	if until := time.Until(session.Session.ExpiresAt); until <= 0 || until > 15*time.Minute {
		t.Fatalf("expires_at out of range: %v", session.Session.ExpiresAt)
	}
}

func TestSignIn_IdenticalMessageForUnknownEmailAndWrongPassword(t *testing.T) {
	users := newFakeUsers()
	users.seed(t, "a@b.com", "password123", nil)
	r := newTestRouter(t, users)

	wrongPassword := doJSON(t, r, http.MethodPost, "/auth/sign-in/email",
		map[string]string{"email": "a@b.com", "password": "nope"}, nil)
	unknownEmail := doJSON(t, r, http.MethodPost, "/auth/sign-in/email",
		map[string]string{"email": "nobody@b.com", "password": "nope"}, nil)

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("bodies must not reveal which emails exist: %q vs %q",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestSignOut_ClearsCookie(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	resp := doJSON(t, r, http.MethodPost, "/auth/sign-out", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	cookie := authCookie(t, resp)
	if cookie == nil {
		t.Fatal("expected clearing auth_token cookie")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: value=%q max-age=%d", cookie.Value, cookie.MaxAge)
	}
	if cookie.Path != "/" || !cookie.HttpOnly {
		t.Fatal("clearing cookie must reuse the set attributes")
	}
}

func TestGetSession_NoToken(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	resp := doJSON(t, r, http.MethodGet, "/auth/get-session", nil, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestGetSession_ExpiredTokenClearsCookie(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	expired := signTestToken(t, testSecret, jwt.MapClaims{
		"user_id": int64(1),
		"email":   "a@b.com",
		"exp":     time.Now().Add(-time.Second).Unix(),
	})

	resp := doJSON(t, r, http.MethodGet, "/auth/get-session", nil, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: cookies.Name, Value: expired})
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("Token expired")) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}

	cookie := authCookie(t, resp)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatal("expired token must clear the cookie")
	}
}

func TestGetSession_BearerHeaderBeatsCookie(t *testing.T) {
	users := newFakeUsers()
	users.seed(t, "a@b.com", "password123", nil)
	r := newTestRouter(t, users)

	login := doJSON(t, r, http.MethodPost, "/auth/sign-in/email",
		map[string]string{"email": "a@b.com", "password": "password123"}, nil)
	cookie := authCookie(t, login)
	if cookie == nil {
		t.Fatal("expected auth_token cookie")
	}

	resp := doJSON(t, r, http.MethodGet, "/auth/get-session", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+cookie.Value)
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestNotFound_ListsRoutes(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	resp := doJSON(t, r, http.MethodGet, "/nope", nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("availableRoutes")) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, newFakeUsers())

	resp := doJSON(t, r, http.MethodGet, "/health", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("healthy")) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	return tok
}
