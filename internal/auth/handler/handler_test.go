package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/auth/handler"
	"github.com/BitsOfPraneet/The-Gates/internal/identity"
	identitymem "github.com/BitsOfPraneet/The-Gates/internal/identity/memory"
	"github.com/BitsOfPraneet/The-Gates/internal/middleware"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
	profilemem "github.com/BitsOfPraneet/The-Gates/internal/profile/memory"
	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

type testEnv struct {
	router   *gin.Engine
	sessions *session.MemoryStore
	profiles *profilemem.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identitySvc := identitymem.NewService(identity.LogMailer{}, "http://localhost:8080", time.Hour)
	sessions := session.NewMemoryStore()
	profiles := profilemem.NewStore()

	h := handler.NewHandler(identitySvc, sessions, profiles, handler.Options{
		BootstrapTimeout: 50 * time.Millisecond,
		SessionTTL:       time.Hour,
	})

	router := gin.New()
	h.RegisterRoutes(router)

	auth := middleware.NewAuthMiddleware(sessions)
	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(auth))
	api.GET("/profile", h.GetProfile)
	api.PATCH("/profile", h.UpdateProfile)

	return &testEnv{router: router, sessions: sessions, profiles: profiles}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func (e *testEnv) register(t *testing.T, username, email, password string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func TestRegisterIssuesSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": "Raven",
		"email":    "coven@example.com",
		"password": "abcdef",
	}, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["status"]; got != "registered" {
		t.Fatalf("unexpected status %v", got)
	}

	cookie := sessionCookie(t, rec)
	if cookie.Value == "" {
		t.Fatal("session cookie is empty")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}

	sess, err := env.sessions.Get(context.Background(), cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session not persisted: %v, %v", sess, err)
	}

	p, err := env.profiles.Get(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if p.Bio != profile.DefaultBio {
		t.Fatalf("expected default bio, got %q", p.Bio)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"username": "Imposter",
		"email":    "coven@example.com",
		"password": "abcdef",
	}, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["reason"] != "email-already-claimed" {
		t.Fatalf("unexpected reason %v", body["reason"])
	}
	if body["error"] != "This spirit vessel is already claimed by another..." {
		t.Fatalf("unexpected message %v", body["error"])
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		body    gin.H
		message string
	}{
		{
			"missing name",
			gin.H{"username": " ", "email": "a@b.com", "password": "abcdef"},
			"A name is required to join the coven!",
		},
		{
			"bad email",
			gin.H{"username": "Raven", "email": "nope", "password": "abcdef"},
			"A valid spirit vessel (email) is required!",
		},
		{
			"short password",
			gin.H{"username": "Raven", "email": "a@b.com", "password": "abc"},
			"A more powerful incantation (password) is required! At least 6 characters.",
		},
	}

	for _, tc := range cases {
		rec := env.do(t, http.MethodPost, "/auth/register", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["reason"] != "validation" {
			t.Fatalf("%s: unexpected reason %v", tc.name, body["reason"])
		}
		if body["error"] != tc.message {
			t.Fatalf("%s: unexpected message %v", tc.name, body["error"])
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "coven@example.com",
		"password": "abcdef",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sessionCookie(t, rec)

	rec = env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "coven@example.com",
		"password": "wrongpass",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["reason"] != "wrong-credential" {
		t.Fatalf("unexpected reason %v", body["reason"])
	}
	if body["error"] != "The spirits reject this incantation..." {
		t.Fatalf("unexpected message %v", body["error"])
	}

	rec = env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "ghost@example.com",
		"password": "abcdef",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["reason"] != "unknown-account" {
		t.Fatalf("unexpected reason %v", body["reason"])
	}
}

func TestLogoutInvalidatesSessionAndClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	cleared := sessionCookie(t, rec)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", cleared)
	}

	sess, err := env.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess != nil {
		t.Fatal("session still present after logout")
	}

	// Logout without a session is idempotent.
	rec = env.do(t, http.MethodPost, "/auth/logout", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestGetProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/profile", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetProfileReturnsDocument(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodGet, "/api/profile", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["username"] != "Raven" {
		t.Fatalf("unexpected username %v", body["username"])
	}
	if body["bio"] != profile.DefaultBio {
		t.Fatalf("unexpected bio %v", body["bio"])
	}
	if pic, ok := body["profilePicture"]; !ok || pic != "" {
		t.Fatalf("expected empty profilePicture, got %v", pic)
	}
	if body["uid"] == "" {
		t.Fatal("missing uid")
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPatch, "/api/profile", gin.H{"username": "ab"}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short username, got %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "Your spirit name must be at least 3 characters!" {
		t.Fatalf("unexpected message %v", body["error"])
	}

	for _, age := range []string{"0", "151", "ancient"} {
		rec = env.do(t, http.MethodPatch, "/api/profile", gin.H{"age": age}, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for age %q, got %d", age, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Please enter a valid age between 1 and 150!" {
			t.Fatalf("unexpected message %v", body["error"])
		}
	}
}

func TestUpdateProfilePersistsChanges(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPatch, "/api/profile", gin.H{
		"username": "Nightshade",
		"bio":      "Keeper of the gates",
		"age":      "29",
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["message"] != "Your spirit profile has been updated!" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	rec = env.do(t, http.MethodGet, "/api/profile", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["username"] != "Nightshade" || body["bio"] != "Keeper of the gates" || body["age"] != "29" {
		t.Fatalf("changes not persisted: %v", body)
	}
	if body["email"] != "coven@example.com" {
		t.Fatalf("email must be untouched, got %v", body["email"])
	}
}

func TestStreamEmitsSessionEvents(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Raven", "coven@example.com", "abcdef")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/session/stream", nil).WithContext(ctx)
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event:session") {
		t.Fatalf("no session events in stream: %q", body)
	}
	if !strings.Contains(body, `"authenticated":true`) {
		t.Fatalf("bootstrap never reported authenticated: %q", body)
	}
}

func TestRequestReset(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Raven", "coven@example.com", "abcdef")

	rec := env.do(t, http.MethodPost, "/auth/reset", gin.H{"email": "coven@example.com"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "reset_sent" {
		t.Fatalf("unexpected status %v", body["status"])
	}
	if body["message"] != "A mystical message has been sent to your spirit vessel!" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"email": "ghost@example.com"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["reason"] != "unknown-account" {
		t.Fatalf("unexpected reason %v", body["reason"])
	}
}
