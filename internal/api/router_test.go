package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/config"
	"github.com/tasklane/tasklane-be/internal/database"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
	"github.com/tasklane/tasklane-be/internal/websocket"
)

// newTestRouter wires the full stack over an in-memory database.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	store, err := uploads.NewStore(t.TempDir())
	require.NoError(t, err)

	hub := websocket.NewHub()
	go hub.Run()
	tokens := auth.NewService("test-secret", 7*24*time.Hour)
	userSvc := services.NewUserService(db)
	eventSvc := services.NewEventService(db, hub)
	taskSvc := services.NewTaskService(db, eventSvc)
	portfolioSvc := services.NewPortfolioService(db, store)

	return NewRouter(Deps{
		Config:       &config.Config{Environment: "production", AllowedOrigins: []string{"*"}},
		Tokens:       tokens,
		UserSvc:      userSvc,
		TaskSvc:      taskSvc,
		PortfolioSvc: portfolioSvc,
		EventSvc:     eventSvc,
		Hub:          hub,
		Uploads:      store,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// register creates an account through the API and returns its token.
func register(t *testing.T, h http.Handler, name, email, password string) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestRouter(t)

	register(t, h, "Alice", "alice@example.com", "secret123")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Impostor", "email": "alice@example.com", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "email already in use", decodeBody(t, rec)["message"])

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["token"])

	// Wrong password and unknown email read identically to the caller
	wrongPw := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope",
	})
	unknown := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, wrongPw.Code)
	require.Equal(t, http.StatusBadRequest, unknown.Code)
	require.JSONEq(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/api/tasks", "/api/profile", "/api/events", "/api/portfolio"} {
		rec := doJSON(t, h, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.JSONEq(t, `{"message": "authentication required"}`, rec.Body.String(), path)
	}
}

func TestTaskLifecycle(t *testing.T) {
	h := newTestRouter(t)
	token := register(t, h, "Alice", "alice@example.com", "secret123")

	rec := doJSON(t, h, http.MethodPost, "/api/tasks", token, map[string]string{"text": "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decodeBody(t, rec)
	require.Equal(t, "buy milk", task["text"])
	require.Equal(t, false, task["completed"])
	require.Equal(t, "normal", task["priority"])
	require.Equal(t, "other", task["category"])
	id, _ := task["id"].(string)
	require.NotEmpty(t, id)

	rec = doJSON(t, h, http.MethodPut, "/api/tasks/"+id+"/star", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decodeBody(t, rec)["isStarred"])

	rec = doJSON(t, h, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeBody(t, rec)
	require.Len(t, listing["tasks"], 1)
	stats, _ := listing["stats"].(map[string]any)
	require.EqualValues(t, 1, stats["total"])
	require.EqualValues(t, 1, stats["active"])

	rec = doJSON(t, h, http.MethodDelete, "/api/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/tasks", token, nil)
	listing = decodeBody(t, rec)
	require.Empty(t, listing["tasks"])
}

func TestCrossUserAccessReadsAsNotFound(t *testing.T) {
	h := newTestRouter(t)
	aliceTok := register(t, h, "Alice", "alice@example.com", "secret123")
	bobTok := register(t, h, "Bob", "bob@example.com", "secret123")

	rec := doJSON(t, h, http.MethodPost, "/api/tasks", aliceTok, map[string]string{"text": "private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decodeBody(t, rec)["id"].(string)

	for _, probe := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/tasks/" + id, nil},
		{http.MethodPut, "/api/tasks/" + id, map[string]string{"text": "hijacked"}},
		{http.MethodDelete, "/api/tasks/" + id, nil},
		{http.MethodPut, "/api/tasks/" + id + "/star", nil},
	} {
		rec := doJSON(t, h, probe.method, probe.path, bobTok, probe.body)
		require.Equal(t, http.StatusNotFound, rec.Code, fmt.Sprintf("%s %s", probe.method, probe.path))
		require.JSONEq(t, `{"message": "task not found"}`, rec.Body.String())
	}

	// Alice still sees the task untouched
	rec = doJSON(t, h, http.MethodGet, "/api/tasks/"+id, aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "private", decodeBody(t, rec)["text"])
}

func TestPasswordChangeRevokesOldTokens(t *testing.T) {
	h := newTestRouter(t)
	oldToken := register(t, h, "Alice", "alice@example.com", "old-password")

	rec := doJSON(t, h, http.MethodGet, "/api/profile", oldToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/profile/change-password", oldToken, map[string]string{
		"currentPassword": "old-password", "newPassword": "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old token carries a stale version now
	rec = doJSON(t, h, http.MethodGet, "/api/profile", oldToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message": "authentication required"}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	fresh, _ := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, h, http.MethodGet, "/api/profile", fresh, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileUpdateAllowlist(t *testing.T) {
	h := newTestRouter(t)
	token := register(t, h, "Alice", "alice@example.com", "secret123")

	rec := doJSON(t, h, http.MethodPut, "/api/profile", token, map[string]any{
		"name": "Alice Cooper", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "field not allowed: role", decodeBody(t, rec)["message"])

	// A malformed field rejects the whole update; the valid name must not land
	rec = doJSON(t, h, http.MethodPut, "/api/profile", token, map[string]any{
		"name": "Mallory", "settings": "dark",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid settings", decodeBody(t, rec)["message"])

	rec = doJSON(t, h, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Alice", decodeBody(t, rec)["name"])

	rec = doJSON(t, h, http.MethodPut, "/api/profile", token, map[string]any{
		"name":     "Alice Cooper",
		"settings": map[string]any{"darkMode": true},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Equal(t, "Alice Cooper", body["name"])
	settings, _ := body["settings"].(map[string]any)
	require.Equal(t, true, settings["darkMode"])
	require.Equal(t, "ru", settings["language"])
}
