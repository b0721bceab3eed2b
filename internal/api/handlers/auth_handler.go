package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/services"
)

// AuthHandler handles registration, login, and the authenticated
// profile/settings endpoints under /api/auth.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens *auth.Service) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Register handles new user registration and signs the first token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required", nil)
		return
	}
	if !validEmail(payload.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address", nil)
		return
	}

	user, err := h.users.CreateUser(payload.Name, payload.Email, payload.Password)
	if err != nil {
		if err != services.ErrDuplicateEmail {
			log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		}
		writeServiceError(w, err, "user not found")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  userSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

// Login handles user authentication and token issuance. Unknown email and
// wrong password produce the same 400 so accounts can't be enumerated.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required", nil)
		return
	}

	user, err := h.users.AuthenticateUser(payload.Email, payload.Password)
	if err != nil {
		if err != services.ErrInvalidCredentials {
			log.Error().Err(err).Msg("Login failed")
		}
		writeServiceError(w, err, "user not found")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

// UpdateProfile handles PUT /api/auth/profile: a partial name/email change
// followed by a token refresh.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var payload struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if payload.Email != nil && !validEmail(*payload.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address", nil)
		return
	}

	user, err := h.users.UpdateProfile(current.ID, payload.Name, payload.Email)
	if err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// UpdateSettings handles PUT /api/auth/settings: a shallow merge into the
// user's stored settings.
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var payload struct {
		Settings services.SettingsPatch `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	user, err := h.users.UpdateSettings(current.ID, payload.Settings)
	if err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"settings": user.Settings,
	})
}
