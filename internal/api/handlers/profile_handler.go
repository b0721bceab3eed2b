package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
)

// ProfileHandler handles the /api/profile endpoints: full profile reads,
// allowlisted updates, avatar upload, password change, account deletion.
type ProfileHandler struct {
	users     services.UserServiceProvider
	portfolio services.PortfolioServiceProvider
	store     *uploads.Store
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(users services.UserServiceProvider, portfolio services.PortfolioServiceProvider, store *uploads.Store) *ProfileHandler {
	return &ProfileHandler{users: users, portfolio: portfolio, store: store}
}

// Get returns the caller's full sanitized profile, portfolio included.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	items, err := h.portfolio.GetItems(current.ID)
	if err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        current.ID,
		"name":      current.Name,
		"email":     current.Email,
		"avatar":    current.Avatar,
		"settings":  current.Settings,
		"portfolio": items,
		"createdAt": current.CreatedAt,
		"updatedAt": current.UpdatedAt,
	})
}

// Update applies an allowlisted partial update (name, email, settings).
// Any other field in the body fails the whole request. The whole body is
// decoded and validated before the first write, so a malformed field can
// never leave a half-applied update behind.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	for key := range raw {
		switch key {
		case "name", "email", "settings":
		default:
			writeError(w, http.StatusBadRequest, "field not allowed: "+key, nil)
			return
		}
	}

	var name, email *string
	if b, ok := raw["name"]; ok {
		if err := json.Unmarshal(b, &name); err != nil {
			writeError(w, http.StatusBadRequest, "invalid name", err)
			return
		}
	}
	if b, ok := raw["email"]; ok {
		if err := json.Unmarshal(b, &email); err != nil {
			writeError(w, http.StatusBadRequest, "invalid email", err)
			return
		}
		if email != nil && !validEmail(*email) {
			writeError(w, http.StatusBadRequest, "invalid email address", nil)
			return
		}
	}

	var patch *services.SettingsPatch
	if b, ok := raw["settings"]; ok {
		patch = &services.SettingsPatch{}
		if err := json.Unmarshal(b, patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid settings", err)
			return
		}
	}

	user, err := h.users.UpdateProfile(current.ID, name, email)
	if err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	if patch != nil {
		user, err = h.users.UpdateSettings(current.ID, *patch)
		if err != nil {
			writeServiceError(w, err, "user not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

// UploadAvatar stores a new avatar image and records its path.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxFileSize+1024)
	if err := r.ParseMultipartForm(uploads.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form", err)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required", err)
		return
	}
	defer file.Close()

	avatarURL, err := h.store.Save(uploads.KindAvatar, file, header)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	user, err := h.users.SetAvatar(current.ID, avatarURL)
	if err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar": user.Avatar})
}

// ChangePassword verifies the current password and sets a new one. All
// previously issued tokens stop working: the stored token version is bumped
// and the auth middleware rejects stale versions.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if payload.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "new password is required", nil)
		return
	}

	if err := h.users.UpdatePassword(current.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		if err == services.ErrInvalidCredentials {
			writeError(w, http.StatusBadRequest, "current password is incorrect", nil)
			return
		}
		writeServiceError(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed, please sign in again"})
}

// DeleteAccount removes the caller's account. Tasks, portfolio items, and
// events cascade with it.
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	if err := h.users.DeleteUser(current.ID); err != nil {
		writeServiceError(w, err, "user not found")
		return
	}

	log.Info().Str("user_id", current.ID).Msg("Account deleted")
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}
