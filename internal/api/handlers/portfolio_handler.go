package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
)

// PortfolioHandler handles the /api/portfolio endpoints. Create and update
// accept multipart forms because they can carry an image file.
type PortfolioHandler struct {
	service services.PortfolioServiceProvider
	store   *uploads.Store
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(service services.PortfolioServiceProvider, store *uploads.Store) *PortfolioHandler {
	return &PortfolioHandler{service: service, store: store}
}

// List returns all of the caller's portfolio items.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	items, err := h.service.GetItems(current.ID)
	if err != nil {
		writeServiceError(w, err, "portfolio item not found")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create adds a new portfolio item with an optional image.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	imageURL, ok := h.saveImageIfPresent(w, r)
	if !ok {
		return
	}

	item, err := h.service.AddItem(current.ID, r.FormValue("title"), r.FormValue("description"), imageURL)
	if err != nil {
		writeServiceError(w, err, "portfolio item not found")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update edits a portfolio item; a new image replaces and removes the old file.
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	imageURL, ok := h.saveImageIfPresent(w, r)
	if !ok {
		return
	}

	var title, description *string
	if v := r.FormValue("title"); v != "" {
		title = &v
	}
	if v := r.FormValue("description"); v != "" {
		description = &v
	}

	item, err := h.service.UpdateItem(current.ID, chi.URLParam(r, "id"), title, description, imageURL)
	if err != nil {
		writeServiceError(w, err, "portfolio item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete removes a portfolio item together with its image file.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	current, _ := auth.UserFromContext(r.Context())

	if err := h.service.DeleteItem(current.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "portfolio item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "portfolio item deleted"})
}

// saveImageIfPresent parses the multipart form and stores the "image" file
// when one was sent. Returns ok=false after writing an error response.
func (h *PortfolioHandler) saveImageIfPresent(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxFileSize+64<<10)
	if err := r.ParseMultipartForm(uploads.MaxFileSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form", err)
		return "", false
	}

	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return "", true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload", err)
		return "", false
	}
	defer file.Close()

	imageURL, err := h.store.Save(uploads.KindPortfolio, file, header)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return "", false
	}
	return imageURL, true
}
