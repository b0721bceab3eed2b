package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/models"
	"github.com/tasklane/tasklane-be/internal/uploads"
)

// PortfolioServiceProvider defines the interface for portfolio services.
type PortfolioServiceProvider interface {
	GetItems(userID string) ([]models.PortfolioItem, error)
	AddItem(userID, title, description, imageURL string) (models.PortfolioItem, error)
	UpdateItem(userID, itemID string, title, description *string, imageURL string) (models.PortfolioItem, error)
	DeleteItem(userID, itemID string) error
}

// PortfolioService manages a user's portfolio items and their image files.
type PortfolioService struct {
	db    *sql.DB
	store *uploads.Store // may be nil in tests
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(db *sql.DB, store *uploads.Store) *PortfolioService {
	return &PortfolioService{db: db, store: store}
}

// GetItems returns all portfolio items owned by the user, newest first.
func (s *PortfolioService) GetItems(userID string) ([]models.PortfolioItem, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, title, description, image_url, date FROM portfolio_items WHERE user_id = ? ORDER BY date DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PortfolioItem{}
	for rows.Next() {
		var item models.PortfolioItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.ImageURL, &item.Date); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddItem creates a new portfolio item. The image, if any, is already on disk.
func (s *PortfolioService) AddItem(userID, title, description, imageURL string) (models.PortfolioItem, error) {
	item := models.PortfolioItem{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		ImageURL:    imageURL,
		Date:        time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO portfolio_items (id, user_id, title, description, image_url, date) VALUES (?, ?, ?, ?, ?, ?)",
		item.ID, item.UserID, item.Title, item.Description, item.ImageURL, item.Date)
	if err != nil {
		return models.PortfolioItem{}, err
	}
	return item, nil
}

// GetItemByID retrieves one of the user's portfolio items.
func (s *PortfolioService) GetItemByID(userID, itemID string) (models.PortfolioItem, error) {
	var item models.PortfolioItem
	row := s.db.QueryRow(
		"SELECT id, user_id, title, description, image_url, date FROM portfolio_items WHERE id = ? AND user_id = ?",
		itemID, userID)
	err := row.Scan(&item.ID, &item.UserID, &item.Title, &item.Description, &item.ImageURL, &item.Date)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.PortfolioItem{}, ErrNotFound
		}
		return models.PortfolioItem{}, err
	}
	return item, nil
}

// UpdateItem edits a portfolio item. When a replacement image path is given,
// the previous file is removed from disk.
func (s *PortfolioService) UpdateItem(userID, itemID string, title, description *string, imageURL string) (models.PortfolioItem, error) {
	item, err := s.GetItemByID(userID, itemID)
	if err != nil {
		return models.PortfolioItem{}, err
	}

	if title != nil && *title != "" {
		item.Title = *title
	}
	if description != nil && *description != "" {
		item.Description = *description
	}
	if imageURL != "" {
		if item.ImageURL != "" && s.store != nil {
			if err := s.store.Remove(item.ImageURL); err != nil {
				log.Warn().Err(err).Str("path", item.ImageURL).Msg("Failed to remove replaced portfolio image")
			}
		}
		item.ImageURL = imageURL
	}

	_, err = s.db.Exec("UPDATE portfolio_items SET title = ?, description = ?, image_url = ? WHERE id = ? AND user_id = ?",
		item.Title, item.Description, item.ImageURL, itemID, userID)
	if err != nil {
		return models.PortfolioItem{}, err
	}
	return item, nil
}

// DeleteItem removes a portfolio item and its image file.
func (s *PortfolioService) DeleteItem(userID, itemID string) error {
	item, err := s.GetItemByID(userID, itemID)
	if err != nil {
		return err
	}

	res, err := s.db.Exec("DELETE FROM portfolio_items WHERE id = ? AND user_id = ?", itemID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if item.ImageURL != "" && s.store != nil {
		if err := s.store.Remove(item.ImageURL); err != nil {
			log.Warn().Err(err).Str("path", item.ImageURL).Msg("Failed to remove deleted portfolio image")
		}
	}
	return nil
}

// ReferencedImages collects every upload path still referenced by an avatar
// or a portfolio item. Used by the orphaned-file sweep.
func (s *PortfolioService) ReferencedImages() (map[string]bool, error) {
	referenced := make(map[string]bool)

	rows, err := s.db.Query("SELECT image_url FROM portfolio_items WHERE image_url != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		referenced[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	avatarRows, err := s.db.Query("SELECT avatar FROM users WHERE avatar != ''")
	if err != nil {
		return nil, err
	}
	defer avatarRows.Close()
	for avatarRows.Next() {
		var url string
		if err := avatarRows.Scan(&url); err != nil {
			return nil, err
		}
		referenced[url] = true
	}
	return referenced, avatarRows.Err()
}
