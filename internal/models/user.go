package models

import "time"

// Settings holds per-user UI preferences embedded in the user record.
type Settings struct {
	DarkMode      bool   `json:"darkMode"`
	Notifications bool   `json:"notifications"`
	Language      string `json:"language"`
}

// DefaultSettings returns the settings assigned to a freshly registered user.
func DefaultSettings() Settings {
	return Settings{
		DarkMode:      false,
		Notifications: true,
		Language:      "ru",
	}
}

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Avatar       string    `json:"avatar,omitempty"`
	TokenVersion int       `json:"-"` // Bumped on password change; stale tokens are rejected
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PortfolioItem is a media item owned by a user. It has no lifecycle of
// its own: deleting the user deletes its portfolio.
type PortfolioItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Date        time.Time `json:"date"`
}
