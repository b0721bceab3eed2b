package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/tasklane-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	CreateUser(name, email, password string) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	UpdateProfile(id string, name, email *string) (models.User, error)
	UpdateSettings(id string, patch SettingsPatch) (models.User, error)
	UpdatePassword(id, currentPassword, newPassword string) error
	SetAvatar(id, avatarURL string) (models.User, error)
	DeleteUser(id string) error
}

// SettingsPatch carries a shallow settings merge: nil fields keep their
// current value.
type SettingsPatch struct {
	DarkMode      *bool   `json:"darkMode"`
	Notifications *bool   `json:"notifications"`
	Language      *string `json:"language"`
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, name, email, password_hash, avatar, token_version, dark_mode, notifications, language, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Avatar,
		&user.TokenVersion, &user.Settings.DarkMode, &user.Settings.Notifications,
		&user.Settings.Language, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a single user by their email.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// CreateUser creates a new user with default settings, hashing their password.
// The email uniqueness check is the database constraint itself, so two
// concurrent registrations cannot both slip past it.
func (s *UserService) CreateUser(name, email, password string) (models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Settings:     models.DefaultSettings(),
	}

	stmt, err := s.db.Prepare("INSERT INTO users(id, name, email, password_hash, language) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(user.ID, user.Name, user.Email, user.PasswordHash, user.Settings.Language); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}

	return s.GetUserByID(user.ID)
}

// isUniqueViolation reports whether the driver error is a UNIQUE constraint
// failure. The only unique column in the schema is users.email.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AuthenticateUser verifies a user's credentials. Unknown email and wrong
// password produce the same error.
func (s *UserService) AuthenticateUser(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile updates a user's name and/or email. A nil field is left
// untouched. Changing the email to one held by another account fails.
func (s *UserService) UpdateProfile(id string, name, email *string) (models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	if email != nil && *email != user.Email {
		existing, err := s.GetUserByEmail(*email)
		if err == nil && existing.ID != id {
			return models.User{}, ErrDuplicateEmail
		} else if err != nil && err != ErrNotFound {
			return models.User{}, err
		}
		user.Email = *email
	}
	if name != nil && *name != "" {
		user.Name = *name
	}

	_, err = s.db.Exec("UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?",
		user.Name, user.Email, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return s.GetUserByID(id)
}

// UpdateSettings merges the patch shallowly into the user's stored settings.
func (s *UserService) UpdateSettings(id string, patch SettingsPatch) (models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}

	if patch.DarkMode != nil {
		user.Settings.DarkMode = *patch.DarkMode
	}
	if patch.Notifications != nil {
		user.Settings.Notifications = *patch.Notifications
	}
	if patch.Language != nil && *patch.Language != "" {
		user.Settings.Language = *patch.Language
	}

	_, err = s.db.Exec("UPDATE users SET dark_mode = ?, notifications = ?, language = ?, updated_at = ? WHERE id = ?",
		user.Settings.DarkMode, user.Settings.Notifications, user.Settings.Language, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(id)
}

// UpdatePassword verifies the current password, then hashes and sets a new
// one. The token version is bumped so every previously issued token stops
// verifying.
func (s *UserService) UpdatePassword(id, currentPassword, newPassword string) error {
	user, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.Exec("UPDATE users SET password_hash = ?, token_version = token_version + 1, updated_at = ? WHERE id = ?",
		string(hashedPassword), time.Now().UTC(), id)
	return err
}

// SetAvatar records the stored avatar image path for a user.
func (s *UserService) SetAvatar(id, avatarURL string) (models.User, error) {
	res, err := s.db.Exec("UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?", avatarURL, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, ErrNotFound
	}
	return s.GetUserByID(id)
}

// DeleteUser removes a user. Tasks, portfolio items, and events cascade.
func (s *UserService) DeleteUser(id string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
