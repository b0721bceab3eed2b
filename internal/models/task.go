package models

import "time"

// Task priorities, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Task categories.
const (
	CategoryPersonal = "personal"
	CategoryWork     = "work"
	CategoryShopping = "shopping"
	CategoryHealth   = "health"
	CategoryOther    = "other"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryShopping, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// Task is a to-do item owned by exactly one user.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags"`
	IsStarred   bool       `json:"isStarred"`
	IsArchived  bool       `json:"isArchived"`
	Subtasks    []Subtask  `json:"subtasks,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Subtask is a checklist entry embedded in a task.
type Subtask struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"-"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskStats summarizes a user's tasks for the list endpoint.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Active    int `json:"active"`
}

// CategoryStat is one row of the per-category completion breakdown.
type CategoryStat struct {
	Category  string  `json:"category"`
	Count     int     `json:"count"`
	Completed int     `json:"completed"`
	Progress  float64 `json:"progress"` // completion percentage, 0-100
}
