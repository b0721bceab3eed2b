package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasklane/tasklane-be/internal/models"
)

// TaskServiceProvider defines the interface for task services. Every method
// that touches a task carries the owner's user ID: a task that exists but
// belongs to someone else is reported as ErrNotFound.
type TaskServiceProvider interface {
	ListTasks(userID string, opts TaskListOptions) ([]models.Task, models.TaskStats, error)
	CreateTask(userID string, params CreateTaskParams) (models.Task, error)
	GetTaskByID(userID, taskID string) (models.Task, error)
	UpdateTask(userID, taskID string, params UpdateTaskParams) (models.Task, error)
	DeleteTask(userID, taskID string) error
	BulkSetCompleted(userID string, taskIDs []string, completed bool) (int64, error)
	BulkSetCategory(userID string, taskIDs []string, category string) (int64, error)
	BulkDelete(userID string, taskIDs []string) (int64, error)
	AddSubtask(userID, taskID, text string) (models.Task, error)
	UpdateSubtask(userID, taskID, subtaskID string, text *string, completed *bool) (models.Task, error)
	AddTags(userID, taskID string, tags []string) (models.Task, error)
	ToggleStar(userID, taskID string) (models.Task, error)
	ToggleArchive(userID, taskID string) (models.Task, error)
	CategoryStats(userID string) ([]models.CategoryStat, error)
	DueToday(userID string) ([]models.Task, error)
}

// TaskListOptions control filtering, searching, and sorting of the task list.
type TaskListOptions struct {
	Search    string
	Status    string // "", "active", or "completed"
	SortBy    string // createdAt, updatedAt, dueDate, priority, text
	SortOrder string // "asc" or "desc" (default)
}

// CreateTaskParams carries the fields accepted at task creation.
type CreateTaskParams struct {
	Text        string     `json:"text"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
}

// UpdateTaskParams carries a partial task update: nil fields keep their
// current value.
type UpdateTaskParams struct {
	Text        *string    `json:"text"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	Priority    *string    `json:"priority"`
	Category    *string    `json:"category"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
}

// TaskService provides business logic for task management.
type TaskService struct {
	db       *sql.DB
	eventSvc EventServiceProvider // may be nil in tests
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB, eventSvc EventServiceProvider) *TaskService {
	return &TaskService{db: db, eventSvc: eventSvc}
}

const taskColumns = "id, user_id, text, description, completed, priority, category, due_date, tags_json, is_starred, is_archived, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var task models.Task
	var due sql.NullTime
	var tagsJSON string
	err := row.Scan(&task.ID, &task.UserID, &task.Text, &task.Description, &task.Completed,
		&task.Priority, &task.Category, &due, &tagsJSON, &task.IsStarred, &task.IsArchived,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	if due.Valid {
		t := due.Time
		task.DueDate = &t
	}
	if err := json.Unmarshal([]byte(tagsJSON), &task.Tags); err != nil || task.Tags == nil {
		task.Tags = []string{}
	}
	return task, nil
}

// sortColumn maps API sort keys to ORDER BY expressions. Anything outside the
// map falls back to creation time, which also keeps caller input out of the SQL.
func sortColumn(key string) string {
	switch key {
	case "updatedAt":
		return "updated_at"
	case "dueDate":
		return "due_date"
	case "text":
		return "text COLLATE NOCASE"
	case "priority":
		return priorityRank
	default:
		return "created_at"
	}
}

const priorityRank = "CASE priority WHEN 'urgent' THEN 3 WHEN 'high' THEN 2 WHEN 'normal' THEN 1 ELSE 0 END"

// ListTasks returns the user's tasks plus summary counters.
func (s *TaskService) ListTasks(userID string, opts TaskListOptions) ([]models.Task, models.TaskStats, error) {
	where := "user_id = ?"
	args := []any{userID}

	if opts.Search != "" {
		where += " AND LOWER(text) LIKE ?"
		args = append(args, "%"+strings.ToLower(opts.Search)+"%")
	}
	switch opts.Status {
	case "completed":
		where += " AND completed = 1"
	case "active":
		where += " AND completed = 0"
	}

	order := sortColumn(opts.SortBy)
	if strings.EqualFold(opts.SortOrder, "asc") {
		order += " ASC"
	} else {
		order += " DESC"
	}

	rows, err := s.db.Query("SELECT "+taskColumns+" FROM tasks WHERE "+where+" ORDER BY "+order, args...)
	if err != nil {
		return nil, models.TaskStats{}, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, models.TaskStats{}, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, models.TaskStats{}, err
	}

	var stats models.TaskStats
	row := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM tasks WHERE user_id = ?", userID)
	if err := row.Scan(&stats.Total, &stats.Completed); err != nil {
		return nil, models.TaskStats{}, err
	}
	stats.Active = stats.Total - stats.Completed

	return tasks, stats, nil
}

// CreateTask creates a new task for the user, applying the documented defaults.
func (s *TaskService) CreateTask(userID string, params CreateTaskParams) (models.Task, error) {
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return models.Task{}, fmt.Errorf("%w: text is required", ErrValidation)
	}

	priority := params.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !models.ValidPriority(priority) {
		return models.Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, priority)
	}

	category := params.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !models.ValidCategory(category) {
		return models.Task{}, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}

	tagsJSON, err := marshalTags(params.Tags)
	if err != nil {
		return models.Task{}, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO tasks (id, user_id, text, description, priority, category, due_date, tags_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, userID, text, strings.TrimSpace(params.Description), priority, category, params.DueDate, tagsJSON)
	if err != nil {
		return models.Task{}, err
	}

	s.logEvent(userID, "task.created", "Task created: "+text)
	return s.GetTaskByID(userID, id)
}

// GetTaskByID retrieves one of the user's tasks, subtasks included.
func (s *TaskService) GetTaskByID(userID, taskID string) (models.Task, error) {
	row := s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	task, err := scanTask(row)
	if err != nil {
		return models.Task{}, err
	}

	subtasks, err := s.subtasksFor(taskID)
	if err != nil {
		return models.Task{}, err
	}
	task.Subtasks = subtasks
	return task, nil
}

// UpdateTask applies a partial update to one of the user's tasks.
func (s *TaskService) UpdateTask(userID, taskID string, params UpdateTaskParams) (models.Task, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if params.Text != nil {
		text := strings.TrimSpace(*params.Text)
		if text == "" {
			return models.Task{}, fmt.Errorf("%w: text cannot be empty", ErrValidation)
		}
		set = append(set, "text = ?")
		args = append(args, text)
	}
	if params.Description != nil {
		set = append(set, "description = ?")
		args = append(args, strings.TrimSpace(*params.Description))
	}
	if params.Completed != nil {
		set = append(set, "completed = ?")
		args = append(args, *params.Completed)
	}
	if params.Priority != nil {
		if !models.ValidPriority(*params.Priority) {
			return models.Task{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, *params.Priority)
		}
		set = append(set, "priority = ?")
		args = append(args, *params.Priority)
	}
	if params.Category != nil {
		if !models.ValidCategory(*params.Category) {
			return models.Task{}, fmt.Errorf("%w: unknown category %q", ErrValidation, *params.Category)
		}
		set = append(set, "category = ?")
		args = append(args, *params.Category)
	}
	if params.DueDate != nil {
		set = append(set, "due_date = ?", "due_notified = 0")
		args = append(args, *params.DueDate)
	}
	if params.Tags != nil {
		tagsJSON, err := marshalTags(params.Tags)
		if err != nil {
			return models.Task{}, err
		}
		set = append(set, "tags_json = ?")
		args = append(args, tagsJSON)
	}

	args = append(args, taskID, userID)
	res, err := s.db.Exec("UPDATE tasks SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return models.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Task{}, ErrNotFound
	}

	s.logEvent(userID, "task.updated", "Task updated")
	return s.GetTaskByID(userID, taskID)
}

// DeleteTask removes one of the user's tasks. Subtasks cascade.
func (s *TaskService) DeleteTask(userID, taskID string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.logEvent(userID, "task.deleted", "Task deleted")
	return nil
}

// BulkSetCompleted sets the completion flag on the given tasks, scoped to the
// owner. IDs belonging to other users are silently skipped.
func (s *TaskService) BulkSetCompleted(userID string, taskIDs []string, completed bool) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	query := "UPDATE tasks SET completed = ?, updated_at = ? WHERE user_id = ? AND id IN (" + placeholders(len(taskIDs)) + ")"
	args := append([]any{completed, time.Now().UTC(), userID}, toAnySlice(taskIDs)...)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BulkSetCategory moves the given tasks to a new category, scoped to the owner.
func (s *TaskService) BulkSetCategory(userID string, taskIDs []string, category string) (int64, error) {
	if !models.ValidCategory(category) {
		return 0, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	if len(taskIDs) == 0 {
		return 0, nil
	}
	query := "UPDATE tasks SET category = ?, updated_at = ? WHERE user_id = ? AND id IN (" + placeholders(len(taskIDs)) + ")"
	args := append([]any{category, time.Now().UTC(), userID}, toAnySlice(taskIDs)...)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BulkDelete removes the given tasks, scoped to the owner.
func (s *TaskService) BulkDelete(userID string, taskIDs []string) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	query := "DELETE FROM tasks WHERE user_id = ? AND id IN (" + placeholders(len(taskIDs)) + ")"
	args := append([]any{userID}, toAnySlice(taskIDs)...)
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddSubtask appends a checklist entry to one of the user's tasks.
func (s *TaskService) AddSubtask(userID, taskID, text string) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, fmt.Errorf("%w: subtask text is required", ErrValidation)
	}
	if _, err := s.GetTaskByID(userID, taskID); err != nil {
		return models.Task{}, err
	}

	_, err := s.db.Exec("INSERT INTO subtasks (id, task_id, text) VALUES (?, ?, ?)",
		uuid.New().String(), taskID, text)
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTaskByID(userID, taskID)
}

// UpdateSubtask edits a checklist entry addressed by (task, subtask), both
// scoped to the owner.
func (s *TaskService) UpdateSubtask(userID, taskID, subtaskID string, text *string, completed *bool) (models.Task, error) {
	if _, err := s.GetTaskByID(userID, taskID); err != nil {
		return models.Task{}, err
	}

	set := []string{}
	args := []any{}
	if text != nil && strings.TrimSpace(*text) != "" {
		set = append(set, "text = ?")
		args = append(args, strings.TrimSpace(*text))
	}
	if completed != nil {
		set = append(set, "completed = ?")
		args = append(args, *completed)
	}
	if len(set) == 0 {
		return s.GetTaskByID(userID, taskID)
	}

	args = append(args, subtaskID, taskID)
	res, err := s.db.Exec("UPDATE subtasks SET "+strings.Join(set, ", ")+" WHERE id = ? AND task_id = ?", args...)
	if err != nil {
		return models.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Task{}, ErrNotFound
	}
	return s.GetTaskByID(userID, taskID)
}

// AddTags merges new tags into the task's tag set, dropping duplicates.
func (s *TaskService) AddTags(userID, taskID string, tags []string) (models.Task, error) {
	task, err := s.GetTaskByID(userID, taskID)
	if err != nil {
		return models.Task{}, err
	}

	seen := make(map[string]bool, len(task.Tags))
	merged := task.Tags
	for _, t := range task.Tags {
		seen[t] = true
	}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}

	tagsJSON, err := marshalTags(merged)
	if err != nil {
		return models.Task{}, err
	}
	_, err = s.db.Exec("UPDATE tasks SET tags_json = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		tagsJSON, time.Now().UTC(), taskID, userID)
	if err != nil {
		return models.Task{}, err
	}
	return s.GetTaskByID(userID, taskID)
}

// ToggleStar flips the starred flag on one of the user's tasks.
func (s *TaskService) ToggleStar(userID, taskID string) (models.Task, error) {
	return s.toggleFlag(userID, taskID, "is_starred")
}

// ToggleArchive flips the archived flag on one of the user's tasks.
func (s *TaskService) ToggleArchive(userID, taskID string) (models.Task, error) {
	return s.toggleFlag(userID, taskID, "is_archived")
}

func (s *TaskService) toggleFlag(userID, taskID, column string) (models.Task, error) {
	res, err := s.db.Exec("UPDATE tasks SET "+column+" = 1 - "+column+", updated_at = ? WHERE id = ? AND user_id = ?",
		time.Now().UTC(), taskID, userID)
	if err != nil {
		return models.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Task{}, ErrNotFound
	}
	return s.GetTaskByID(userID, taskID)
}

// CategoryStats returns per-category counts with a completion percentage.
func (s *TaskService) CategoryStats(userID string) ([]models.CategoryStat, error) {
	rows, err := s.db.Query(
		"SELECT category, COUNT(*), COALESCE(SUM(completed), 0) FROM tasks WHERE user_id = ? GROUP BY category",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.CategoryStat{}
	for rows.Next() {
		var st models.CategoryStat
		if err := rows.Scan(&st.Category, &st.Count, &st.Completed); err != nil {
			return nil, err
		}
		if st.Count > 0 {
			st.Progress = float64(st.Completed) / float64(st.Count) * 100
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DueToday returns the user's tasks due today, highest priority first.
func (s *TaskService) DueToday(userID string) ([]models.Task, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	rows, err := s.db.Query(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND due_date >= ? AND due_date < ? ORDER BY "+priorityRank+" DESC",
		userID, today, tomorrow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DueSoon returns unfinished, unarchived tasks across all users whose due
// date falls within the window and that have not yet been flagged. Used by
// the background reminder job.
func (s *TaskService) DueSoon(within time.Duration) ([]models.Task, error) {
	now := time.Now()
	rows, err := s.db.Query(
		"SELECT "+taskColumns+" FROM tasks WHERE completed = 0 AND is_archived = 0 AND due_notified = 0 AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ?",
		now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkDueNotified flags tasks so the reminder job does not repeat itself.
func (s *TaskService) MarkDueNotified(taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec("UPDATE tasks SET due_notified = 1 WHERE id IN ("+placeholders(len(taskIDs))+")",
		toAnySlice(taskIDs)...)
	return err
}

func (s *TaskService) logEvent(userID, eventType, message string) {
	if s.eventSvc == nil {
		return
	}
	if err := s.eventSvc.CreateEvent(userID, eventType, "info", message); err != nil {
		// Activity logging is best effort; the task mutation already landed.
		return
	}
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	trimmed := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			trimmed = append(trimmed, t)
		}
	}
	b, err := json.Marshal(trimmed)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *TaskService) subtasksFor(taskID string) ([]models.Subtask, error) {
	rows, err := s.db.Query("SELECT id, task_id, text, completed, created_at FROM subtasks WHERE task_id = ? ORDER BY created_at", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subtasks []models.Subtask
	for rows.Next() {
		var st models.Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Text, &st.Completed, &st.CreatedAt); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
