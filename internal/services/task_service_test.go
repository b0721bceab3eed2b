package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tasklane/tasklane-be/internal/models"
)

func newTaskFixture(t *testing.T) (*UserService, *TaskService, models.User, models.User) {
	t.Helper()
	db := newTestDB(t)
	users := NewUserService(db)
	tasks := NewTaskService(db, nil)

	a, err := users.CreateUser("A", "a@x.com", "p")
	require.NoError(t, err)
	b, err := users.CreateUser("B", "b@x.com", "p")
	require.NoError(t, err)
	return users, tasks, a, b
}

func TestCreateTask_Defaults(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	task, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "  buy milk  "})
	require.NoError(t, err)
	require.Equal(t, "buy milk", task.Text)
	require.False(t, task.Completed)
	require.Equal(t, models.PriorityNormal, task.Priority)
	require.Equal(t, models.CategoryOther, task.Category)
	require.Empty(t, task.Tags)
	require.False(t, task.IsStarred)
	require.Nil(t, task.DueDate)
}

func TestCreateTask_Validation(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	_, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "   "})
	require.ErrorIs(t, err, ErrValidation)

	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "x", Priority: "asap"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "x", Category: "hobbies"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTaskOwnershipIsolation(t *testing.T) {
	_, tasks, a, b := newTaskFixture(t)

	task, err := tasks.CreateTask(b.ID, CreateTaskParams{Text: "b's secret"})
	require.NoError(t, err)

	// A supplies B's perfectly valid task ID and gets "not found" everywhere
	_, err = tasks.GetTaskByID(a.ID, task.ID)
	require.ErrorIs(t, err, ErrNotFound)

	text := "hijacked"
	_, err = tasks.UpdateTask(a.ID, task.ID, UpdateTaskParams{Text: &text})
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, tasks.DeleteTask(a.ID, task.ID), ErrNotFound)

	_, err = tasks.ToggleStar(a.ID, task.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// Bulk operations silently skip foreign IDs
	modified, err := tasks.BulkSetCompleted(a.ID, []string{task.ID}, true)
	require.NoError(t, err)
	require.Zero(t, modified)

	// B still sees the task untouched
	got, err := tasks.GetTaskByID(b.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, "b's secret", got.Text)
	require.False(t, got.Completed)
}

func TestToggleStar(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	task, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "x"})
	require.NoError(t, err)

	starred, err := tasks.ToggleStar(a.ID, task.ID)
	require.NoError(t, err)
	require.True(t, starred.IsStarred)

	unstarred, err := tasks.ToggleStar(a.ID, task.ID)
	require.NoError(t, err)
	require.False(t, unstarred.IsStarred)
}

func TestToggleArchive(t *testing.T) {
	_, tasks, a, b := newTaskFixture(t)

	task, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "x"})
	require.NoError(t, err)
	require.False(t, task.IsArchived)

	archived, err := tasks.ToggleArchive(a.ID, task.ID)
	require.NoError(t, err)
	require.True(t, archived.IsArchived)

	restored, err := tasks.ToggleArchive(a.ID, task.ID)
	require.NoError(t, err)
	require.False(t, restored.IsArchived)

	_, err = tasks.ToggleArchive(b.ID, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListTasks_FilterAndStats(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	done, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "water plants"})
	require.NoError(t, err)
	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "buy milk"})
	require.NoError(t, err)

	completed := true
	_, err = tasks.UpdateTask(a.ID, done.ID, UpdateTaskParams{Completed: &completed})
	require.NoError(t, err)

	all, stats, err := tasks.ListTasks(a.ID, TaskListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, models.TaskStats{Total: 2, Completed: 1, Active: 1}, stats)

	active, _, err := tasks.ListTasks(a.ID, TaskListOptions{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "buy milk", active[0].Text)

	found, _, err := tasks.ListTasks(a.ID, TaskListOptions{Search: "MILK"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "buy milk", found[0].Text)
}

func TestBulkOperations(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	t1, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "one"})
	require.NoError(t, err)
	t2, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "two"})
	require.NoError(t, err)
	ids := []string{t1.ID, t2.ID}

	modified, err := tasks.BulkSetCompleted(a.ID, ids, true)
	require.NoError(t, err)
	require.EqualValues(t, 2, modified)

	moved, err := tasks.BulkSetCategory(a.ID, ids, models.CategoryWork)
	require.NoError(t, err)
	require.EqualValues(t, 2, moved)

	_, err = tasks.BulkSetCategory(a.ID, ids, "nope")
	require.ErrorIs(t, err, ErrValidation)

	deleted, err := tasks.BulkDelete(a.ID, ids)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	_, stats, err := tasks.ListTasks(a.ID, TaskListOptions{})
	require.NoError(t, err)
	require.Zero(t, stats.Total)
}

func TestSubtasks(t *testing.T) {
	_, tasks, a, b := newTaskFixture(t)

	task, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "parent"})
	require.NoError(t, err)

	withSub, err := tasks.AddSubtask(a.ID, task.ID, "child")
	require.NoError(t, err)
	require.Len(t, withSub.Subtasks, 1)
	require.Equal(t, "child", withSub.Subtasks[0].Text)
	require.False(t, withSub.Subtasks[0].Completed)

	done := true
	updated, err := tasks.UpdateSubtask(a.ID, task.ID, withSub.Subtasks[0].ID, nil, &done)
	require.NoError(t, err)
	require.True(t, updated.Subtasks[0].Completed)

	// Subtasks are reached through the parent, so the owner check holds
	_, err = tasks.AddSubtask(b.ID, task.ID, "intruder")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = tasks.UpdateSubtask(a.ID, task.ID, "missing", nil, &done)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddTags_Deduplicates(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	task, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "x", Tags: []string{"home"}})
	require.NoError(t, err)

	tagged, err := tasks.AddTags(a.ID, task.ID, []string{"home", "urgent", " urgent ", ""})
	require.NoError(t, err)
	require.Equal(t, []string{"home", "urgent"}, tagged.Tags)
}

func TestCategoryStats(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	w1, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "w1", Category: models.CategoryWork})
	require.NoError(t, err)
	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "w2", Category: models.CategoryWork})
	require.NoError(t, err)

	completed := true
	_, err = tasks.UpdateTask(a.ID, w1.ID, UpdateTaskParams{Completed: &completed})
	require.NoError(t, err)

	stats, err := tasks.CategoryStats(a.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, models.CategoryWork, stats[0].Category)
	require.Equal(t, 2, stats[0].Count)
	require.Equal(t, 1, stats[0].Completed)
	require.InDelta(t, 50.0, stats[0].Progress, 0.01)
}

func TestDueToday(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	now := time.Now()
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	nextWeek := now.AddDate(0, 0, 7)

	_, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "today", DueDate: &noon})
	require.NoError(t, err)
	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "later", DueDate: &nextWeek})
	require.NoError(t, err)

	today, err := tasks.DueToday(a.ID)
	require.NoError(t, err)
	require.Len(t, today, 1)
	require.Equal(t, "today", today[0].Text)
}

func TestDueSoonReminderScan(t *testing.T) {
	_, tasks, a, _ := newTaskFixture(t)

	soon := time.Now().Add(2 * time.Hour)
	nextWeek := time.Now().AddDate(0, 0, 7)

	due, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "due soon", DueDate: &soon, Priority: models.PriorityUrgent})
	require.NoError(t, err)
	_, err = tasks.CreateTask(a.ID, CreateTaskParams{Text: "later", DueDate: &nextWeek})
	require.NoError(t, err)

	// An archived task gets no reminder, however close its due date
	shelved, err := tasks.CreateTask(a.ID, CreateTaskParams{Text: "shelved", DueDate: &soon})
	require.NoError(t, err)
	_, err = tasks.ToggleArchive(a.ID, shelved.ID)
	require.NoError(t, err)

	pending, err := tasks.DueSoon(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, due.ID, pending[0].ID)

	require.NoError(t, tasks.MarkDueNotified([]string{due.ID}))

	pending, err = tasks.DueSoon(24 * time.Hour)
	require.NoError(t, err)
	require.Empty(t, pending)
}
