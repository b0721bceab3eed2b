package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
)

// dueSoonWindow is how far ahead the reminder job looks.
const dueSoonWindow = 24 * time.Hour

// orphanAge is how old an unreferenced upload must be before the sweep
// removes it, so in-flight uploads are never touched.
const orphanAge = time.Hour

// Scheduler runs the background jobs: due-soon task reminders and the
// orphaned-upload sweep.
type Scheduler struct {
	taskSvc      *services.TaskService
	eventSvc     services.EventServiceProvider
	portfolioSvc *services.PortfolioService
	store        *uploads.Store
	cron         *cron.Cron
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(taskSvc *services.TaskService, eventSvc services.EventServiceProvider, portfolioSvc *services.PortfolioService, store *uploads.Store) *Scheduler {
	return &Scheduler{
		taskSvc:      taskSvc,
		eventSvc:     eventSvc,
		portfolioSvc: portfolioSvc,
		store:        store,
		cron:         cron.New(),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@every 15m", s.remindDueSoon); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.sweepOrphanedUploads); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Msg("Background scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Background scheduler stopped")
}

// remindDueSoon emits a task.due_soon event for each unfinished task whose
// due date falls within the window, once per task.
func (s *Scheduler) remindDueSoon() {
	tasks, err := s.taskSvc.DueSoon(dueSoonWindow)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to query due-soon tasks")
		return
	}
	if len(tasks) == 0 {
		return
	}

	notified := make([]string, 0, len(tasks))
	for _, task := range tasks {
		msg := fmt.Sprintf("Task due soon: %s", task.Text)
		if err := s.eventSvc.CreateEvent(task.UserID, "task.due_soon", "warn", msg); err != nil {
			log.Error().Err(err).Str("task_id", task.ID).Msg("Scheduler: failed to record due-soon event")
			continue
		}
		notified = append(notified, task.ID)
	}

	if err := s.taskSvc.MarkDueNotified(notified); err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to flag notified tasks")
	}
}

// sweepOrphanedUploads removes image files no avatar or portfolio item
// references anymore, covering crashes between the disk write and the
// database commit.
func (s *Scheduler) sweepOrphanedUploads() {
	referenced, err := s.portfolioSvc.ReferencedImages()
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to collect referenced images")
		return
	}

	removed, err := s.store.Sweep(orphanAge, referenced)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: upload sweep failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Scheduler: removed orphaned upload files")
	}
}
