// Package activities holds the collaborators that own tasks and focus
// sessions. Their mutations commit on their own; XP awarding runs after the
// fact and never fails the primary operation.
package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/services/award"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/pkg/logger"
)

// TaskService owns task records and triggers the XP award when a task
// transitions into the completed status.
type TaskService struct {
	store  storage.ActivityStore
	awards *award.Service
	log    *logger.Logger
}

// NewTaskService constructs a task service.
func NewTaskService(store storage.ActivityStore, awards *award.Service, log *logger.Logger) *TaskService {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &TaskService{store: store, awards: awards, log: log}
}

// Create adds a task for the user.
func (s *TaskService) Create(ctx context.Context, userID string, t activity.Task) (activity.Task, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return activity.Task{}, fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return activity.Task{}, fmt.Errorf("title is required")
	}
	if t.Status == "" {
		t.Status = activity.StatusTodo
	}
	if !t.Status.Valid() {
		return activity.Task{}, fmt.Errorf("invalid status %q", t.Status)
	}
	if t.Priority == "" {
		t.Priority = activity.PriorityMedium
	}
	t.UserID = userID
	t.DueDate = normalizeDue(t.DueDate)
	return s.store.CreateTask(ctx, t)
}

// Update writes the task and, when the update moved it into completed,
// awards XP afterwards. The award runs as its own transaction: a failed or
// duplicate award never rolls back or fails the task update, and the award
// result (when present) is returned alongside the task for optional UI use.
// Moving a task out of completed does not revoke previously earned XP.
func (s *TaskService) Update(ctx context.Context, userID string, t activity.Task) (activity.Task, *progression.AwardResult, error) {
	existing, err := s.store.GetTask(ctx, t.ID)
	if err != nil {
		return activity.Task{}, nil, err
	}
	if existing.UserID != userID {
		return activity.Task{}, nil, progression.ErrNotOwned
	}
	if !t.Status.Valid() {
		return activity.Task{}, nil, fmt.Errorf("invalid status %q", t.Status)
	}

	completing := t.Status == activity.StatusCompleted && existing.Status != activity.StatusCompleted

	updated, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return activity.Task{}, nil, err
	}

	if !completing {
		return updated, nil, nil
	}

	result, err := s.awards.AwardTaskCompletion(ctx, userID, updated.ID)
	if err != nil {
		// The task is already committed as completed; the reward is
		// secondary. Surface nothing to the caller beyond the log.
		s.log.WithError(err).
			WithField("user_id", userID).
			WithField("task_id", updated.ID).
			Warn("task completed but XP award failed")
		return updated, nil, nil
	}
	return updated, &result, nil
}

// Get returns a task owned by the user.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (activity.Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return activity.Task{}, err
	}
	if t.UserID != userID {
		return activity.Task{}, progression.ErrNotOwned
	}
	return t, nil
}

// List returns the user's tasks in creation order.
func (s *TaskService) List(ctx context.Context, userID string) ([]activity.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// Delete removes a task owned by the user. Ledger entries for the task are
// kept; earned XP outlives the task record.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.UserID != userID {
		return progression.ErrNotOwned
	}
	return s.store.DeleteTask(ctx, taskID)
}

// normalizeDue keeps due dates at UTC day resolution.
func normalizeDue(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
