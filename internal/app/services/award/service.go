// Package award implements the award coordinator: the single entry point
// that converts completed activities into XP exactly once each.
package award

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/metrics"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/internal/cache"
	"github.com/bloom-app/progression/pkg/logger"
)

// Service validates an activity, computes its XP value and appends it to the
// ledger atomically. Duplicate awards for the same activity resolve to an
// idempotent no-op result.
type Service struct {
	users      storage.UserStore
	ledger     storage.LedgerStore
	activities storage.ActivityStore
	progress   *cache.ProgressCache
	log        *logger.Logger
}

// New constructs an award service. The cache may be nil.
func New(users storage.UserStore, ledger storage.LedgerStore, activities storage.ActivityStore, progress *cache.ProgressCache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("award")
	}
	return &Service{
		users:      users,
		ledger:     ledger,
		activities: activities,
		progress:   progress,
		log:        log,
	}
}

// AwardTaskCompletion awards XP for a completed task. The amount depends on
// the task's priority.
func (s *Service) AwardTaskCompletion(ctx context.Context, userID, taskID string) (progression.AwardResult, error) {
	userID = strings.TrimSpace(userID)
	taskID = strings.TrimSpace(taskID)
	if userID == "" || taskID == "" {
		return progression.AwardResult{}, fmt.Errorf("user_id and task_id are required")
	}

	task, err := s.activities.GetTask(ctx, taskID)
	if err != nil {
		return progression.AwardResult{}, fmt.Errorf("load task: %w", err)
	}
	if task.UserID != userID {
		return progression.AwardResult{}, progression.ErrNotOwned
	}

	amount := taskAmount(task.Priority)
	return s.apply(ctx, progression.Entry{
		UserID:      userID,
		XPAmount:    amount,
		Kind:        progression.KindTaskCompletion,
		ActivityRef: taskID,
	})
}

// AwardSessionCompletion awards XP for a completed focus session. Only work
// sessions qualify; breaks are rejected with ErrNotQualifying.
func (s *Service) AwardSessionCompletion(ctx context.Context, userID, sessionID string) (progression.AwardResult, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return progression.AwardResult{}, fmt.Errorf("user_id and session_id are required")
	}

	sess, err := s.activities.GetSession(ctx, sessionID)
	if err != nil {
		return progression.AwardResult{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != userID {
		return progression.AwardResult{}, progression.ErrNotOwned
	}
	if sess.Kind != activity.SessionWork {
		return progression.AwardResult{}, progression.ErrNotQualifying
	}

	amount := sessionAmount(sess.DurationMinutes)
	return s.apply(ctx, progression.Entry{
		UserID:      userID,
		XPAmount:    amount,
		Kind:        progression.KindPomodoroCompletion,
		ActivityRef: sessionID,
	})
}

// AwardManual grants an out-of-band XP amount. Manual awards carry no
// idempotency key; callers own their own dedup if they retry.
func (s *Service) AwardManual(ctx context.Context, userID string, amount int) (progression.AwardResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return progression.AwardResult{}, fmt.Errorf("user_id is required")
	}
	if amount <= 0 {
		return progression.AwardResult{}, progression.ErrInvalidAmount
	}

	return s.apply(ctx, progression.Entry{
		UserID:   userID,
		XPAmount: amount,
		Kind:     progression.KindManual,
	})
}

// Progress returns the user's current progression snapshot. Reads go through
// the cache when one is configured; the durable store is the source of truth.
func (s *Service) Progress(ctx context.Context, userID string) (progression.Progress, error) {
	if p, ok := s.progress.Get(ctx, userID); ok {
		return p, nil
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return progression.Progress{}, err
	}
	p := progression.NewProgress(u.ID, u.TotalXP)
	s.progress.Set(ctx, p)
	return p, nil
}

// RecentActivity returns the newest ledger entries for the user.
func (s *Service) RecentActivity(ctx context.Context, userID string, limit int) ([]progression.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.ledger.ListEntries(ctx, userID, limit)
}

// apply runs the atomic append and shapes the result. The ledger store owns
// the transaction; this layer owns validation, level math and reporting.
func (s *Service) apply(ctx context.Context, entry progression.Entry) (progression.AwardResult, error) {
	start := time.Now()

	if _, err := s.users.GetUser(ctx, entry.UserID); err != nil {
		return progression.AwardResult{}, err
	}

	outcome, err := s.ledger.AppendAward(ctx, entry)
	if err != nil {
		metrics.RecordAward(string(entry.Kind), "error", time.Since(start), false)
		return progression.AwardResult{}, fmt.Errorf("append award: %w", err)
	}

	if !outcome.Applied {
		metrics.RecordAward(string(entry.Kind), "duplicate", time.Since(start), false)
		s.log.WithField("user_id", entry.UserID).
			WithField("kind", string(entry.Kind)).
			WithField("activity_ref", entry.ActivityRef).
			Debug("duplicate award ignored")
		return progression.AwardResult{
			XPAdded:        0,
			NewTotalXP:     outcome.TotalXP,
			NewLevel:       progression.Level(outcome.TotalXP),
			LeveledUp:      false,
			AlreadyAwarded: true,
		}, nil
	}

	oldTotal := outcome.TotalXP - entry.XPAmount
	leveledUp := progression.LeveledUp(oldTotal, outcome.TotalXP)
	metrics.RecordAward(string(entry.Kind), "applied", time.Since(start), leveledUp)

	// The durable row changed; drop any cached snapshot and repopulate
	// from the committed total.
	s.progress.Set(ctx, progression.NewProgress(entry.UserID, outcome.TotalXP))

	log := s.log.WithField("user_id", entry.UserID).
		WithField("kind", string(entry.Kind)).
		WithField("xp", entry.XPAmount).
		WithField("total_xp", outcome.TotalXP)
	if leveledUp {
		log = log.WithField("level", progression.Level(outcome.TotalXP))
	}
	log.Info("xp awarded")

	return progression.AwardResult{
		XPAdded:        entry.XPAmount,
		NewTotalXP:     outcome.TotalXP,
		NewLevel:       progression.Level(outcome.TotalXP),
		LeveledUp:      leveledUp,
		AlreadyAwarded: false,
	}, nil
}
