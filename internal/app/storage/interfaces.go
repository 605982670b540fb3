// Package storage declares the persistence interfaces the services depend
// on. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/domain/user"
)

// AwardOutcome reports the effect of an atomic ledger append.
type AwardOutcome struct {
	// Applied is false when the idempotency key already had an entry; in
	// that case nothing was written.
	Applied bool
	// TotalXP is the user's cumulative XP after the operation.
	TotalXP int
}

// UserStore persists user progression records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
}

// LedgerStore persists XP ledger entries and the running user totals.
//
// AppendAward must execute its idempotency check, the ledger insert and the
// total-XP/level update as one atomic unit: two concurrent appends with the
// same (user, kind, ref) key may not both apply, and concurrent appends for
// distinct activities of one user must not lose updates.
type LedgerStore interface {
	AppendAward(ctx context.Context, entry progression.Entry) (AwardOutcome, error)
	ListEntries(ctx context.Context, userID string, limit int) ([]progression.Entry, error)
	SumXPSince(ctx context.Context, userID string, since time.Time) (int, error)
	ActiveDays(ctx context.Context, userID string, kind progression.ActivityKind, since time.Time) ([]time.Time, error)
}

// ActivityStore persists the collaborator-owned tasks and focus sessions.
type ActivityStore interface {
	CreateTask(ctx context.Context, t activity.Task) (activity.Task, error)
	UpdateTask(ctx context.Context, t activity.Task) (activity.Task, error)
	GetTask(ctx context.Context, id string) (activity.Task, error)
	ListTasks(ctx context.Context, userID string) ([]activity.Task, error)
	DeleteTask(ctx context.Context, id string) error

	CreateSession(ctx context.Context, s activity.FocusSession) (activity.FocusSession, error)
	GetSession(ctx context.Context, id string) (activity.FocusSession, error)
	CountWorkSessionsSince(ctx context.Context, userID string, since time.Time) (int, error)
	WorkSessionTotals(ctx context.Context, userID string) (sessions, minutes int, err error)
}
