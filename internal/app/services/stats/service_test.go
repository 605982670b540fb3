package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/domain/user"
	"github.com/bloom-app/progression/internal/app/storage/memory"
)

var statsNow = time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*Service, *memory.Store, user.User) {
	t.Helper()
	store := memory.New()
	u, err := store.CreateUser(context.Background(), user.User{Username: "alice"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	svc := New(store, store, nil)
	svc.now = func() time.Time { return statsNow }
	return svc, store, u
}

func appendEntry(t *testing.T, store *memory.Store, userID string, kind progression.ActivityKind, amount int, at time.Time) {
	t.Helper()
	_, err := store.AppendAward(context.Background(), progression.Entry{
		UserID:      userID,
		XPAmount:    amount,
		Kind:        kind,
		ActivityRef: fmt.Sprintf("ref-%d-%d", at.UnixNano(), amount),
		CreatedAt:   at,
	})
	if err != nil {
		t.Fatalf("append entry: %v", err)
	}
}

func addWorkSession(t *testing.T, store *memory.Store, userID string, minutes int, at time.Time) {
	t.Helper()
	_, err := store.CreateSession(context.Background(), activity.FocusSession{
		UserID:          userID,
		Kind:            activity.SessionWork,
		DurationMinutes: minutes,
		CompletedAt:     at,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	svc, _, u := newFixture(t)

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum != (Summary{}) {
		t.Fatalf("expected all zeroes, got %+v", sum)
	}
}

func TestSummarizeXPWindows(t *testing.T) {
	svc, store, u := newFixture(t)

	appendEntry(t, store, u.ID, progression.KindTaskCompletion, 25, statsNow.Add(-2*time.Hour)) // today
	appendEntry(t, store, u.ID, progression.KindTaskCompletion, 15, statsNow.AddDate(0, 0, -3)) // this week
	appendEntry(t, store, u.ID, progression.KindTaskCompletion, 10, statsNow.AddDate(0, 0, -20)) // outside both

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.XPToday != 25 {
		t.Fatalf("xp_today = %d, want 25", sum.XPToday)
	}
	if sum.XPWeek != 40 {
		t.Fatalf("xp_week = %d, want 40", sum.XPWeek)
	}
}

func TestSummarizeSessionCounts(t *testing.T) {
	svc, store, u := newFixture(t)

	addWorkSession(t, store, u.ID, 25, statsNow.Add(-time.Hour))
	addWorkSession(t, store, u.ID, 50, statsNow.AddDate(0, 0, -2))
	addWorkSession(t, store, u.ID, 25, statsNow.AddDate(0, 0, -15))

	// Breaks never count.
	if _, err := store.CreateSession(context.Background(), activity.FocusSession{
		UserID:          u.ID,
		Kind:            activity.SessionShortBreak,
		DurationMinutes: 5,
		CompletedAt:     statsNow.Add(-30 * time.Minute),
	}); err != nil {
		t.Fatalf("create break: %v", err)
	}

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.SessionsToday != 1 {
		t.Fatalf("sessions_today = %d, want 1", sum.SessionsToday)
	}
	if sum.SessionsWeek != 2 {
		t.Fatalf("sessions_week = %d, want 2", sum.SessionsWeek)
	}
	if sum.TotalSessions != 3 {
		t.Fatalf("total_sessions = %d, want 3", sum.TotalSessions)
	}
	if sum.TotalMinutes != 100 {
		t.Fatalf("total_minutes = %d, want 100", sum.TotalMinutes)
	}
}

func TestSummarizeStreak(t *testing.T) {
	svc, store, u := newFixture(t)

	// Work-session awards on today, -1, -2; gap at -3.
	for i := 0; i <= 2; i++ {
		appendEntry(t, store, u.ID, progression.KindPomodoroCompletion, 5, statsNow.AddDate(0, 0, -i))
	}
	appendEntry(t, store, u.ID, progression.KindPomodoroCompletion, 5, statsNow.AddDate(0, 0, -4))

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Streak != 3 {
		t.Fatalf("streak = %d, want 3", sum.Streak)
	}
}

func TestSummarizeStreakIgnoresTaskAwards(t *testing.T) {
	svc, store, u := newFixture(t)

	// Only task completions today: tasks never count toward the streak.
	appendEntry(t, store, u.ID, progression.KindTaskCompletion, 25, statsNow.Add(-time.Hour))

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Streak != 0 {
		t.Fatalf("streak = %d, want 0", sum.Streak)
	}
}

func TestSummarizeYesterdayAnchor(t *testing.T) {
	svc, store, u := newFixture(t)
	svc.WithAnchor(progression.AnchorYesterday)

	appendEntry(t, store, u.ID, progression.KindPomodoroCompletion, 5, statsNow.AddDate(0, 0, -1))
	appendEntry(t, store, u.ID, progression.KindPomodoroCompletion, 5, statsNow.AddDate(0, 0, -2))

	sum, err := svc.Summarize(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Streak != 2 {
		t.Fatalf("yesterday-anchored streak = %d, want 2", sum.Streak)
	}
}
