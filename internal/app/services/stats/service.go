// Package stats computes read-only usage rollups: XP earned today and this
// week, session counts, all-time focus totals and the consecutive-day streak.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/pkg/logger"
)

// Summary is the aggregate returned to the presentation layer. An empty
// history yields all zeroes, never an error.
type Summary struct {
	XPToday       int `json:"xp_today"`
	XPWeek        int `json:"xp_week"`
	SessionsToday int `json:"sessions_today"`
	SessionsWeek  int `json:"sessions_week"`
	Streak        int `json:"streak"`
	TotalSessions int `json:"total_sessions"`
	TotalMinutes  int `json:"total_minutes"`
}

// Service aggregates ledger and activity facts for one user at a time.
type Service struct {
	ledger     storage.LedgerStore
	activities storage.ActivityStore
	anchor     progression.AnchorMode
	now        func() time.Time
	log        *logger.Logger
}

// New constructs a stats service with today-anchored streaks.
func New(ledger storage.LedgerStore, activities storage.ActivityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &Service{
		ledger:     ledger,
		activities: activities,
		anchor:     progression.AnchorToday,
		now:        time.Now,
		log:        log,
	}
}

// WithAnchor overrides the streak anchoring mode.
func (s *Service) WithAnchor(mode progression.AnchorMode) *Service {
	if mode == progression.AnchorToday || mode == progression.AnchorYesterday {
		s.anchor = mode
	}
	return s
}

// Summarize builds the full rollup for a user. Day boundaries are UTC; the
// week window is the rolling last seven days.
func (s *Service) Summarize(ctx context.Context, userID string) (Summary, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfWeek := startOfDay.AddDate(0, 0, -6)

	var sum Summary
	var err error

	if sum.XPToday, err = s.ledger.SumXPSince(ctx, userID, startOfDay); err != nil {
		return Summary{}, fmt.Errorf("xp today: %w", err)
	}
	if sum.XPWeek, err = s.ledger.SumXPSince(ctx, userID, startOfWeek); err != nil {
		return Summary{}, fmt.Errorf("xp week: %w", err)
	}
	if sum.SessionsToday, err = s.activities.CountWorkSessionsSince(ctx, userID, startOfDay); err != nil {
		return Summary{}, fmt.Errorf("sessions today: %w", err)
	}
	if sum.SessionsWeek, err = s.activities.CountWorkSessionsSince(ctx, userID, startOfWeek); err != nil {
		return Summary{}, fmt.Errorf("sessions week: %w", err)
	}
	if sum.TotalSessions, sum.TotalMinutes, err = s.activities.WorkSessionTotals(ctx, userID); err != nil {
		return Summary{}, fmt.Errorf("session totals: %w", err)
	}

	windowStart := startOfDay.AddDate(0, 0, -(progression.StreakWindowDays - 1))
	days, err := s.ledger.ActiveDays(ctx, userID, progression.KindPomodoroCompletion, windowStart)
	if err != nil {
		return Summary{}, fmt.Errorf("active days: %w", err)
	}
	sum.Streak = progression.Streak(days, now, s.anchor)

	return sum, nil
}
