package activities

import (
	"context"
	"fmt"
	"strings"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/services/award"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/bloom-app/progression/pkg/logger"
)

// SessionRecorder persists finished focus sessions and awards XP for work
// sessions. The session row commits first; the award is a separate
// transaction whose failure is logged, not propagated.
type SessionRecorder struct {
	store  storage.ActivityStore
	awards *award.Service
	log    *logger.Logger
}

// NewSessionRecorder constructs a session recorder.
func NewSessionRecorder(store storage.ActivityStore, awards *award.Service, log *logger.Logger) *SessionRecorder {
	if log == nil {
		log = logger.NewDefault("sessions")
	}
	return &SessionRecorder{store: store, awards: awards, log: log}
}

// Record saves a completed session. Work sessions additionally earn XP;
// breaks are stored without an award. The award result, when one was
// applied, is returned alongside the session.
func (s *SessionRecorder) Record(ctx context.Context, userID string, sess activity.FocusSession) (activity.FocusSession, *progression.AwardResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return activity.FocusSession{}, nil, fmt.Errorf("user_id is required")
	}
	if !sess.Kind.Valid() {
		return activity.FocusSession{}, nil, fmt.Errorf("invalid session kind %q", sess.Kind)
	}
	if sess.DurationMinutes <= 0 {
		return activity.FocusSession{}, nil, fmt.Errorf("duration_minutes must be positive")
	}
	sess.UserID = userID

	saved, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return activity.FocusSession{}, nil, fmt.Errorf("save session: %w", err)
	}

	if saved.Kind != activity.SessionWork {
		return saved, nil, nil
	}

	result, err := s.awards.AwardSessionCompletion(ctx, userID, saved.ID)
	if err != nil {
		s.log.WithError(err).
			WithField("user_id", userID).
			WithField("session_id", saved.ID).
			Warn("session saved but XP award failed")
		return saved, nil, nil
	}
	return saved, &result, nil
}

// Get returns a session owned by the user.
func (s *SessionRecorder) Get(ctx context.Context, userID, sessionID string) (activity.FocusSession, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return activity.FocusSession{}, err
	}
	if sess.UserID != userID {
		return activity.FocusSession{}, progression.ErrNotOwned
	}
	return sess, nil
}
