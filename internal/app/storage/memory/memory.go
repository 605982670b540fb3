package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/domain/user"
	"github.com/bloom-app/progression/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[string]user.User
	tasks      map[string]activity.Task
	sessions   map[string]activity.FocusSession
	entries    map[string][]progression.Entry // user id -> entries, append order
	entryByKey map[string]string              // idempotency key -> entry id
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.ActivityStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		users:      make(map[string]user.User),
		tasks:      make(map[string]activity.Task),
		sessions:   make(map[string]activity.FocusSession),
		entries:    make(map[string][]progression.Entry),
		entryByKey: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func awardKey(userID string, kind progression.ActivityKind, ref string) string {
	return strings.Join([]string{userID, string(kind), ref}, "|")
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Level == 0 {
		u.Level = progression.Level(u.TotalXP)
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, progression.ErrNotFound
	}
	return u, nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) AppendAward(_ context.Context, entry progression.Entry) (storage.AwardOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[entry.UserID]
	if !ok {
		return storage.AwardOutcome{}, progression.ErrNotFound
	}

	if entry.ActivityRef != "" {
		key := awardKey(entry.UserID, entry.Kind, entry.ActivityRef)
		if _, dup := s.entryByKey[key]; dup {
			return storage.AwardOutcome{Applied: false, TotalXP: u.TotalXP}, nil
		}
	}

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	if entry.ActivityRef != "" {
		s.entryByKey[awardKey(entry.UserID, entry.Kind, entry.ActivityRef)] = entry.ID
	}

	u.TotalXP += entry.XPAmount
	u.Level = progression.Level(u.TotalXP)
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u

	return storage.AwardOutcome{Applied: true, TotalXP: u.TotalXP}, nil
}

func (s *Store) ListEntries(_ context.Context, userID string, limit int) ([]progression.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[userID]
	result := make([]progression.Entry, len(entries))
	copy(result, entries)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SumXPSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0
	for _, e := range s.entries[userID] {
		if !e.CreatedAt.Before(since) {
			sum += e.XPAmount
		}
	}
	return sum, nil
}

func (s *Store) ActiveDays(_ context.Context, userID string, kind progression.ActivityKind, since time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[time.Time]bool)
	for _, e := range s.entries[userID] {
		if e.Kind != kind || e.CreatedAt.Before(since) {
			continue
		}
		t := e.CreatedAt.UTC()
		seen[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)] = true
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// ActivityStore implementation ------------------------------------------------

func (s *Store) CreateTask(_ context.Context, t activity.Task) (activity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.tasks[t.ID]; exists {
		return activity.Task{}, fmt.Errorf("task %s already exists", t.ID)
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t activity.Task) (activity.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return activity.Task{}, progression.ErrNotFound
	}
	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) GetTask(_ context.Context, id string) (activity.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return activity.Task{}, progression.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, userID string) ([]activity.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []activity.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return progression.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) CreateSession(_ context.Context, sess activity.FocusSession) (activity.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	} else if _, exists := s.sessions[sess.ID]; exists {
		return activity.FocusSession{}, fmt.Errorf("session %s already exists", sess.ID)
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	if sess.CompletedAt.IsZero() {
		sess.CompletedAt = now
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (activity.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return activity.FocusSession{}, progression.ErrNotFound
	}
	return sess, nil
}

func (s *Store) CountWorkSessionsSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Kind == activity.SessionWork && !sess.CompletedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) WorkSessionTotals(_ context.Context, userID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, minutes := 0, 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Kind == activity.SessionWork {
			sessions++
			minutes += sess.DurationMinutes
		}
	}
	return sessions, minutes, nil
}
