package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/domain/user"
	"github.com/bloom-app/progression/internal/app/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.ActivityStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Level == 0 {
		u.Level = progression.Level(u.TotalXP)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, total_xp, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.TotalXP, u.Level, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, total_xp, level, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)

	var u user.User
	if err := row.Scan(&u.ID, &u.Username, &u.TotalXP, &u.Level, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, progression.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// --- LedgerStore ------------------------------------------------------------

// AppendAward runs the whole award as one transaction: lock the user row,
// check the idempotency key, insert the ledger entry, write the new total
// and level. A concurrent duplicate surfaces as a unique violation on the
// partial index; both the pre-check and the violation resolve to the same
// idempotent no-op outcome.
func (s *Store) AppendAward(ctx context.Context, entry progression.Entry) (storage.AwardOutcome, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	outcome, err := s.appendAwardTx(ctx, entry)
	if err == nil {
		return outcome, nil
	}
	if !isUniqueViolation(err) {
		return storage.AwardOutcome{}, err
	}

	// Lost the race against an identical concurrent award. The other
	// transaction committed the entry; report the current total.
	total, terr := s.currentTotal(ctx, entry.UserID)
	if terr != nil {
		return storage.AwardOutcome{}, terr
	}
	return storage.AwardOutcome{Applied: false, TotalXP: total}, nil
}

func (s *Store) appendAwardTx(ctx context.Context, entry progression.Entry) (storage.AwardOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.AwardOutcome{}, err
	}
	defer tx.Rollback()

	var total int
	err = tx.QueryRowContext(ctx, `
		SELECT total_xp FROM users WHERE id = $1 FOR UPDATE
	`, entry.UserID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AwardOutcome{}, progression.ErrNotFound
		}
		return storage.AwardOutcome{}, err
	}

	if entry.ActivityRef != "" {
		var existing string
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM xp_ledger
			WHERE user_id = $1 AND activity_kind = $2 AND activity_ref = $3
		`, entry.UserID, entry.Kind, entry.ActivityRef).Scan(&existing)
		if err == nil {
			return storage.AwardOutcome{Applied: false, TotalXP: total}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.AwardOutcome{}, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO xp_ledger (id, user_id, xp_amount, activity_kind, activity_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.XPAmount, entry.Kind, toNullString(entry.ActivityRef), entry.CreatedAt)
	if err != nil {
		return storage.AwardOutcome{}, err
	}

	newTotal := total + entry.XPAmount
	_, err = tx.ExecContext(ctx, `
		UPDATE users SET total_xp = $2, level = $3, updated_at = $4 WHERE id = $1
	`, entry.UserID, newTotal, progression.Level(newTotal), time.Now().UTC())
	if err != nil {
		return storage.AwardOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return storage.AwardOutcome{}, err
	}
	return storage.AwardOutcome{Applied: true, TotalXP: newTotal}, nil
}

func (s *Store) currentTotal(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT total_xp FROM users WHERE id = $1
	`, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, progression.ErrNotFound
	}
	return total, err
}

func (s *Store) ListEntries(ctx context.Context, userID string, limit int) ([]progression.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, xp_amount, activity_kind, activity_ref, created_at
		FROM xp_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []progression.Entry
	for rows.Next() {
		var (
			e   progression.Entry
			ref sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.XPAmount, &e.Kind, &ref, &e.CreatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			e.ActivityRef = ref.String
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) SumXPSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(xp_amount), 0) FROM xp_ledger
		WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&sum)
	return sum, err
}

func (s *Store) ActiveDays(ctx context.Context, userID string, kind progression.ActivityKind, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day
		FROM xp_ledger
		WHERE user_id = $1 AND activity_kind = $2 AND created_at >= $3
		ORDER BY day
	`, userID, kind, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day.UTC())
	}
	return days, rows.Err()
}

// --- ActivityStore ----------------------------------------------------------

func (s *Store) CreateTask(ctx context.Context, t activity.Task) (activity.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, priority, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, toNullTime(t.DueDate), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return activity.Task{}, err
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t activity.Task) (activity.Task, error) {
	existing, err := s.GetTask(ctx, t.ID)
	if err != nil {
		return activity.Task{}, err
	}

	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, priority = $4, status = $5, due_date = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, toNullTime(t.DueDate), t.UpdatedAt)
	if err != nil {
		return activity.Task{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return activity.Task{}, progression.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (activity.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, priority, status, due_date, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id)

	var (
		t       activity.Task
		dueDate sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &dueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Task{}, progression.ErrNotFound
		}
		return activity.Task{}, err
	}
	if dueDate.Valid {
		t.DueDate = dueDate.Time.UTC()
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]activity.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, priority, status, due_date, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activity.Task
	for rows.Next() {
		var (
			t       activity.Task
			dueDate sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &dueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if dueDate.Valid {
			t.DueDate = dueDate.Time.UTC()
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return progression.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess activity.FocusSession) (activity.FocusSession, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	if sess.CompletedAt.IsZero() {
		sess.CompletedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (id, user_id, task_id, kind, duration_minutes, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.UserID, toNullString(sess.TaskID), sess.Kind, sess.DurationMinutes, sess.CompletedAt, sess.CreatedAt)
	if err != nil {
		return activity.FocusSession{}, err
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (activity.FocusSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, task_id, kind, duration_minutes, completed_at, created_at
		FROM focus_sessions
		WHERE id = $1
	`, id)

	var (
		sess   activity.FocusSession
		taskID sql.NullString
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &taskID, &sess.Kind, &sess.DurationMinutes, &sess.CompletedAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.FocusSession{}, progression.ErrNotFound
		}
		return activity.FocusSession{}, err
	}
	if taskID.Valid {
		sess.TaskID = taskID.String
	}
	return sess, nil
}

func (s *Store) CountWorkSessionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM focus_sessions
		WHERE user_id = $1 AND kind = 'work' AND completed_at >= $2
	`, userID, since).Scan(&count)
	return count, err
}

func (s *Store) WorkSessionTotals(ctx context.Context, userID string) (int, int, error) {
	var sessions, minutes int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(duration_minutes), 0) FROM focus_sessions
		WHERE user_id = $1 AND kind = 'work'
	`, userID).Scan(&sessions, &minutes)
	return sessions, minutes, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toNullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
