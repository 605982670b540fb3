package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/bloom-app/progression/internal/app/domain/activity"
	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/internal/app/domain/user"
	"github.com/bloom-app/progression/internal/platform/migrations"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	return New(db), mock, func() { db.Close() }
}

func testEntry() progression.Entry {
	return progression.Entry{
		ID:          "entry-1",
		UserID:      "user-1",
		XPAmount:    15,
		Kind:        progression.KindTaskCompletion,
		ActivityRef: "task-1",
		CreatedAt:   time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppendAwardAppliesAndUpdatesTotal(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_xp FROM users WHERE id = \\$1 FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(90))
	mock.ExpectQuery("SELECT id FROM xp_ledger").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO xp_ledger").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET total_xp = \\$2, level = \\$3").
		WithArgs("user-1", 105, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := store.AppendAward(context.Background(), testEntry())
	if err != nil {
		t.Fatalf("append award: %v", err)
	}
	if !outcome.Applied {
		t.Fatal("expected the award to apply")
	}
	if outcome.TotalXP != 105 {
		t.Fatalf("total_xp = %d, want 105", outcome.TotalXP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendAwardExistingKeyIsNoOp(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_xp FROM users WHERE id = \\$1 FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(90))
	mock.ExpectQuery("SELECT id FROM xp_ledger").
		WithArgs("user-1", "task_completion", "task-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prior-entry"))
	mock.ExpectRollback()

	outcome, err := store.AppendAward(context.Background(), testEntry())
	if err != nil {
		t.Fatalf("append award: %v", err)
	}
	if outcome.Applied {
		t.Fatal("duplicate key must not apply")
	}
	if outcome.TotalXP != 90 {
		t.Fatalf("total_xp = %d, want unchanged 90", outcome.TotalXP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendAwardLosesRaceOnUniqueViolation(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_xp FROM users WHERE id = \\$1 FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(90))
	mock.ExpectQuery("SELECT id FROM xp_ledger").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO xp_ledger").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT total_xp FROM users WHERE id = \\$1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(105))

	outcome, err := store.AppendAward(context.Background(), testEntry())
	if err != nil {
		t.Fatalf("append award: %v", err)
	}
	if outcome.Applied {
		t.Fatal("losing the race must not report an applied award")
	}
	if outcome.TotalXP != 105 {
		t.Fatalf("total_xp = %d, want the winner's 105", outcome.TotalXP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendAwardUnknownUser(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_xp FROM users WHERE id = \\$1 FOR UPDATE").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.AppendAward(context.Background(), testEntry())
	if !errors.Is(err, progression.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	mock.ExpectQuery("SELECT id, username, total_xp").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetUser(context.Background(), "missing"); !errors.Is(err, progression.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListEntriesDefaultsLimit(t *testing.T) {
	store, mock, closeDB := newMock(t)
	defer closeDB()

	rows := sqlmock.NewRows([]string{"id", "user_id", "xp_amount", "activity_kind", "activity_ref", "created_at"}).
		AddRow("e2", "user-1", 5, "pomodoro_completion", "sess-1", time.Now()).
		AddRow("e1", "user-1", 25, "task_completion", nil, time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, user_id, xp_amount").
		WithArgs("user-1", 50).
		WillReturnRows(rows)

	entries, err := store.ListEntries(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].ActivityRef != "" {
		t.Fatalf("null activity_ref should scan to empty, got %q", entries[1].ActivityRef)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	u, err := store.CreateUser(ctx, user.User{Username: "itest"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	task, err := store.CreateTask(ctx, activity.Task{
		UserID:   u.ID,
		Title:    "integration task",
		Priority: activity.PriorityHigh,
		Status:   activity.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	entry := progression.Entry{
		UserID:      u.ID,
		XPAmount:    25,
		Kind:        progression.KindTaskCompletion,
		ActivityRef: task.ID,
	}
	first, err := store.AppendAward(ctx, entry)
	if err != nil {
		t.Fatalf("first award: %v", err)
	}
	if !first.Applied || first.TotalXP != 25 {
		t.Fatalf("first award outcome = %+v", first)
	}

	second, err := store.AppendAward(ctx, entry)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	if second.Applied || second.TotalXP != 25 {
		t.Fatalf("second award outcome = %+v, want no-op at 25", second)
	}
}
