// Package activity defines the collaborator-owned records the ledger reads:
// tasks and focus sessions. The ledger never mutates these beyond the CRUD
// operations their own services perform.
package activity

import "time"

// TaskStatus is the kanban column a task sits in.
type TaskStatus string

const (
	StatusTodo      TaskStatus = "todo"
	StatusProgress  TaskStatus = "progress"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether the status is one of the known columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority drives the XP value of a completed task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task is a user to-do item.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionKind distinguishes focused work from breaks. Only work sessions
// earn XP and count toward streaks.
type SessionKind string

const (
	SessionWork       SessionKind = "work"
	SessionShortBreak SessionKind = "short_break"
	SessionLongBreak  SessionKind = "long_break"
)

// Valid reports whether the kind is one of the known session kinds.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionWork, SessionShortBreak, SessionLongBreak:
		return true
	}
	return false
}

// FocusSession is one finished pomodoro interval.
type FocusSession struct {
	ID              string
	UserID          string
	TaskID          string // optional link to the task worked on
	Kind            SessionKind
	DurationMinutes int
	CompletedAt     time.Time
	CreatedAt       time.Time
}
