package progression

import "time"

// ActivityKind identifies the source of an XP award.
type ActivityKind string

const (
	KindTaskCompletion     ActivityKind = "task_completion"
	KindPomodoroCompletion ActivityKind = "pomodoro_completion"
	KindManual             ActivityKind = "manual"
)

// Valid reports whether the kind is one of the known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case KindTaskCompletion, KindPomodoroCompletion, KindManual:
		return true
	}
	return false
}

// Entry is one immutable row of the XP ledger. For entries with a non-empty
// ActivityRef the tuple (UserID, Kind, ActivityRef) is unique: it is the
// idempotency key that prevents a source activity from being awarded twice.
type Entry struct {
	ID          string
	UserID      string
	XPAmount    int
	Kind        ActivityKind
	ActivityRef string // empty for manual awards
	CreatedAt   time.Time
}

// AwardResult is returned to the caller of every award operation. A duplicate
// award is reported through AlreadyAwarded with XPAdded zero; it is not an
// error.
type AwardResult struct {
	XPAdded        int  `json:"xp_added"`
	NewTotalXP     int  `json:"new_total_xp"`
	NewLevel       int  `json:"new_level"`
	LeveledUp      bool `json:"leveled_up"`
	AlreadyAwarded bool `json:"already_awarded"`
}

// Progress is a read-only snapshot of a user's progression state.
type Progress struct {
	UserID        string  `json:"user_id"`
	TotalXP       int     `json:"total_xp"`
	Level         int     `json:"level"`
	XPInLevel     int     `json:"xp_in_level"`
	XPToNextLevel int     `json:"xp_to_next_level"`
	Percent       float64 `json:"percent"`
}

// NewProgress builds a Progress snapshot from a cumulative XP total.
func NewProgress(userID string, totalXP int) Progress {
	inLevel, toNext, percent := ProgressInLevel(totalXP)
	return Progress{
		UserID:        userID,
		TotalXP:       totalXP,
		Level:         Level(totalXP),
		XPInLevel:     inLevel,
		XPToNextLevel: toNext,
		Percent:       percent,
	}
}
