package award

import "github.com/bloom-app/progression/internal/app/domain/activity"

// minutesPerXP is the focus-session conversion rate: one XP per five minutes
// of completed work, never less than one.
const minutesPerXP = 5

// taskAmount maps task priority to its XP value. Unrecognised priorities
// fall back to the medium reward.
func taskAmount(p activity.TaskPriority) int {
	switch p {
	case activity.PriorityHigh:
		return 25
	case activity.PriorityMedium:
		return 15
	case activity.PriorityLow:
		return 10
	default:
		return 15
	}
}

// sessionAmount converts a work session's duration to XP.
func sessionAmount(durationMinutes int) int {
	amount := durationMinutes / minutesPerXP
	if amount < 1 {
		return 1
	}
	return amount
}
