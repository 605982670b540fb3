package progression

import "time"

// StreakWindowDays bounds how far back the streak walk looks.
const StreakWindowDays = 30

// AnchorMode selects the day the streak walk starts from.
type AnchorMode string

const (
	// AnchorToday counts strictly: a day with no qualifying activity yet,
	// including today, yields a streak of zero.
	AnchorToday AnchorMode = "today"

	// AnchorYesterday treats today as still in progress: when today has no
	// activity the walk starts at yesterday, so an unbroken run through
	// yesterday is preserved.
	AnchorYesterday AnchorMode = "yesterday"
)

// Streak computes the length of the consecutive-day run of qualifying
// activity ending at the anchor day. Days are UTC calendar dates; duplicate
// dates and intra-day timestamps collapse to one day. The walk never looks
// further back than StreakWindowDays.
func Streak(activeDays []time.Time, now time.Time, mode AnchorMode) int {
	present := make(map[time.Time]bool, len(activeDays))
	for _, d := range activeDays {
		present[dayOf(d)] = true
	}

	anchor := dayOf(now)
	if mode == AnchorYesterday && !present[anchor] {
		anchor = anchor.AddDate(0, 0, -1)
	}

	streak := 0
	for i := 0; i < StreakWindowDays; i++ {
		day := anchor.AddDate(0, 0, -i)
		if !present[day] {
			break
		}
		streak++
	}
	return streak
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
