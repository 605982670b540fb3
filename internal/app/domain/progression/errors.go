package progression

import "errors"

var (
	// ErrNotOwned is returned when the referenced activity does not belong
	// to the awarding user.
	ErrNotOwned = errors.New("activity not owned by user")

	// ErrNotQualifying is returned when the activity does not earn XP, for
	// example a break session submitted for a pomodoro award.
	ErrNotQualifying = errors.New("activity does not qualify for XP")

	// ErrInvalidAmount is returned for non-positive manual award amounts.
	ErrInvalidAmount = errors.New("xp amount must be positive")

	// ErrNotFound is returned when a referenced user or activity does not
	// exist.
	ErrNotFound = errors.New("not found")
)
