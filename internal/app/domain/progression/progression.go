// Package progression contains the pure domain model of the XP ledger:
// level arithmetic, streak computation and the value types shared by the
// coordinator, the stores and the HTTP surface.
package progression

// XPPerLevel is the fixed amount of XP between consecutive levels.
const XPPerLevel = 100

// Level derives the level for a cumulative XP total. Levels start at 1 and
// advance every XPPerLevel points. Input must be non-negative.
func Level(totalXP int) int {
	return totalXP/XPPerLevel + 1
}

// LeveledUp reports whether moving from oldTotal to newTotal crossed a level
// boundary.
func LeveledUp(oldTotal, newTotal int) bool {
	return Level(newTotal) > Level(oldTotal)
}

// ProgressInLevel returns the XP accumulated within the current level, the XP
// remaining until the next level, and the completion percentage in [0,100).
func ProgressInLevel(totalXP int) (inLevel, toNext int, percent float64) {
	inLevel = totalXP % XPPerLevel
	toNext = XPPerLevel - inLevel
	percent = float64(inLevel) / float64(XPPerLevel) * 100
	return inLevel, toNext, percent
}
