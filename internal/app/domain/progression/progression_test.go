package progression

import "testing"

func TestLevel(t *testing.T) {
	cases := []struct {
		totalXP int
		want    int
	}{
		{0, 1},
		{1, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{1000, 11},
	}
	for _, tc := range cases {
		if got := Level(tc.totalXP); got != tc.want {
			t.Errorf("Level(%d) = %d, want %d", tc.totalXP, got, tc.want)
		}
	}
}

func TestLevelMatchesFormula(t *testing.T) {
	for totalXP := 0; totalXP <= 2500; totalXP++ {
		want := totalXP/XPPerLevel + 1
		if got := Level(totalXP); got != want {
			t.Fatalf("Level(%d) = %d, want %d", totalXP, got, want)
		}
	}
}

func TestLeveledUp(t *testing.T) {
	if LeveledUp(0, 99) {
		t.Fatal("0 -> 99 should not level up")
	}
	if !LeveledUp(95, 105) {
		t.Fatal("95 -> 105 should level up")
	}
	if Level(105) != 2 {
		t.Fatalf("Level(105) = %d, want 2", Level(105))
	}
	if !LeveledUp(199, 200) {
		t.Fatal("199 -> 200 should level up")
	}
	if LeveledUp(100, 100) {
		t.Fatal("no gain should not level up")
	}
}

func TestProgressInLevel(t *testing.T) {
	inLevel, toNext, percent := ProgressInLevel(0)
	if inLevel != 0 || toNext != 100 || percent != 0 {
		t.Fatalf("ProgressInLevel(0) = (%d, %d, %v)", inLevel, toNext, percent)
	}

	inLevel, toNext, percent = ProgressInLevel(250)
	if inLevel != 50 || toNext != 50 || percent != 50 {
		t.Fatalf("ProgressInLevel(250) = (%d, %d, %v)", inLevel, toNext, percent)
	}

	inLevel, toNext, percent = ProgressInLevel(199)
	if inLevel != 99 || toNext != 1 || percent != 99 {
		t.Fatalf("ProgressInLevel(199) = (%d, %d, %v)", inLevel, toNext, percent)
	}

	// Percent stays in [0,100): a fresh level reads as zero progress.
	if inLevel, _, percent = ProgressInLevel(300); inLevel != 0 || percent != 0 {
		t.Fatalf("ProgressInLevel(300) = (%d, _, %v)", inLevel, percent)
	}
}

func TestNewProgress(t *testing.T) {
	p := NewProgress("u1", 245)
	if p.Level != 3 || p.XPInLevel != 45 || p.XPToNextLevel != 55 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if p.UserID != "u1" || p.TotalXP != 245 {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
}
