package engine

import "testing"

func TestLevelForXPBoundaries(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{599, 3},
		{600, 4},
		{999, 4},
		{1000, 5},
	}
	for _, c := range cases {
		if got := LevelForXP(c.xp); got != c.level {
			t.Errorf("LevelForXP(%d) = %d, want %d", c.xp, got, c.level)
		}
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= 20000; xp++ {
		cur := LevelForXP(xp)
		if cur < prev {
			t.Fatalf("level dropped from %d to %d at xp=%d", prev, cur, xp)
		}
		prev = cur
	}
}

func TestLevelRoundTrip(t *testing.T) {
	// Landing exactly on the cumulative threshold always levels up.
	sum := 0
	for level := 1; level <= 60; level++ {
		sum += XPForLevel(level)
		if got := LevelForXP(sum); got != level+1 {
			t.Errorf("LevelForXP(%d) = %d, want %d", sum, got, level+1)
		}
	}
}

func TestLevelTitle(t *testing.T) {
	cases := []struct {
		level int
		title string
	}{
		{1, "Novato"},
		{2, "Aprendiz"},
		{4, "Iniciado"},
		{5, "Constante"},
		{9, "Disciplinado"},
		{10, "Veterano"},
		{49, "Mito"},
		{50, "Inmortal"},
		{99, "Inmortal"},
	}
	for _, c := range cases {
		if got := LevelTitle(c.level); got != c.title {
			t.Errorf("LevelTitle(%d) = %q, want %q", c.level, got, c.title)
		}
	}
}

func TestStreakMultiplier(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{6, 1.0},
		{7, 1.5},
		{13, 1.5},
		{14, 1.75},
		{30, 2.0},
		{60, 2.5},
		{100, 3.0},
		{365, 3.0},
	}
	for _, c := range cases {
		if got := StreakMultiplier(c.days); got != c.want {
			t.Errorf("StreakMultiplier(%d) = %v, want %v", c.days, got, c.want)
		}
	}
}
