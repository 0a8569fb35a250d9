package engine

import (
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/models"
)

// Gamified actions and their base XP rewards.
const (
	ActionHabitComplete      = "habit_complete"
	ActionAllHabitsComplete  = "all_habits_complete"
	ActionRoutineComplete    = "routine_complete"
	ActionJournalEntry       = "journal_entry"
	ActionGratitudeEntry     = "gratitude_entry"
	ActionMoodLog            = "mood_log"
	ActionSleepLog           = "sleep_log"
	ActionExerciseLog        = "exercise_log"
	ActionReflectionComplete = "reflection_complete"
	ActionTaskComplete       = "task_complete"
	ActionPomodoroComplete   = "pomodoro_complete"
	ActionChallengeComplete  = "challenge_complete"
)

var xpRewards = map[string]int{
	ActionHabitComplete:      10,
	ActionAllHabitsComplete:  25,
	ActionRoutineComplete:    15,
	ActionJournalEntry:       10,
	ActionGratitudeEntry:     10,
	ActionMoodLog:            5,
	ActionSleepLog:           5,
	ActionExerciseLog:        15,
	ActionReflectionComplete: 20,
	ActionTaskComplete:       10,
	ActionPomodoroComplete:   10,
	ActionChallengeComplete:  50,
}

// levelTitles maps level milestones to titles. A level between milestones
// keeps the highest title at or below it.
var levelTitles = []struct {
	Level int
	Title string
}{
	{1, "Novato"},
	{2, "Aprendiz"},
	{3, "Iniciado"},
	{5, "Constante"},
	{7, "Disciplinado"},
	{10, "Veterano"},
	{15, "Experto"},
	{20, "Maestro"},
	{25, "Gran Maestro"},
	{30, "Leyenda"},
	{40, "Mito"},
	{50, "Inmortal"},
}

// streakMultipliers boost habit XP as the habit's current streak grows.
// Thresholds are checked from highest to lowest, first match wins.
var streakMultipliers = []struct {
	MinDays int
	Mult    float64
}{
	{100, 3.0},
	{60, 2.5},
	{30, 2.0},
	{14, 1.75},
	{7, 1.5},
}

// XPForLevel returns the XP needed to advance from the given level to the
// next one.
func XPForLevel(level int) int { return level * 100 }

// LevelForXP converts lifetime XP to a level by walking the cumulative
// thresholds: 100 to leave level 1, 200 more to leave level 2, and so on.
func LevelForXP(totalXP int) int {
	level := 1
	for totalXP >= XPForLevel(level) {
		totalXP -= XPForLevel(level)
		level++
	}
	return level
}

// xpIntoLevel returns the XP already accumulated inside the current level.
func xpIntoLevel(totalXP int) int {
	level := 1
	for totalXP >= XPForLevel(level) {
		totalXP -= XPForLevel(level)
		level++
	}
	return totalXP
}

// LevelTitle returns the display title for a level.
func LevelTitle(level int) string {
	title := levelTitles[0].Title
	for _, lt := range levelTitles {
		if level >= lt.Level {
			title = lt.Title
		}
	}
	return title
}

// StreakMultiplier returns the XP multiplier earned by a streak length.
func StreakMultiplier(days int) float64 {
	for _, sm := range streakMultipliers {
		if days >= sm.MinDays {
			return sm.Mult
		}
	}
	return 1.0
}

// XPResult describes one XP grant and any level change it caused.
type XPResult struct {
	Action     string  `json:"action"`
	BaseXP     int     `json:"base_xp"`
	Multiplier float64 `json:"multiplier"`
	XPEarned   int     `json:"xp_earned"`
	TotalXP    int     `json:"total_xp"`
	Level      int     `json:"level"`
	Title      string  `json:"title"`
	LeveledUp  bool    `json:"leveled_up"`
}

// awardXP grants the XP for an action to an already-locked user row and
// persists the new totals. An unknown action returns a zero grant without
// touching the row, so call sites never have to pre-validate actions.
// The streak argument is the relevant streak for multiplier purposes: the
// habit's own streak for habit actions, the global streak otherwise.
func awardXP(tx *gorm.DB, user *models.User, action string, streak int) (*XPResult, error) {
	base, ok := xpRewards[action]
	if !ok {
		return &XPResult{Action: action, Multiplier: 1.0, TotalXP: user.XP, Level: user.Level, Title: LevelTitle(user.Level)}, nil
	}

	mult := StreakMultiplier(streak)
	earned := int(float64(base) * mult)

	oldLevel := user.Level
	user.XP += earned
	user.Level = LevelForXP(user.XP)
	if err := tx.Save(user).Error; err != nil {
		return nil, err
	}

	return &XPResult{
		Action:     action,
		BaseXP:     base,
		Multiplier: mult,
		XPEarned:   earned,
		TotalXP:    user.XP,
		Level:      user.Level,
		Title:      LevelTitle(user.Level),
		LeveledUp:  user.Level > oldLevel,
	}, nil
}

// LevelInfo is the read model behind the level endpoint and bot command.
type LevelInfo struct {
	Level       int     `json:"level"`
	Title       string  `json:"title"`
	TotalXP     int     `json:"total_xp"`
	XPInLevel   int     `json:"xp_in_level"`
	XPNextLevel int     `json:"xp_next_level"`
	Progress    float64 `json:"progress"`
}

// GetLevelInfo derives the level card from the user's lifetime XP.
func (e *Engine) GetLevelInfo(userID uint) (*LevelInfo, error) {
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		return nil, asNotFound(err)
	}
	level := LevelForXP(user.XP)
	inLevel := xpIntoLevel(user.XP)
	need := XPForLevel(level)
	return &LevelInfo{
		Level:       level,
		Title:       LevelTitle(level),
		TotalXP:     user.XP,
		XPInLevel:   inLevel,
		XPNextLevel: need,
		Progress:    float64(inLevel) / float64(need),
	}, nil
}
