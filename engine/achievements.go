package engine

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PolDiaz18/nexotime/models"
)

// achievementSeed is the system catalog. Four condition classes are
// evaluated: global streak length, lifetime completed logs, level reached
// and account age in days.
var achievementSeed = []models.Achievement{
	{Code: "streak_3", Name: "Tres días seguidos", Description: "Completa todos tus hábitos 3 días seguidos", Icon: "🌱", XPReward: 25},
	{Code: "streak_7", Name: "Semana de fuego", Description: "Completa todos tus hábitos 7 días seguidos", Icon: "🔥", XPReward: 50},
	{Code: "streak_14", Name: "Dos semanas imparable", Description: "14 días seguidos sin fallar", Icon: "💪", XPReward: 100},
	{Code: "streak_30", Name: "Mes de acero", Description: "30 días seguidos", Icon: "🛡️", XPReward: 200},
	{Code: "streak_60", Name: "Disciplina de titanio", Description: "60 días seguidos", Icon: "⚔️", XPReward: 400},
	{Code: "streak_100", Name: "Centenario", Description: "100 días seguidos", Icon: "💎", XPReward: 750},
	{Code: "streak_365", Name: "Un año completo", Description: "365 días seguidos", Icon: "👑", XPReward: 2000},

	{Code: "first_habit", Name: "El primer paso", Description: "Completa tu primer hábito", Icon: "👣", XPReward: 10},
	{Code: "habits_50", Name: "Medio centenar", Description: "Completa 50 hábitos en total", Icon: "✨", XPReward: 50},
	{Code: "habits_100", Name: "Centenar de logros", Description: "Completa 100 hábitos en total", Icon: "💯", XPReward: 100},
	{Code: "habits_500", Name: "Máquina de hábitos", Description: "500 hábitos completados", Icon: "⚙️", XPReward: 300},
	{Code: "habits_1000", Name: "Millar dorado", Description: "1000 hábitos completados", Icon: "🏅", XPReward: 500},

	{Code: "level_5", Name: "Constante", Description: "Alcanza el nivel 5", Icon: "🌟", XPReward: 0},
	{Code: "level_10", Name: "Veterano", Description: "Alcanza el nivel 10", Icon: "⭐", XPReward: 0},
	{Code: "level_20", Name: "Maestro", Description: "Alcanza el nivel 20", Icon: "🌠", XPReward: 0},
	{Code: "level_50", Name: "Inmortal", Description: "Alcanza el nivel 50", Icon: "💫", XPReward: 0},

	{Code: "week_1", Name: "Primera semana", Description: "Una semana usando NexoTime", Icon: "📅", XPReward: 15},
	{Code: "month_1", Name: "Primer mes", Description: "Un mes usando NexoTime", Icon: "🗓️", XPReward: 50},
	{Code: "month_6", Name: "Medio año", Description: "6 meses con NexoTime", Icon: "📆", XPReward: 200},
	{Code: "year_1", Name: "Aniversario", Description: "Un año con NexoTime", Icon: "🎂", XPReward: 500},
}

// Threshold tables, ordered so evaluation output is deterministic.
var (
	streakChecks = []struct {
		Code string
		Days int
	}{
		{"streak_3", 3}, {"streak_7", 7}, {"streak_14", 14},
		{"streak_30", 30}, {"streak_60", 60}, {"streak_100", 100}, {"streak_365", 365},
	}
	totalChecks = []struct {
		Code  string
		Count int
	}{
		{"first_habit", 1}, {"habits_50", 50}, {"habits_100", 100},
		{"habits_500", 500}, {"habits_1000", 1000},
	}
	levelChecks = []struct {
		Code  string
		Level int
	}{
		{"level_5", 5}, {"level_10", 10}, {"level_20", 20}, {"level_50", 50},
	}
	ageChecks = []struct {
		Code string
		Days int
	}{
		{"week_1", 7}, {"month_1", 30}, {"month_6", 180}, {"year_1", 365},
	}
)

// SeedAchievements makes sure the catalog exists. Existing rows are left
// untouched, so reseeding at every startup is safe.
func SeedAchievements(db *gorm.DB) error {
	for _, a := range achievementSeed {
		seed := a
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&seed).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// evaluateAchievements scans every unlock condition for an already-locked
// user and returns the achievements unlocked by this call only.
func evaluateAchievements(tx *gorm.DB, user *models.User, now time.Time) ([]models.Achievement, error) {
	unlocked, err := unlockedCodes(tx, user.ID)
	if err != nil {
		return nil, err
	}

	var due []string
	for _, c := range streakChecks {
		if !unlocked[c.Code] && user.GlobalStreak >= c.Days {
			due = append(due, c.Code)
		}
	}

	var totalCompleted int64
	err = tx.Model(&models.HabitLog{}).
		Where("user_id = ? AND completed = ?", user.ID, true).
		Count(&totalCompleted).Error
	if err != nil {
		return nil, err
	}
	for _, c := range totalChecks {
		if !unlocked[c.Code] && totalCompleted >= int64(c.Count) {
			due = append(due, c.Code)
		}
	}

	for _, c := range levelChecks {
		if !unlocked[c.Code] && user.Level >= c.Level {
			due = append(due, c.Code)
		}
	}

	age := int(now.Sub(user.CreatedAt).Hours() / 24)
	for _, c := range ageChecks {
		if !unlocked[c.Code] && age >= c.Days {
			due = append(due, c.Code)
		}
	}

	var fresh []models.Achievement
	for _, code := range due {
		a, err := unlockAchievement(tx, user, code, now)
		if err != nil {
			return nil, err
		}
		if a != nil {
			fresh = append(fresh, *a)
		}
	}
	return fresh, nil
}

func unlockedCodes(tx *gorm.DB, userID uint) (map[string]bool, error) {
	var codes []string
	err := tx.Model(&models.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Pluck("achievements.code", &codes).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set, nil
}

// unlockAchievement inserts the join row idempotently. A concurrent
// evaluation losing the insert race gets zero rows affected and skips the
// XP grant, so the badge and its bonus are applied exactly once. The bonus
// is a direct XP add, no streak multiplier.
func unlockAchievement(tx *gorm.DB, user *models.User, code string, now time.Time) (*models.Achievement, error) {
	var a models.Achievement
	if err := tx.Where("code = ?", code).First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	ua := models.UserAchievement{
		UserID:        user.ID,
		AchievementID: a.ID,
		UnlockedAt:    now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&ua)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	if a.XPReward > 0 {
		user.XP += a.XPReward
		user.Level = LevelForXP(user.XP)
		if err := tx.Save(user).Error; err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// AchievementStatus pairs a catalog entry with the user's unlock state.
type AchievementStatus struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ListAchievements returns the whole catalog annotated with what the user
// has unlocked.
func (e *Engine) ListAchievements(userID uint) ([]AchievementStatus, error) {
	var all []models.Achievement
	if err := e.db.Order("id").Find(&all).Error; err != nil {
		return nil, err
	}
	var mine []models.UserAchievement
	if err := e.db.Where("user_id = ?", userID).Find(&mine).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.UserAchievement, len(mine))
	for _, ua := range mine {
		byID[ua.AchievementID] = ua
	}

	out := make([]AchievementStatus, 0, len(all))
	for _, a := range all {
		st := AchievementStatus{Achievement: a}
		if ua, ok := byID[a.ID]; ok {
			st.Unlocked = true
			t := ua.UnlockedAt
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}
