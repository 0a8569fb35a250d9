package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/models"
)

// updateHabitStreak maintains a habit's own consecutive-day counter.
// Completing today chains on yesterday's completed log or restarts at 1.
// An explicit un-mark resets to 0 immediately, with no grace window.
func updateHabitStreak(tx *gorm.DB, habit *models.Habit, completedToday bool, today time.Time) error {
	if completedToday {
		yesterday := models.DateKey(today.AddDate(0, 0, -1))
		var count int64
		err := tx.Model(&models.HabitLog{}).
			Where("habit_id = ? AND date = ? AND completed = ?", habit.ID, yesterday, true).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			habit.CurrentStreak++
		} else {
			habit.CurrentStreak = 1
		}
		if habit.CurrentStreak > habit.BestStreak {
			habit.BestStreak = habit.CurrentStreak
		}
	} else {
		habit.CurrentStreak = 0
	}
	return tx.Save(habit).Error
}

// updateGlobalStreak extends the all-habits streak when today's last
// applicable habit lands. On a partially complete day it deliberately does
// nothing: the day is not over yet, and zeroing the streak mid-day would be
// wrong while habits are still pending. The reset for a truly missed day
// belongs to ReconcileDay. Days with no applicable habits neither extend nor
// break the streak.
func updateGlobalStreak(tx *gorm.DB, user *models.User, today time.Time) error {
	done, total, err := dayCompletionCount(tx, user.ID, today)
	if err != nil {
		return err
	}
	if total == 0 || done < total {
		return nil
	}

	yesterdayAll, err := allCompleted(tx, user.ID, today.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	if yesterdayAll {
		user.GlobalStreak++
	} else {
		user.GlobalStreak = 1
	}
	if user.GlobalStreak > user.BestGlobalStreak {
		user.BestGlobalStreak = user.GlobalStreak
	}
	return tx.Save(user).Error
}

// HabitStreak is one habit's row in the streak overview.
type HabitStreak struct {
	HabitID       uint   `json:"habit_id"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Streaks is the read model behind the streaks endpoint and bot command.
type Streaks struct {
	GlobalStreak     int           `json:"global_streak"`
	BestGlobalStreak int           `json:"best_global_streak"`
	Habits           []HabitStreak `json:"habits"`
}

// GetStreaks returns the user's global streak and every active habit's
// streak, longest first.
func (e *Engine) GetStreaks(userID uint) (*Streaks, error) {
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		return nil, asNotFound(err)
	}
	var habits []models.Habit
	err := e.db.Where("user_id = ? AND active = ? AND archived = ?", userID, true, false).
		Order("current_streak DESC").Find(&habits).Error
	if err != nil {
		return nil, err
	}

	out := &Streaks{
		GlobalStreak:     user.GlobalStreak,
		BestGlobalStreak: user.BestGlobalStreak,
		Habits:           make([]HabitStreak, 0, len(habits)),
	}
	for _, h := range habits {
		out.Habits = append(out.Habits, HabitStreak{
			HabitID:       h.ID,
			Name:          h.Name,
			Icon:          h.Icon,
			CurrentStreak: h.CurrentStreak,
			BestStreak:    h.BestStreak,
		})
	}
	return out, nil
}
