package engine

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PolDiaz18/nexotime/models"
)

// loadOrCreateLog returns the single log row for (habit, day), creating an
// empty one if none exists yet. The insert uses ON CONFLICT DO NOTHING
// against the unique (habit_id, date) index, so two concurrent callers
// converge on the same row instead of one of them failing.
func loadOrCreateLog(tx *gorm.DB, userID uint, habitID uint, date string) (*models.HabitLog, error) {
	log := models.HabitLog{
		UserID:  userID,
		HabitID: habitID,
		Date:    date,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&log).Error; err != nil {
		return nil, err
	}
	// Re-read so both the winner and the loser of a race see the same row.
	if err := tx.Where("habit_id = ? AND date = ?", habitID, date).First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// setCompletion writes the completion state for (habit, day) and reports the
// transition it caused. Only the false→true edge sets justCompleted and only
// true→false sets justUncompleted; writing the state already stored reports
// neither, which is what makes double-submits harmless upstream.
func setCompletion(tx *gorm.DB, clock Clock, userID uint, habit *models.Habit, day time.Time, completed bool, quantity *float64, note *string) (*models.HabitLog, bool, bool, error) {
	log, err := loadOrCreateLog(tx, userID, habit.ID, models.DateKey(day))
	if err != nil {
		return nil, false, false, err
	}

	wasCompleted := log.Completed
	log.Completed = completed
	if quantity != nil {
		log.QuantityLogged = *quantity
	}
	if note != nil {
		log.Note = *note
	}

	justCompleted := completed && !wasCompleted
	justUncompleted := !completed && wasCompleted
	if justCompleted {
		now := clock.Now()
		log.CompletedAt = &now
	}
	if justUncompleted {
		log.CompletedAt = nil
	}

	if err := tx.Save(log).Error; err != nil {
		return nil, false, false, err
	}
	return log, justCompleted, justUncompleted, nil
}

// incrementQuantity adds delta to the day's logged quantity and promotes the
// log to completed once the habit's target is reached. The promotion is a
// normal false→true transition, so all downstream effects fire exactly once
// no matter how many increments follow.
func incrementQuantity(tx *gorm.DB, clock Clock, userID uint, habit *models.Habit, day time.Time, delta float64) (*models.HabitLog, bool, error) {
	log, err := loadOrCreateLog(tx, userID, habit.ID, models.DateKey(day))
	if err != nil {
		return nil, false, err
	}

	log.QuantityLogged += delta
	justCompleted := false
	if !log.Completed && habit.TargetQuantity > 0 && log.QuantityLogged >= habit.TargetQuantity {
		log.Completed = true
		now := clock.Now()
		log.CompletedAt = &now
		justCompleted = true
	}

	if err := tx.Save(log).Error; err != nil {
		return nil, false, err
	}
	return log, justCompleted, nil
}

// dayCompletionCount returns how many of the user's applicable habits are
// completed on the given day, along with the applicable total.
func dayCompletionCount(tx *gorm.DB, userID uint, day time.Time) (done int, total int, err error) {
	var habits []models.Habit
	if err := tx.Where("user_id = ?", userID).Find(&habits).Error; err != nil {
		return 0, 0, err
	}
	applicable := applicableHabits(habits, day)
	total = len(applicable)
	if total == 0 {
		return 0, 0, nil
	}

	ids := make([]uint, 0, total)
	for _, h := range applicable {
		ids = append(ids, h.ID)
	}
	var count int64
	err = tx.Model(&models.HabitLog{}).
		Where("habit_id IN ? AND date = ? AND completed = ?", ids, models.DateKey(day), true).
		Count(&count).Error
	if err != nil {
		return 0, 0, err
	}
	return int(count), total, nil
}

// allCompleted reports whether every applicable habit is completed on the
// day. A day with no applicable habits counts as complete: there was nothing
// to miss.
func allCompleted(tx *gorm.DB, userID uint, day time.Time) (bool, error) {
	done, total, err := dayCompletionCount(tx, userID, day)
	if err != nil {
		return false, err
	}
	return done >= total, nil
}
