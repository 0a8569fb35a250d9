// Package engine implements the habit consistency and gamification engine:
// completion ledger, streaks, XP/levels, achievements and the midnight
// reconciliation decision. The REST API, the chat gateway and the reminder
// scheduler are all thin adapters over this one type, so the rules stay in a
// single place.
package engine

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PolDiaz18/nexotime/models"
)

var (
	// ErrNotFound is returned when a referenced user or habit does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned for operations that do not fit the habit's
	// type, e.g. incrementing a boolean habit.
	ErrInvalidState = errors.New("invalid state")
)

// Clock abstracts wall-clock access so the scheduler and tests can inject
// fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// Engine is the single entry point for every completion, streak, XP and
// achievement mutation.
type Engine struct {
	db    *gorm.DB
	clock Clock
}

// New creates an Engine bound to a database and a clock.
func New(db *gorm.DB, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{db: db, clock: clock}
}

// DB exposes the underlying handle for read-only adapter queries.
func (e *Engine) DB() *gorm.DB { return e.db }

// MarkResult reports everything a single mark/increment caused.
type MarkResult struct {
	Log             models.HabitLog      `json:"log"`
	JustCompleted   bool                 `json:"just_completed"`
	JustUncompleted bool                 `json:"just_uncompleted"`
	XP              *XPResult            `json:"xp,omitempty"`
	AllCompleted    bool                 `json:"all_completed"`
	NewAchievements []models.Achievement `json:"new_achievements,omitempty"`
}

// MarkHabit records the completion state of a habit for a day and runs the
// full downstream chain (habit streak, global streak, XP, achievements)
// inside one transaction. The user row is locked for the duration, so two
// concurrent completions of different habits cannot lose a streak update.
// Streak and XP effects key off the false→true transition, never off the
// final state, so redundant re-marks are no-ops.
func (e *Engine) MarkHabit(userID, habitID uint, day time.Time, completed bool, quantity *float64, note *string) (*MarkResult, error) {
	res := &MarkResult{}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		user, habit, err := lockUserAndHabit(tx, userID, habitID)
		if err != nil {
			return err
		}

		log, just, justUn, err := setCompletion(tx, e.clock, user.ID, habit, day, completed, quantity, note)
		if err != nil {
			return err
		}
		res.Log = *log
		res.JustCompleted = just
		res.JustUncompleted = justUn

		return e.applyCompletionEffects(tx, user, habit, day, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// IncrementHabitQuantity adds to a quantity habit's daily total and, when
// the target is reached, promotes the log to completed with the same
// downstream effects as an explicit mark.
func (e *Engine) IncrementHabitQuantity(userID, habitID uint, day time.Time, delta float64) (*MarkResult, error) {
	if delta <= 0 {
		delta = 1
	}
	res := &MarkResult{}
	err := e.db.Transaction(func(tx *gorm.DB) error {
		user, habit, err := lockUserAndHabit(tx, userID, habitID)
		if err != nil {
			return err
		}
		if habit.HabitType != models.HabitTypeQuantity {
			return ErrInvalidState
		}

		log, just, err := incrementQuantity(tx, e.clock, user.ID, habit, day, delta)
		if err != nil {
			return err
		}
		res.Log = *log
		res.JustCompleted = just

		return e.applyCompletionEffects(tx, user, habit, day, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// applyCompletionEffects runs the streak/XP/achievement chain for a ledger
// transition already recorded in res. A re-mark with no transition applies
// nothing.
func (e *Engine) applyCompletionEffects(tx *gorm.DB, user *models.User, habit *models.Habit, day time.Time, res *MarkResult) error {
	switch {
	case res.JustCompleted:
		if err := updateHabitStreak(tx, habit, true, day); err != nil {
			return err
		}
		if err := updateGlobalStreak(tx, user, day); err != nil {
			return err
		}
		xp, err := awardXP(tx, user, ActionHabitComplete, habit.CurrentStreak)
		if err != nil {
			return err
		}
		res.XP = xp

		done, total, err := dayCompletionCount(tx, user.ID, day)
		if err != nil {
			return err
		}
		if total > 0 && done >= total {
			res.AllCompleted = true
			if _, err := awardXP(tx, user, ActionAllHabitsComplete, user.GlobalStreak); err != nil {
				return err
			}
		}

		unlocked, err := evaluateAchievements(tx, user, e.clock.Now())
		if err != nil {
			return err
		}
		res.NewAchievements = unlocked

	case res.JustUncompleted:
		if err := updateHabitStreak(tx, habit, false, day); err != nil {
			return err
		}
	}
	return nil
}

// AwardAction grants action XP outside the habit mark path (tasks, moods,
// routines). Unknown actions are silent no-ops by design: gamification is
// fire and forget from every call site.
func (e *Engine) AwardAction(userID uint, action string, streak int) (*XPResult, error) {
	var res *XPResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asNotFound(err)
		}
		xp, err := awardXP(tx, &user, action, streak)
		if err != nil {
			return err
		}
		res = xp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EvaluateAchievements re-scans unlock conditions for a user and returns
// only the achievements unlocked by this call.
func (e *Engine) EvaluateAchievements(userID uint) ([]models.Achievement, error) {
	var unlocked []models.Achievement
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asNotFound(err)
		}
		var err error
		unlocked, err = evaluateAchievements(tx, &user, e.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}

// ReconcileDay settles a user's just-ended local day: if not every
// applicable habit was completed and a streak was standing, the streak
// resets. The reset itself is unconditional; whether it is worth a
// notification is the caller's decision, based on the returned old value.
func (e *Engine) ReconcileDay(userID uint, day time.Time) (broken bool, oldStreak int, err error) {
	err = e.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			return asNotFound(err)
		}
		if user.Mode == models.ModeVacation {
			return nil
		}
		ok, err := allCompleted(tx, user.ID, day)
		if err != nil {
			return err
		}
		if !ok && user.GlobalStreak > 0 {
			broken = true
			oldStreak = user.GlobalStreak
			user.GlobalStreak = 0
			return tx.Save(&user).Error
		}
		return nil
	})
	return broken, oldStreak, err
}

// AllCompleted reports whether every applicable habit of the user was
// completed on the given day.
func (e *Engine) AllCompleted(userID uint, day time.Time) (bool, error) {
	return allCompleted(e.db, userID, day)
}

// forUpdate adds a row lock to the query. SQLite has no FOR UPDATE syntax
// and serializes writers on its own, so the clause is skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockUserAndHabit(tx *gorm.DB, userID, habitID uint) (*models.User, *models.Habit, error) {
	var user models.User
	if err := forUpdate(tx).First(&user, userID).Error; err != nil {
		return nil, nil, asNotFound(err)
	}
	var habit models.Habit
	if err := tx.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error; err != nil {
		return nil, nil, asNotFound(err)
	}
	return &user, &habit, nil
}

func asNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
