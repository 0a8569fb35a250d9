// Package scheduler drives proactive notifications: a minute tick that
// matches reminders against each user's local wall clock, and a per-user
// end-of-day reconciliation shortly after local midnight.
package scheduler

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
)

// Notifier delivers one rendered message to a user. Failures are logged and
// swallowed; they never roll back the state change that triggered them.
type Notifier interface {
	Send(user *models.User, text string) error
}

// Options tune scheduler behavior.
type Options struct {
	// DefaultTimezone is used when a user's timezone is empty or invalid.
	DefaultTimezone string
	// StreakNotifyMinimum suppresses streak-broken messages below this old
	// streak value. The reset itself always happens.
	StreakNotifyMinimum int
	// ReconcileLocalMinute is the minute after local midnight at which
	// yesterday is settled.
	ReconcileLocalMinute int
}

// Scheduler owns the tick loop. All collaborators are injected, nothing is
// process-global.
type Scheduler struct {
	db       *gorm.DB
	engine   *engine.Engine
	notifier Notifier
	clock    engine.Clock
	log      *zap.Logger
	opts     Options

	ticking int32
}

// New builds a Scheduler. A nil logger disables logging.
func New(db *gorm.DB, eng *engine.Engine, notifier Notifier, clock engine.Clock, log *zap.Logger, opts Options) *Scheduler {
	if clock == nil {
		clock = engine.SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "Europe/Madrid"
	}
	if opts.StreakNotifyMinimum == 0 {
		opts.StreakNotifyMinimum = 3
	}
	if opts.ReconcileLocalMinute == 0 {
		opts.ReconcileLocalMinute = 5
	}
	return &Scheduler{db: db, engine: eng, notifier: notifier, clock: clock, log: log, opts: opts}
}

// Run ticks once per minute until the context is cancelled. A tick that
// outlives its minute makes the next one skip instead of stacking.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			go s.Tick(ctx, s.clock.Now().UTC())
		}
	}
}

// Tick runs one pass over all users. At most one tick is in flight at a
// time; concurrent calls return immediately.
func (s *Scheduler) Tick(ctx context.Context, nowUTC time.Time) {
	if !atomic.CompareAndSwapInt32(&s.ticking, 0, 1) {
		s.log.Warn("tick still running, skipping", zap.Time("now", nowUTC))
		return
	}
	defer atomic.StoreInt32(&s.ticking, 0)

	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		s.log.Error("tick: load users", zap.Error(err))
		return
	}

	for i := range users {
		// Shutdown must not wait for a full pass.
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.tickUser(&users[i], nowUTC)
	}
}

func (s *Scheduler) tickUser(user *models.User, nowUTC time.Time) {
	local := nowUTC.In(s.location(user))
	if local.Hour() == 0 && local.Minute() == s.opts.ReconcileLocalMinute {
		s.reconcile(user, local.AddDate(0, 0, -1))
	}

	if user.DoNotDisturb || user.Mode == models.ModeVacation || user.ChatID == "" {
		return
	}

	hhmm := local.Format("15:04")
	var reminders []models.Reminder
	err := s.db.Where("user_id = ? AND active = ? AND time = ?", user.ID, true, hhmm).
		Find(&reminders).Error
	if err != nil {
		s.log.Error("tick: load reminders", zap.Uint("user", user.ID), zap.Error(err))
		return
	}

	weekday := strings.ToLower(local.Weekday().String()[:3])
	for _, rem := range reminders {
		if len(rem.Days) > 0 && !containsDay(rem.Days, weekday) {
			continue
		}
		s.dispatch(user, &rem, local)
	}
}

func containsDay(days []string, key string) bool {
	for _, d := range days {
		if strings.ToLower(d) == key {
			return true
		}
	}
	return false
}

func (s *Scheduler) dispatch(user *models.User, rem *models.Reminder, local time.Time) {
	text, err := s.render(user, rem, local)
	if err != nil {
		s.log.Error("render reminder", zap.Uint("user", user.ID), zap.String("type", string(rem.Type)), zap.Error(err))
		return
	}
	if text == "" {
		return
	}
	if err := s.notifier.Send(user, text); err != nil {
		s.log.Error("send reminder", zap.Uint("user", user.ID), zap.String("type", string(rem.Type)), zap.Error(err))
	}
}

func (s *Scheduler) render(user *models.User, rem *models.Reminder, local time.Time) (string, error) {
	switch rem.Type {
	case models.ReminderMorning:
		sum, err := s.engine.GetDaySummary(user.ID, local)
		if err != nil {
			return "", err
		}
		quote, err := s.engine.RandomQuote()
		if err != nil {
			quote = nil
		}
		return morningMessage(user, sum, quote), nil

	case models.ReminderMidday, models.ReminderEvening, models.ReminderNight:
		sum, err := s.engine.GetDaySummary(user.ID, local)
		if err != nil {
			return "", err
		}
		return checkpointMessage(rem.Type, user, sum), nil

	case models.ReminderSummary:
		sum, err := s.engine.GetDaySummary(user.ID, local)
		if err != nil {
			return "", err
		}
		date := models.DateKey(local)
		var water *models.WaterLog
		var w models.WaterLog
		if err := s.db.Where("user_id = ? AND date = ?", user.ID, date).First(&w).Error; err == nil {
			water = &w
		}
		var mood *models.MoodLog
		var m models.MoodLog
		if err := s.db.Where("user_id = ? AND date = ?", user.ID, date).First(&m).Error; err == nil {
			mood = &m
		}
		return summaryMessage(user, sum, water, mood), nil

	case models.ReminderWeeklySummary:
		// Fires only on Sunday, the week it closes.
		if local.Weekday() != time.Sunday {
			return "", nil
		}
		monday := local.AddDate(0, 0, -6)
		week, err := s.engine.GetWeekSummary(user.ID, monday)
		if err != nil {
			return "", err
		}
		return weeklyMessage(user, week), nil

	case models.ReminderRoutine:
		if rem.LinkedRoutineID == nil {
			return "", nil
		}
		var routine models.Routine
		err := s.db.Where("id = ? AND user_id = ?", *rem.LinkedRoutineID, user.ID).First(&routine).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return "", nil
			}
			return "", err
		}
		var steps []models.RoutineStep
		err = s.db.Where("routine_id = ?", routine.ID).Order("step_order").Find(&steps).Error
		if err != nil {
			return "", err
		}
		return routineMessage(&routine, steps), nil

	case models.ReminderCustom:
		return rem.Message, nil
	}
	return "", nil
}

// reconcile settles the user's just-ended local day. Vacation users are
// skipped inside the engine; the notification only fires for streaks worth
// mentioning, the reset is never suppressed.
func (s *Scheduler) reconcile(user *models.User, dayEnded time.Time) {
	broken, old, err := s.engine.ReconcileDay(user.ID, dayEnded)
	if err != nil {
		s.log.Error("reconcile", zap.Uint("user", user.ID), zap.Error(err))
		return
	}
	if !broken {
		return
	}
	s.log.Info("streak broken", zap.Uint("user", user.ID), zap.Int("old", old))
	if old < s.opts.StreakNotifyMinimum || user.ChatID == "" {
		return
	}
	if err := s.notifier.Send(user, streakBrokenMessage(old, user.BestGlobalStreak)); err != nil {
		s.log.Error("send streak broken", zap.Uint("user", user.ID), zap.Error(err))
	}
}

func (s *Scheduler) location(user *models.User) *time.Location {
	name := user.Timezone
	if name == "" {
		name = s.opts.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(s.opts.DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}
