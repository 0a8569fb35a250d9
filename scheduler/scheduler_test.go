package scheduler

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(user *models.User, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestScheduler(t *testing.T, now time.Time) (*Scheduler, *fakeNotifier, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Habit{}, &models.HabitLog{},
		&models.Achievement{}, &models.UserAchievement{},
		&models.Reminder{}, &models.Routine{}, &models.RoutineStep{},
		&models.MoodLog{}, &models.WaterLog{}, &models.Quote{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(db, fixedClock{t: now})
	notifier := &fakeNotifier{}
	s := New(db, eng, notifier, fixedClock{t: now}, nil, Options{DefaultTimezone: "UTC"})
	return s, notifier, db
}

func seedUser(t *testing.T, db *gorm.DB, tz string) *models.User {
	t.Helper()
	user := models.User{
		Email:    fmt.Sprintf("%s@test.local", strings.ReplaceAll(t.Name(), "/", "_")),
		Name:     "Tester",
		ChatID:   "chat-1",
		Timezone: tz,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func seedReminder(t *testing.T, db *gorm.DB, userID uint, typ models.ReminderType, hhmm string, days []string) *models.Reminder {
	t.Helper()
	rem := models.Reminder{UserID: userID, Type: typ, Time: hhmm, Days: days, Active: true, Message: "recordatorio"}
	if err := db.Create(&rem).Error; err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	return &rem
}

func TestTickExactMinuteMatch(t *testing.T) {
	// 2025-06-02 is a Monday.
	now := time.Date(2025, time.June, 2, 8, 30, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "UTC")
	seedReminder(t, db, user.ID, models.ReminderCustom, "08:30", nil)

	s.Tick(context.Background(), now)
	if len(n.sent) != 1 || n.sent[0] != "recordatorio" {
		t.Fatalf("sent = %v, want one custom message", n.sent)
	}

	// One minute later the reminder must not fire again.
	s.Tick(context.Background(), now.Add(time.Minute))
	if len(n.sent) != 1 {
		t.Errorf("sent = %d messages, want 1 (no catch-up)", len(n.sent))
	}
}

func TestTickUserLocalTime(t *testing.T) {
	// 07:00 UTC in January is 08:00 in Madrid.
	now := time.Date(2025, time.January, 6, 7, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "Europe/Madrid")
	seedReminder(t, db, user.ID, models.ReminderCustom, "08:00", nil)

	s.Tick(context.Background(), now)
	if len(n.sent) != 1 {
		t.Errorf("sent = %d messages, want 1 (matched in user's timezone)", len(n.sent))
	}
}

func TestTickDaySubset(t *testing.T) {
	monday := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, monday)
	user := seedUser(t, db, "UTC")
	seedReminder(t, db, user.ID, models.ReminderCustom, "09:00", []string{"mon", "wed"})

	s.Tick(context.Background(), monday)
	if len(n.sent) != 1 {
		t.Fatalf("sent = %d on a listed day, want 1", len(n.sent))
	}

	tuesday := monday.AddDate(0, 0, 1)
	s.Tick(context.Background(), tuesday)
	if len(n.sent) != 1 {
		t.Errorf("sent = %d after unlisted day, want still 1", len(n.sent))
	}
}

func TestTickSkipsMutedUsers(t *testing.T) {
	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)

	dnd := seedUser(t, db, "UTC")
	db.Model(dnd).Update("do_not_disturb", true)
	seedReminder(t, db, dnd.ID, models.ReminderCustom, "09:00", nil)

	vac := models.User{Email: "vac@test.local", Name: "V", ChatID: "chat-2", Timezone: "UTC", Mode: models.ModeVacation}
	if err := db.Create(&vac).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	seedReminder(t, db, vac.ID, models.ReminderCustom, "09:00", nil)

	unlinked := models.User{Email: "nochat@test.local", Name: "N", Timezone: "UTC"}
	if err := db.Create(&unlinked).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	seedReminder(t, db, unlinked.ID, models.ReminderCustom, "09:00", nil)

	s.Tick(context.Background(), now)
	if len(n.sent) != 0 {
		t.Errorf("sent = %v, want none for muted, vacationing or unlinked users", n.sent)
	}
}

func TestWeeklySummaryOnlySunday(t *testing.T) {
	saturday := time.Date(2025, time.June, 7, 20, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, saturday)
	user := seedUser(t, db, "UTC")
	seedReminder(t, db, user.ID, models.ReminderWeeklySummary, "20:00", nil)

	s.Tick(context.Background(), saturday)
	if len(n.sent) != 0 {
		t.Fatalf("weekly summary fired on Saturday: %v", n.sent)
	}

	sunday := saturday.AddDate(0, 0, 1)
	s.Tick(context.Background(), sunday)
	if len(n.sent) != 1 {
		t.Fatalf("sent = %d on Sunday, want 1", len(n.sent))
	}
	if !strings.Contains(n.sent[0], "Resumen semanal") {
		t.Errorf("message = %q, want the weekly summary", n.sent[0])
	}
}

func TestEveningSilentOnCompleteDay(t *testing.T) {
	now := time.Date(2025, time.June, 2, 20, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "UTC")
	habit := models.Habit{UserID: user.ID, Name: "Leer", HabitType: models.HabitTypeBoolean, Frequency: models.FrequencyDaily, Active: true}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if _, err := s.engine.MarkHabit(user.ID, habit.ID, now, true, nil, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	seedReminder(t, db, user.ID, models.ReminderEvening, "20:00", nil)
	seedReminder(t, db, user.ID, models.ReminderMidday, "20:00", nil)

	s.Tick(context.Background(), now)
	// The evening nag is skipped, the midday checkpoint congratulates.
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v, want exactly the midday congratulation", n.sent)
	}
	if !strings.Contains(n.sent[0], "ya completó todo") {
		t.Errorf("message = %q, want the congratulation", n.sent[0])
	}
}

func TestMidnightReconciliationBreaksAndNotifies(t *testing.T) {
	// Local 00:05, the minute yesterday gets settled.
	now := time.Date(2025, time.June, 3, 0, 5, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "UTC")
	habit := models.Habit{UserID: user.ID, Name: "Leer", HabitType: models.HabitTypeBoolean, Frequency: models.FrequencyDaily, Active: true}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}
	db.Model(user).Updates(map[string]interface{}{"global_streak": 10, "best_global_streak": 12})

	s.Tick(context.Background(), now)

	var u models.User
	db.First(&u, user.ID)
	if u.GlobalStreak != 0 {
		t.Errorf("global streak = %d, want 0", u.GlobalStreak)
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "10 días") {
		t.Errorf("sent = %v, want one streak-broken message carrying 10", n.sent)
	}
}

func TestMidnightReconciliationSmallStreakSilent(t *testing.T) {
	now := time.Date(2025, time.June, 3, 0, 5, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "UTC")
	habit := models.Habit{UserID: user.ID, Name: "Leer", HabitType: models.HabitTypeBoolean, Frequency: models.FrequencyDaily, Active: true}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}
	db.Model(user).Update("global_streak", 2)

	s.Tick(context.Background(), now)

	var u models.User
	db.First(&u, user.ID)
	if u.GlobalStreak != 0 {
		t.Errorf("global streak = %d, want 0 (reset is never suppressed)", u.GlobalStreak)
	}
	if len(n.sent) != 0 {
		t.Errorf("sent = %v, want none for a 2-day streak", n.sent)
	}
}

func TestTickSkipsWhileRunning(t *testing.T) {
	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	s, n, db := newTestScheduler(t, now)
	user := seedUser(t, db, "UTC")
	seedReminder(t, db, user.ID, models.ReminderCustom, "09:00", nil)

	s.ticking = 1
	s.Tick(context.Background(), now)
	if len(n.sent) != 0 {
		t.Errorf("overlapping tick must skip, sent = %v", n.sent)
	}
	s.ticking = 0
	s.Tick(context.Background(), now)
	if len(n.sent) != 1 {
		t.Errorf("sent = %d after release, want 1", len(n.sent))
	}
}
