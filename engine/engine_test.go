package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PolDiaz18/nexotime/models"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T, clock Clock) *Engine {
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
		&models.Achievement{}, &models.UserAchievement{}, &models.Quote{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := SeedAchievements(db); err != nil {
		t.Fatalf("seed achievements: %v", err)
	}
	return New(db, clock)
}

func createUser(t *testing.T, e *Engine) *models.User {
	t.Helper()
	user := models.User{Email: fmt.Sprintf("%s@test.local", strings.ReplaceAll(t.Name(), "/", "_")), Name: "Tester"}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createHabit(t *testing.T, e *Engine, userID uint, name string) *models.Habit {
	t.Helper()
	habit := models.Habit{
		UserID:    userID,
		Name:      name,
		HabitType: models.HabitTypeBoolean,
		Frequency: models.FrequencyDaily,
		Active:    true,
	}
	if err := e.db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}
	return &habit
}

func reloadUser(t *testing.T, e *Engine, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := e.db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &user
}

func reloadHabit(t *testing.T, e *Engine, id uint) *models.Habit {
	t.Helper()
	var habit models.Habit
	if err := e.db.First(&habit, id).Error; err != nil {
		t.Fatalf("reload habit: %v", err)
	}
	return &habit
}

func TestMarkHabitIdempotent(t *testing.T) {
	day := date(2025, time.June, 2)
	clock := &testClock{now: day.Add(9 * time.Hour)}
	e := newTestEngine(t, clock)
	user := createUser(t, e)
	habit := createHabit(t, e, user.ID, "Leer")

	res, err := e.MarkHabit(user.ID, habit.ID, day, true, nil, nil)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !res.JustCompleted || res.XP == nil {
		t.Fatal("first mark must transition and award XP")
	}
	if !res.AllCompleted {
		t.Error("completing the only habit must complete the day")
	}
	// habit_complete 10 + all_habits_complete 25 + first_habit badge 10.
	if got := reloadUser(t, e, user.ID).XP; got != 45 {
		t.Errorf("XP after first mark = %d, want 45", got)
	}
	firstStamp := res.Log.CompletedAt
	if firstStamp == nil {
		t.Fatal("completed_at must be stamped on the false→true transition")
	}

	clock.now = clock.now.Add(2 * time.Hour)
	res2, err := e.MarkHabit(user.ID, habit.ID, day, true, nil, nil)
	if err != nil {
		t.Fatalf("re-mark: %v", err)
	}
	if res2.JustCompleted || res2.XP != nil || len(res2.NewAchievements) != 0 {
		t.Error("re-marking a completed habit must be a no-op")
	}
	if got := reloadUser(t, e, user.ID).XP; got != 45 {
		t.Errorf("XP after re-mark = %d, want 45", got)
	}
	if got := reloadHabit(t, e, habit.ID).CurrentStreak; got != 1 {
		t.Errorf("streak after re-mark = %d, want 1", got)
	}
	if !res2.Log.CompletedAt.Equal(*firstStamp) {
		t.Error("re-mark must not re-stamp completed_at")
	}
}

func TestUnmarkResetsHabitStreak(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	habit := createHabit(t, e, user.ID, "Meditar")

	if _, err := e.MarkHabit(user.ID, habit.ID, day, true, nil, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	e.db.Model(habit).Updates(map[string]interface{}{"current_streak": 5, "best_streak": 5})

	res, err := e.MarkHabit(user.ID, habit.ID, day, false, nil, nil)
	if err != nil {
		t.Fatalf("unmark: %v", err)
	}
	if !res.JustUncompleted {
		t.Fatal("unmark must report the true→false transition")
	}
	if res.Log.CompletedAt != nil {
		t.Error("unmark must clear completed_at")
	}
	if got := reloadHabit(t, e, habit.ID).CurrentStreak; got != 0 {
		t.Errorf("streak after unmark = %d, want 0", got)
	}
	if got := reloadHabit(t, e, habit.ID).BestStreak; got != 5 {
		t.Errorf("best streak after unmark = %d, want 5", got)
	}
}

func TestHabitStreakChainsOnYesterday(t *testing.T) {
	today := date(2025, time.June, 8)
	e := newTestEngine(t, &testClock{now: today})
	user := createUser(t, e)
	habit := createHabit(t, e, user.ID, "Correr")

	yesterday := models.DateKey(today.AddDate(0, 0, -1))
	e.db.Create(&models.HabitLog{UserID: user.ID, HabitID: habit.ID, Date: yesterday, Completed: true})
	e.db.Model(habit).Updates(map[string]interface{}{"current_streak": 6, "best_streak": 6})

	if _, err := e.MarkHabit(user.ID, habit.ID, today, true, nil, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	h := reloadHabit(t, e, habit.ID)
	if h.CurrentStreak != 7 || h.BestStreak != 7 {
		t.Errorf("streak = %d/%d, want 7/7", h.CurrentStreak, h.BestStreak)
	}
}

func TestGlobalStreakExtendsOnLastHabit(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	h1 := createHabit(t, e, user.ID, "Leer")
	h2 := createHabit(t, e, user.ID, "Meditar")
	h3 := createHabit(t, e, user.ID, "Correr")

	for i, h := range []*models.Habit{h1, h2} {
		res, err := e.MarkHabit(user.ID, h.ID, day, true, nil, nil)
		if err != nil {
			t.Fatalf("mark %d: %v", i, err)
		}
		if res.AllCompleted {
			t.Fatalf("mark %d must not complete the day", i)
		}
		if got := reloadUser(t, e, user.ID).GlobalStreak; got != 0 {
			t.Fatalf("global streak after mark %d = %d, want 0", i, got)
		}
	}

	res, err := e.MarkHabit(user.ID, h3.ID, day, true, nil, nil)
	if err != nil {
		t.Fatalf("last mark: %v", err)
	}
	if !res.AllCompleted {
		t.Fatal("last mark must complete the day")
	}
	if got := reloadUser(t, e, user.ID).GlobalStreak; got != 1 {
		t.Errorf("global streak = %d, want 1", got)
	}
}

func TestGlobalStreakNoMiddayReset(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	h1 := createHabit(t, e, user.ID, "Leer")
	h2 := createHabit(t, e, user.ID, "Meditar")
	createHabit(t, e, user.ID, "Correr")
	e.db.Model(user).Updates(map[string]interface{}{"global_streak": 4, "best_global_streak": 4})

	for _, h := range []*models.Habit{h1, h2} {
		if _, err := e.MarkHabit(user.ID, h.ID, day, true, nil, nil); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if got := reloadUser(t, e, user.ID).GlobalStreak; got != 4 {
		t.Errorf("global streak mid-day = %d, want 4 (reset belongs to reconciliation)", got)
	}
}

func TestReconcileDayBreaksStreak(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	createHabit(t, e, user.ID, "Leer")
	e.db.Model(user).Updates(map[string]interface{}{"global_streak": 10, "best_global_streak": 12})

	broken, old, err := e.ReconcileDay(user.ID, day)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !broken || old != 10 {
		t.Errorf("reconcile = (%v, %d), want (true, 10)", broken, old)
	}
	u := reloadUser(t, e, user.ID)
	if u.GlobalStreak != 0 {
		t.Errorf("global streak = %d, want 0", u.GlobalStreak)
	}
	if u.BestGlobalStreak != 12 {
		t.Errorf("best global streak = %d, want 12 (never reset)", u.BestGlobalStreak)
	}

	broken, _, err = e.ReconcileDay(user.ID, day)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if broken {
		t.Error("a streak already at 0 must not report broken again")
	}
}

func TestReconcileDaySkipsVacation(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	createHabit(t, e, user.ID, "Leer")
	e.db.Model(user).Updates(map[string]interface{}{"global_streak": 4, "mode": string(models.ModeVacation)})

	broken, _, err := e.ReconcileDay(user.ID, day)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if broken {
		t.Error("vacation mode must not break streaks")
	}
	if got := reloadUser(t, e, user.ID).GlobalStreak; got != 4 {
		t.Errorf("global streak = %d, want 4", got)
	}
}

func TestReconcileDayCompleteDayKeepsStreak(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	habit := createHabit(t, e, user.ID, "Leer")

	if _, err := e.MarkHabit(user.ID, habit.ID, day, true, nil, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	broken, _, err := e.ReconcileDay(user.ID, day)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if broken {
		t.Error("a fully completed day must not break the streak")
	}
	if got := reloadUser(t, e, user.ID).GlobalStreak; got != 1 {
		t.Errorf("global streak = %d, want 1", got)
	}
}

func TestAwardActionMultiplier(t *testing.T) {
	e := newTestEngine(t, &testClock{now: date(2025, time.June, 2)})
	user := createUser(t, e)

	// base 10 at an 8-day streak lands in the 7-day bracket: floor(10*1.5).
	res, err := e.AwardAction(user.ID, ActionHabitComplete, 8)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if res.XPEarned != 15 {
		t.Errorf("earned = %d, want 15", res.XPEarned)
	}

	res, err = e.AwardAction(user.ID, "not_a_thing", 0)
	if err != nil {
		t.Fatalf("award unknown: %v", err)
	}
	if res.XPEarned != 0 {
		t.Errorf("unknown action earned = %d, want 0", res.XPEarned)
	}
	if got := reloadUser(t, e, user.ID).XP; got != 15 {
		t.Errorf("XP = %d, want 15", got)
	}
}

func TestAchievementEvaluationIdempotent(t *testing.T) {
	e := newTestEngine(t, &testClock{now: date(2025, time.June, 2)})
	user := createUser(t, e)
	e.db.Model(user).Update("global_streak", 3)

	first, err := e.EvaluateAchievements(user.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	found := false
	for _, a := range first {
		if a.Code == "streak_3" {
			found = true
		}
	}
	if !found {
		t.Fatal("streak_3 must unlock at a 3-day global streak")
	}
	xpAfter := reloadUser(t, e, user.ID).XP

	second, err := e.EvaluateAchievements(user.ID)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second evaluation unlocked %d achievements, want 0", len(second))
	}
	if got := reloadUser(t, e, user.ID).XP; got != xpAfter {
		t.Errorf("XP = %d, want %d (no double grant)", got, xpAfter)
	}
}

func TestIncrementQuantityAutoCompletes(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	habit := &models.Habit{
		UserID:         user.ID,
		Name:           "Agua",
		HabitType:      models.HabitTypeQuantity,
		TargetQuantity: 8,
		QuantityUnit:   "vasos",
		Frequency:      models.FrequencyDaily,
		Active:         true,
	}
	if err := e.db.Create(habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	res, err := e.IncrementHabitQuantity(user.ID, habit.ID, day, 3)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if res.JustCompleted || res.Log.Completed {
		t.Error("3 of 8 must not complete the habit")
	}

	res, err = e.IncrementHabitQuantity(user.ID, habit.ID, day, 5)
	if err != nil {
		t.Fatalf("increment to target: %v", err)
	}
	if !res.JustCompleted {
		t.Error("reaching the target must auto-complete")
	}
	xpAfter := reloadUser(t, e, user.ID).XP

	res, err = e.IncrementHabitQuantity(user.ID, habit.ID, day, 1)
	if err != nil {
		t.Fatalf("increment past target: %v", err)
	}
	if res.JustCompleted {
		t.Error("incrementing past the target must not re-complete")
	}
	if res.Log.QuantityLogged != 9 {
		t.Errorf("quantity = %v, want 9", res.Log.QuantityLogged)
	}
	if got := reloadUser(t, e, user.ID).XP; got != xpAfter {
		t.Errorf("XP = %d, want %d (no double grant)", got, xpAfter)
	}
}

func TestIncrementBooleanHabitRejected(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	habit := createHabit(t, e, user.ID, "Leer")

	_, err := e.IncrementHabitQuantity(user.ID, habit.ID, day, 1)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestMarkHabitUnknownIDs(t *testing.T) {
	day := date(2025, time.June, 2)
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)

	_, err := e.MarkHabit(user.ID, 999, day, true, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown habit: err = %v, want ErrNotFound", err)
	}
	_, err = e.MarkHabit(999, 1, day, true, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestGetDaySummary(t *testing.T) {
	day := date(2025, time.June, 2) // a Monday
	e := newTestEngine(t, &testClock{now: day})
	user := createUser(t, e)
	h1 := createHabit(t, e, user.ID, "Leer")
	createHabit(t, e, user.ID, "Meditar")

	weekend := models.Habit{
		UserID:       user.ID,
		Name:         "Senderismo",
		HabitType:    models.HabitTypeBoolean,
		Frequency:    models.FrequencySpecificDays,
		SpecificDays: []string{"sat", "sun"},
		Active:       true,
	}
	if err := e.db.Create(&weekend).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	if _, err := e.MarkHabit(user.ID, h1.ID, day, true, nil, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}

	sum, err := e.GetDaySummary(user.ID, day)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 2 {
		t.Errorf("total = %d, want 2 (weekend habit not applicable on Monday)", sum.Total)
	}
	if sum.Completed != 1 || sum.Percentage != 50 {
		t.Errorf("completed = %d (%.0f%%), want 1 (50%%)", sum.Completed, sum.Percentage)
	}
	pending := sum.Pending()
	if len(pending) != 1 || pending[0].Name != "Meditar" {
		t.Errorf("pending = %+v, want just Meditar", pending)
	}
}
