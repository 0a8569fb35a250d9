package bot

import (
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

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestHub(t *testing.T, now time.Time) (*Hub, *gorm.DB) {
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
		&models.MoodLog{}, &models.WaterLog{}, &models.Quote{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(db, fixedClock{t: now})
	h := NewHub(db, eng, fixedClock{t: now}, nil)
	// No cache backend in tests.
	h.invalidate = func(uint) {}
	return h, db
}

func seedLinkedUser(t *testing.T, db *gorm.DB) (*models.User, *Client) {
	t.Helper()
	user := models.User{
		Email:    fmt.Sprintf("%s@test.local", strings.ReplaceAll(t.Name(), "/", "_")),
		Name:     "Tester",
		ChatID:   "chat-1",
		Timezone: "UTC",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user, &Client{chatID: user.ChatID, userID: user.ID}
}

func TestUnlinkedSessionPrompted(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, _ := newTestHub(t, now)
	c := &Client{chatID: "anon"}

	reply := h.handleCommand(c, "/hoy")
	if !strings.Contains(reply, "/vincular") {
		t.Errorf("reply = %q, want a prompt to link the chat", reply)
	}
}

func TestTodayAndMarkByPosition(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, db := newTestHub(t, now)
	user, c := seedLinkedUser(t, db)
	for _, name := range []string{"Leer", "Meditar"} {
		habit := models.Habit{UserID: user.ID, Name: name, HabitType: models.HabitTypeBoolean, Frequency: models.FrequencyDaily, Active: true}
		if err := db.Create(&habit).Error; err != nil {
			t.Fatalf("create habit: %v", err)
		}
	}

	reply := h.handleCommand(c, "/hoy")
	if !strings.Contains(reply, "1. ⬜") || !strings.Contains(reply, "Leer") {
		t.Fatalf("today = %q, want a numbered habit list", reply)
	}

	reply = h.handleCommand(c, "/hecho 1")
	if !strings.Contains(reply, "Leer completado") || !strings.Contains(reply, "+10 XP") {
		t.Errorf("mark reply = %q, want completion with XP", reply)
	}

	reply = h.handleCommand(c, "/hecho 1")
	if !strings.Contains(reply, "ya estaba completado") {
		t.Errorf("re-mark reply = %q, want the idempotent notice", reply)
	}

	reply = h.handleCommand(c, "/pendiente")
	if !strings.Contains(reply, "Meditar") || strings.Contains(reply, "Leer\n") {
		t.Errorf("pending = %q, want only Meditar", reply)
	}

	reply = h.handleCommand(c, "/hecho 9")
	if !strings.Contains(reply, "Solo hay 2") {
		t.Errorf("out of range reply = %q", reply)
	}
}

func TestUndoByPosition(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, db := newTestHub(t, now)
	user, c := seedLinkedUser(t, db)
	habit := models.Habit{UserID: user.ID, Name: "Leer", HabitType: models.HabitTypeBoolean, Frequency: models.FrequencyDaily, Active: true}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	reply := h.handleCommand(c, "/deshacer 1")
	if !strings.Contains(reply, "no estaba marcado") {
		t.Fatalf("undo before mark reply = %q, want the no-op notice", reply)
	}

	h.handleCommand(c, "/hecho 1")
	reply = h.handleCommand(c, "/deshacer 1")
	if !strings.Contains(reply, "desmarcado") {
		t.Fatalf("undo reply = %q", reply)
	}
	var hb models.Habit
	db.First(&hb, habit.ID)
	if hb.CurrentStreak != 0 {
		t.Errorf("streak after undo = %d, want 0", hb.CurrentStreak)
	}
}

func TestIncrementCommand(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, db := newTestHub(t, now)
	user, c := seedLinkedUser(t, db)
	habit := models.Habit{
		UserID: user.ID, Name: "Agua", HabitType: models.HabitTypeQuantity,
		TargetQuantity: 8, QuantityUnit: "vasos", Frequency: models.FrequencyDaily, Active: true,
	}
	if err := db.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	reply := h.handleCommand(c, "/mas 1 3")
	if !strings.Contains(reply, "3/8") {
		t.Fatalf("increment reply = %q, want progress 3/8", reply)
	}
	reply = h.handleCommand(c, "/mas 1 5")
	if !strings.Contains(reply, "completado") {
		t.Errorf("target reply = %q, want auto-completion", reply)
	}
}

func TestMoodAwardsOnce(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, db := newTestHub(t, now)
	user, c := seedLinkedUser(t, db)
	// An active global streak must not multiply mood XP.
	if err := db.Model(user).Update("global_streak", 7).Error; err != nil {
		t.Fatalf("set streak: %v", err)
	}

	reply := h.handleCommand(c, "/animo 4")
	if !strings.Contains(reply, "+5 XP") {
		t.Fatalf("first mood reply = %q, want +5 XP", reply)
	}
	reply = h.handleCommand(c, "/animo 2")
	if strings.Contains(reply, "XP") {
		t.Errorf("second mood reply = %q, must not re-award", reply)
	}
	var u models.User
	db.First(&u, user.ID)
	if u.XP != 5 {
		t.Errorf("XP = %d, want 5", u.XP)
	}
}

func TestModeAndDNDCommands(t *testing.T) {
	now := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	h, db := newTestHub(t, now)
	user, c := seedLinkedUser(t, db)

	h.handleCommand(c, "/modo vacaciones")
	var u models.User
	db.First(&u, user.ID)
	if u.Mode != models.ModeVacation {
		t.Errorf("mode = %q, want vacation", u.Mode)
	}

	reply := h.handleCommand(c, "/modo siesta")
	if !strings.Contains(reply, "desconocido") {
		t.Errorf("unknown mode reply = %q", reply)
	}

	h.handleCommand(c, "/pausar")
	db.First(&u, user.ID)
	if !u.DoNotDisturb {
		t.Error("pausar must set do_not_disturb")
	}
	h.handleCommand(c, "/reanudar")
	db.First(&u, user.ID)
	if u.DoNotDisturb {
		t.Error("reanudar must clear do_not_disturb")
	}
}
