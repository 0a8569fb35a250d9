package main

import (
	"context"

	"github.com/PolDiaz18/nexotime/bot"
	"github.com/PolDiaz18/nexotime/config"
	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/routes"
	"github.com/PolDiaz18/nexotime/scheduler"
	"github.com/PolDiaz18/nexotime/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	if cfg.JWTSecret == "" {
		utils.Sugar.Fatal("JWT_SECRET must be set in environment variables")
	}

	db := config.InitDatabase(
		&models.User{}, &models.Habit{}, &models.HabitLog{},
		&models.Achievement{}, &models.UserAchievement{},
		&models.Reminder{}, &models.Routine{}, &models.RoutineStep{},
		&models.Task{}, &models.MoodLog{}, &models.WaterLog{}, &models.Quote{},
	)

	eng := engine.New(db, engine.SystemClock())
	if err := engine.SeedAchievements(db); err != nil {
		utils.Sugar.Fatalf("failed to seed achievements: %v", err)
	}
	if err := engine.SeedQuotes(db); err != nil {
		utils.Sugar.Fatalf("failed to seed quotes: %v", err)
	}

	hub := bot.NewHub(db, eng, engine.SystemClock(), utils.Logger)

	if cfg.SchedulerEnabled {
		sched := scheduler.New(db, eng, hub, engine.SystemClock(), utils.Logger, scheduler.Options{
			DefaultTimezone:      cfg.DefaultTimezone,
			StreakNotifyMinimum:  cfg.StreakNotifyMinimum,
			ReconcileLocalMinute: cfg.ReconcileLocalMinute,
		})
		go sched.Run(context.Background())
		utils.Sugar.Info("reminder scheduler started")
	}

	r := routes.SetupRouter(db, eng, hub)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
