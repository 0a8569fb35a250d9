package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/bot"
	"github.com/PolDiaz18/nexotime/config"
	"github.com/PolDiaz18/nexotime/controllers"
	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/middleware"
	"github.com/PolDiaz18/nexotime/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, eng *engine.Engine, hub *bot.Hub) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	habitController := controllers.NewHabitController(db, eng)
	gamificationController := controllers.NewGamificationController(eng)
	reminderController := controllers.NewReminderController(db)
	routineController := controllers.NewRoutineController(db, eng)
	taskController := controllers.NewTaskController(db, eng)
	trackingController := controllers.NewTrackingController(db, eng)

	// Chat clients connect here; pairing happens via /vincular inside the chat.
	r.GET("/ws", hub.Handler)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/google/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/google/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	authGroup.DELETE("/account", middleware.AuthRequired(), authController.DeleteAccount)
	authGroup.POST("/link-code", middleware.AuthRequired(), authController.LinkCode)
	authGroup.DELETE("/link", middleware.AuthRequired(), authController.UnlinkChat)

	// Public quote endpoint
	api.GET("/quote", gamificationController.Quote)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/habits", habitController.List)
	protected.POST("/habits", habitController.Create)
	protected.GET("/habits/today", habitController.Today)
	protected.GET("/habits/week", habitController.Week)
	protected.GET("/habits/:id", habitController.Get)
	protected.PUT("/habits/:id", habitController.Update)
	protected.DELETE("/habits/:id", habitController.Delete)
	protected.POST("/habits/:id/archive", habitController.Archive)
	protected.POST("/habits/:id/unarchive", habitController.Unarchive)
	protected.POST("/habits/:id/log", habitController.Log)
	protected.POST("/habits/:id/increment", habitController.Increment)
	protected.GET("/habits/:id/history", habitController.History)

	protected.GET("/gamification/level", gamificationController.Level)
	protected.GET("/gamification/achievements", gamificationController.Achievements)
	protected.GET("/gamification/streaks", gamificationController.Streaks)

	protected.GET("/reminders", reminderController.List)
	protected.POST("/reminders", reminderController.Create)
	protected.PUT("/reminders/:id", reminderController.Update)
	protected.POST("/reminders/:id/toggle", reminderController.Toggle)
	protected.DELETE("/reminders/:id", reminderController.Delete)

	protected.GET("/routines", routineController.List)
	protected.POST("/routines", routineController.Create)
	protected.GET("/routines/:id", routineController.Get)
	protected.PUT("/routines/:id", routineController.Update)
	protected.DELETE("/routines/:id", routineController.Delete)
	protected.POST("/routines/:id/steps/:step_id/complete", routineController.CompleteStep)

	protected.GET("/tasks", taskController.List)
	protected.POST("/tasks", taskController.Create)
	protected.PUT("/tasks/:id", taskController.Update)
	protected.POST("/tasks/:id/complete", taskController.Complete)
	protected.POST("/tasks/:id/reopen", taskController.Reopen)
	protected.DELETE("/tasks/:id", taskController.Delete)

	protected.GET("/tracking/mood", trackingController.GetMood)
	protected.POST("/tracking/mood", trackingController.LogMood)
	protected.GET("/tracking/water", trackingController.GetWater)
	protected.POST("/tracking/water", trackingController.LogWater)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
