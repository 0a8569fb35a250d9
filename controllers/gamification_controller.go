package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/utils"
)

// GamificationController exposes level, streak, achievement and quote reads.
type GamificationController struct {
	engine *engine.Engine
}

func NewGamificationController(eng *engine.Engine) *GamificationController {
	return &GamificationController{engine: eng}
}

// Level returns XP, level and progress toward the next level.
func (g *GamificationController) Level(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	info, err := g.engine.GetLevelInfo(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load level info")
		return
	}
	utils.Success(ctx, info)
}

// Achievements returns the full catalog with unlock state.
func (g *GamificationController) Achievements(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	list, err := g.engine.ListAchievements(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load achievements")
		return
	}
	utils.Success(ctx, list)
}

// Streaks returns the global streak and the per-habit streak table.
func (g *GamificationController) Streaks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	streaks, err := g.engine.GetStreaks(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load streaks")
		return
	}
	utils.Success(ctx, streaks)
}

// Quote returns a random motivational quote. Public, no auth required.
func (g *GamificationController) Quote(ctx *gin.Context) {
	quote, err := g.engine.RandomQuote()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load quote")
		return
	}
	utils.Success(ctx, quote)
}
