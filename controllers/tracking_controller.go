package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// TrackingController handles the daily mood and water logs.
type TrackingController struct {
	db     *gorm.DB
	engine *engine.Engine
}

func NewTrackingController(db *gorm.DB, eng *engine.Engine) *TrackingController {
	return &TrackingController{db: db, engine: eng}
}

// LogMood records the mood for a day. The first log of a day awards XP;
// later edits only update the row.
func (t *TrackingController) LogMood(ctx *gin.Context) {
	user, ok := fetchUser(ctx, t.db)
	if !ok {
		return
	}
	var req struct {
		Level int    `json:"level" binding:"required"`
		Note  string `json:"note"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Level < 1 || req.Level > 5 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "level must be 1..5")
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	date := models.DateKey(day)

	log := models.MoodLog{UserID: user.ID, Date: date, Level: req.Level, Note: utils.Sanitize(req.Note)}
	res := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&log)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to save mood")
		return
	}

	var xp *engine.XPResult
	if res.RowsAffected > 0 {
		awarded, err := t.engine.AwardAction(user.ID, engine.ActionMoodLog, 0)
		if err == nil {
			xp = awarded
		}
	} else {
		err := t.db.Model(&models.MoodLog{}).
			Where("user_id = ? AND date = ?", user.ID, date).
			Updates(map[string]interface{}{"level": req.Level, "note": utils.Sanitize(req.Note)}).Error
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to save mood")
			return
		}
		t.db.Where("user_id = ? AND date = ?", user.ID, date).First(&log)
	}
	utils.Success(ctx, gin.H{"mood": log, "xp": xp})
}

// GetMood returns the mood log for a day, if any.
func (t *TrackingController) GetMood(ctx *gin.Context) {
	user, ok := fetchUser(ctx, t.db)
	if !ok {
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	var log models.MoodLog
	err := t.db.Where("user_id = ? AND date = ?", user.ID, models.DateKey(day)).First(&log).Error
	if err != nil {
		utils.Success(ctx, nil)
		return
	}
	utils.Success(ctx, log)
}

// LogWater sets or increments the water count for a day. Water never awards XP.
func (t *TrackingController) LogWater(ctx *gin.Context) {
	user, ok := fetchUser(ctx, t.db)
	if !ok {
		return
	}
	var req struct {
		Glasses *int `json:"glasses"`
		Add     int  `json:"add"`
		Target  *int `json:"target"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Glasses == nil && req.Add <= 0 && req.Target == nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "nothing to update")
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	date := models.DateKey(day)

	var log models.WaterLog
	err := t.db.Transaction(func(tx *gorm.DB) error {
		row := models.WaterLog{UserID: user.ID, Date: date}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND date = ?", user.ID, date).First(&log).Error; err != nil {
			return err
		}
		if req.Glasses != nil {
			log.Glasses = *req.Glasses
		}
		if req.Add > 0 {
			log.Glasses += req.Add
		}
		if log.Glasses < 0 {
			log.Glasses = 0
		}
		if req.Target != nil && *req.Target > 0 {
			log.Target = *req.Target
		}
		return tx.Save(&log).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to save water log")
		return
	}
	utils.Success(ctx, log)
}

// GetWater returns the water log for a day, zeroed if absent.
func (t *TrackingController) GetWater(ctx *gin.Context) {
	user, ok := fetchUser(ctx, t.db)
	if !ok {
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	var log models.WaterLog
	err := t.db.Where("user_id = ? AND date = ?", user.ID, models.DateKey(day)).First(&log).Error
	if err != nil {
		log = models.WaterLog{UserID: user.ID, Date: models.DateKey(day), Target: 8}
	}
	utils.Success(ctx, log)
}
