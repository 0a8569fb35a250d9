package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// ReminderController handles the per-user reminder schedule.
type ReminderController struct {
	db *gorm.DB
}

func NewReminderController(db *gorm.DB) *ReminderController {
	return &ReminderController{db: db}
}

type reminderRequest struct {
	Type            string   `json:"type" binding:"required"`
	Time            string   `json:"time" binding:"required"`
	Days            []string `json:"days"`
	Message         string   `json:"message"`
	LinkedRoutineID *uint    `json:"linked_routine_id"`
	Active          *bool    `json:"active"`
}

func (r *reminderRequest) apply(db *gorm.DB, userID uint, rem *models.Reminder) (int, string) {
	remType, err := models.ParseReminderType(r.Type)
	if err != nil {
		return 40002, "unknown reminder type"
	}
	if _, err := time.Parse("15:04", r.Time); err != nil {
		return 40002, "time must be HH:MM"
	}
	days := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		d = strings.ToLower(strings.TrimSpace(d))
		if !validWeekdays[d] {
			return 40002, "days entries must be mon..sun"
		}
		days = append(days, d)
	}
	if remType == models.ReminderRoutine {
		if r.LinkedRoutineID == nil {
			return 40002, "routine reminders need linked_routine_id"
		}
		var routine models.Routine
		if err := db.Where("id = ? AND user_id = ?", *r.LinkedRoutineID, userID).First(&routine).Error; err != nil {
			return 40402, "linked routine not found"
		}
	}

	rem.Type = remType
	rem.Time = r.Time
	rem.Days = days
	rem.Message = utils.Sanitize(r.Message)
	rem.LinkedRoutineID = r.LinkedRoutineID
	rem.Active = true
	if r.Active != nil {
		rem.Active = *r.Active
	}
	return 0, ""
}

// List returns the user's reminders ordered by time of day.
func (r *ReminderController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var reminders []models.Reminder
	if err := r.db.Where("user_id = ?", userID).Order("time, id").Find(&reminders).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list reminders")
		return
	}
	utils.Success(ctx, reminders)
}

// Create adds a reminder.
func (r *ReminderController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req reminderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	rem := models.Reminder{UserID: userID}
	if code, msg := req.apply(r.db, userID, &rem); code != 0 {
		status := http.StatusBadRequest
		if code == 40402 {
			status = http.StatusNotFound
		}
		utils.Error(ctx, status, code, msg)
		return
	}
	if err := r.db.Create(&rem).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create reminder")
		return
	}
	utils.Success(ctx, rem)
}

// Update replaces a reminder's fields.
func (r *ReminderController) Update(ctx *gin.Context) {
	rem, ok := r.owned(ctx)
	if !ok {
		return
	}
	var req reminderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if code, msg := req.apply(r.db, rem.UserID, rem); code != 0 {
		status := http.StatusBadRequest
		if code == 40402 {
			status = http.StatusNotFound
		}
		utils.Error(ctx, status, code, msg)
		return
	}
	if err := r.db.Save(rem).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update reminder")
		return
	}
	utils.Success(ctx, rem)
}

// Toggle flips a reminder's active flag.
func (r *ReminderController) Toggle(ctx *gin.Context) {
	rem, ok := r.owned(ctx)
	if !ok {
		return
	}
	if err := r.db.Model(rem).Update("active", !rem.Active).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update reminder")
		return
	}
	utils.Success(ctx, rem)
}

// Delete removes a reminder.
func (r *ReminderController) Delete(ctx *gin.Context) {
	rem, ok := r.owned(ctx)
	if !ok {
		return
	}
	if err := r.db.Delete(rem).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to delete reminder")
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

func (r *ReminderController) owned(ctx *gin.Context) (*models.Reminder, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	var rem models.Reminder
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&rem).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "reminder not found")
		return nil, false
	}
	return &rem, true
}
