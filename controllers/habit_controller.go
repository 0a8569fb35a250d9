package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// HabitController handles habit CRUD and completion endpoints.
type HabitController struct {
	db     *gorm.DB
	engine *engine.Engine
}

func NewHabitController(db *gorm.DB, eng *engine.Engine) *HabitController {
	return &HabitController{db: db, engine: eng}
}

type habitRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=100"`
	Icon           string   `json:"icon"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	HabitType      string   `json:"habit_type"`
	TargetQuantity float64  `json:"target_quantity"`
	QuantityUnit   string   `json:"quantity_unit"`
	Frequency      string   `json:"frequency"`
	SpecificDays   []string `json:"specific_days"`
	TimesPerWeek   int      `json:"times_per_week"`
	Order          int      `json:"order"`
}

var validWeekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

func (r *habitRequest) apply(habit *models.Habit) (int, string) {
	habitType := models.HabitTypeBoolean
	if r.HabitType != "" {
		parsed, err := models.ParseHabitType(r.HabitType)
		if err != nil {
			return 40002, "unknown habit_type"
		}
		habitType = parsed
	}
	frequency := models.FrequencyDaily
	if r.Frequency != "" {
		parsed, err := models.ParseHabitFrequency(r.Frequency)
		if err != nil {
			return 40002, "unknown frequency"
		}
		frequency = parsed
	}
	if habitType == models.HabitTypeQuantity && r.TargetQuantity <= 0 {
		return 40002, "quantity habits need a positive target_quantity"
	}
	days := make([]string, 0, len(r.SpecificDays))
	for _, d := range r.SpecificDays {
		d = strings.ToLower(strings.TrimSpace(d))
		if !validWeekdays[d] {
			return 40002, "specific_days entries must be mon..sun"
		}
		days = append(days, d)
	}
	if frequency == models.FrequencySpecificDays && len(days) == 0 {
		return 40002, "specific_days frequency needs at least one day"
	}

	habit.Name = utils.Sanitize(strings.TrimSpace(r.Name))
	habit.Icon = r.Icon
	habit.Category = r.Category
	habit.Description = utils.Sanitize(r.Description)
	habit.HabitType = habitType
	habit.TargetQuantity = r.TargetQuantity
	habit.QuantityUnit = r.QuantityUnit
	habit.Frequency = frequency
	habit.SpecificDays = days
	habit.TimesPerWeek = r.TimesPerWeek
	habit.Order = r.Order
	return 0, ""
}

// List returns the user's habits, active first.
func (h *HabitController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	query := h.db.Where("user_id = ?", userID)
	if ctx.Query("include_archived") != "true" {
		query = query.Where("archived = ?", false)
	}
	var habits []models.Habit
	if err := query.Order("sort_order, id").Find(&habits).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list habits")
		return
	}
	utils.Success(ctx, habits)
}

// Create adds a habit.
func (h *HabitController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req habitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	habit := models.Habit{UserID: userID, Active: true}
	if code, msg := req.apply(&habit); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	if err := h.db.Create(&habit).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to create habit")
		return
	}
	invalidateSummaries(userID)
	utils.Success(ctx, habit)
}

// Get returns one habit.
func (h *HabitController) Get(ctx *gin.Context) {
	habit, ok := h.ownedHabit(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, habit)
}

// Update replaces a habit's editable fields.
func (h *HabitController) Update(ctx *gin.Context) {
	habit, ok := h.ownedHabit(ctx)
	if !ok {
		return
	}
	var req habitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if code, msg := req.apply(habit); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	if err := h.db.Save(habit).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update habit")
		return
	}
	invalidateSummaries(habit.UserID)
	utils.Success(ctx, habit)
}

// Archive hides a habit from daily tracking while keeping its history.
func (h *HabitController) Archive(ctx *gin.Context) {
	h.setArchived(ctx, true)
}

// Unarchive restores an archived habit.
func (h *HabitController) Unarchive(ctx *gin.Context) {
	h.setArchived(ctx, false)
}

func (h *HabitController) setArchived(ctx *gin.Context, archived bool) {
	habit, ok := h.ownedHabit(ctx)
	if !ok {
		return
	}
	if err := h.db.Model(habit).Update("archived", archived).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update habit")
		return
	}
	invalidateSummaries(habit.UserID)
	utils.Success(ctx, habit)
}

// Delete hard-deletes a habit and its logs.
func (h *HabitController) Delete(ctx *gin.Context) {
	habit, ok := h.ownedHabit(ctx)
	if !ok {
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.HabitLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(habit).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to delete habit")
		return
	}
	invalidateSummaries(habit.UserID)
	utils.Success(ctx, gin.H{"ok": true})
}

// Log marks or un-marks a habit for a day and returns the completion result.
func (h *HabitController) Log(ctx *gin.Context) {
	user, ok := fetchUser(ctx, h.db)
	if !ok {
		return
	}
	habitID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Completed *bool    `json:"completed" binding:"required"`
		Quantity  *float64 `json:"quantity"`
		Note      *string  `json:"note"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	result, err := h.engine.MarkHabit(user.ID, habitID, day, *req.Completed, req.Quantity, req.Note)
	if err != nil {
		h.engineError(ctx, err)
		return
	}
	invalidateSummaries(user.ID)
	utils.Success(ctx, result)
}

// Increment adds logged quantity to a quantity habit for a day.
func (h *HabitController) Increment(ctx *gin.Context) {
	user, ok := fetchUser(ctx, h.db)
	if !ok {
		return
	}
	habitID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Delta <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "delta must be positive")
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	result, err := h.engine.IncrementHabitQuantity(user.ID, habitID, day, req.Delta)
	if err != nil {
		h.engineError(ctx, err)
		return
	}
	invalidateSummaries(user.ID)
	utils.Success(ctx, result)
}

// Today returns the day summary for the user's current local date.
func (h *HabitController) Today(ctx *gin.Context) {
	user, ok := fetchUser(ctx, h.db)
	if !ok {
		return
	}
	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	key := summaryCacheKey(user.ID, day)
	if b, hit := utils.CacheGetBytes(key); hit {
		utils.Success(ctx, json.RawMessage(b))
		return
	}
	summary, err := h.engine.GetDaySummary(user.ID, day)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to build summary")
		return
	}
	utils.CacheSetJSON(key, summary, time.Minute)
	utils.Success(ctx, summary)
}

func summaryCacheKey(userID uint, day time.Time) string {
	return fmt.Sprintf("summary:%d:%s", userID, models.DateKey(day))
}

func invalidateSummaries(userID uint) {
	utils.InvalidateByPrefix(fmt.Sprintf("summary:%d:", userID))
}

// Week returns seven day summaries starting from ?start or the current week's Monday.
func (h *HabitController) Week(ctx *gin.Context) {
	user, ok := fetchUser(ctx, h.db)
	if !ok {
		return
	}
	var start time.Time
	if raw := ctx.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "start must be YYYY-MM-DD")
			return
		}
		start = parsed
	} else {
		today, _ := queryDay(ctx, user)
		start = today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	}
	summary, err := h.engine.GetWeekSummary(user.ID, start)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to build summary")
		return
	}
	utils.Success(ctx, summary)
}

// History returns the recent completion trail of one habit.
func (h *HabitController) History(ctx *gin.Context) {
	user, ok := fetchUser(ctx, h.db)
	if !ok {
		return
	}
	habitID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	days := 30
	if raw := ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			utils.Error(ctx, http.StatusBadRequest, 40003, "days must be 1..365")
			return
		}
		days = parsed
	}
	end, ok := queryDay(ctx, user)
	if !ok {
		return
	}
	history, err := h.engine.GetHabitHistory(user.ID, habitID, end, days)
	if err != nil {
		h.engineError(ctx, err)
		return
	}
	utils.Success(ctx, history)
}

func (h *HabitController) ownedHabit(ctx *gin.Context) (*models.Habit, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	habitID, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	var habit models.Habit
	err := h.db.Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "habit not found")
		return nil, false
	}
	return &habit, true
}

func (h *HabitController) engineError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "habit not found")
	case errors.Is(err, engine.ErrInvalidState):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50025, "operation failed")
	}
}
