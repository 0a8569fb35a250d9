package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// RoutineController handles routines and their ordered steps.
type RoutineController struct {
	db     *gorm.DB
	engine *engine.Engine
}

func NewRoutineController(db *gorm.DB, eng *engine.Engine) *RoutineController {
	return &RoutineController{db: db, engine: eng}
}

type routineStepRequest struct {
	Description     string `json:"description" binding:"required,min=1,max=200"`
	DurationMinutes int    `json:"duration_minutes"`
	LinkedHabitID   *uint  `json:"linked_habit_id"`
}

type routineRequest struct {
	Name          string               `json:"name" binding:"required,min=1,max=100"`
	Icon          string               `json:"icon"`
	Description   string               `json:"description"`
	ScheduledTime string               `json:"scheduled_time"`
	ScheduledDays []string             `json:"scheduled_days"`
	Order         int                  `json:"order"`
	Steps         []routineStepRequest `json:"steps"`
}

func (r *routineRequest) validate(db *gorm.DB, userID uint) (int, string) {
	if r.ScheduledTime != "" {
		if _, err := time.Parse("15:04", r.ScheduledTime); err != nil {
			return 40002, "scheduled_time must be HH:MM"
		}
	}
	for _, d := range r.ScheduledDays {
		if !validWeekdays[strings.ToLower(strings.TrimSpace(d))] {
			return 40002, "scheduled_days entries must be mon..sun"
		}
	}
	for _, step := range r.Steps {
		if step.LinkedHabitID == nil {
			continue
		}
		var habit models.Habit
		if err := db.Where("id = ? AND user_id = ?", *step.LinkedHabitID, userID).First(&habit).Error; err != nil {
			return 40401, "linked habit not found"
		}
	}
	return 0, ""
}

// List returns the user's routines with steps preloaded.
func (r *RoutineController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var routines []models.Routine
	err := r.db.Where("user_id = ?", userID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order") }).
		Order("sort_order, id").Find(&routines).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list routines")
		return
	}
	utils.Success(ctx, routines)
}

// Create adds a routine with its steps.
func (r *RoutineController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req routineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if code, msg := req.validate(r.db, userID); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	routine := models.Routine{
		UserID:        userID,
		Name:          utils.Sanitize(strings.TrimSpace(req.Name)),
		Icon:          req.Icon,
		Description:   utils.Sanitize(req.Description),
		ScheduledTime: req.ScheduledTime,
		ScheduledDays: normalizeDays(req.ScheduledDays),
		Active:        true,
		Order:         req.Order,
	}
	for i, step := range req.Steps {
		routine.Steps = append(routine.Steps, models.RoutineStep{
			UserID:          userID,
			StepOrder:       i + 1,
			Description:     utils.Sanitize(strings.TrimSpace(step.Description)),
			DurationMinutes: step.DurationMinutes,
			LinkedHabitID:   step.LinkedHabitID,
		})
	}
	if err := r.db.Create(&routine).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to create routine")
		return
	}
	utils.Success(ctx, routine)
}

// Get returns one routine with steps.
func (r *RoutineController) Get(ctx *gin.Context) {
	routine, ok := r.owned(ctx, true)
	if !ok {
		return
	}
	utils.Success(ctx, routine)
}

// Update replaces a routine's fields and its full step list.
func (r *RoutineController) Update(ctx *gin.Context) {
	routine, ok := r.owned(ctx, false)
	if !ok {
		return
	}
	var req routineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if code, msg := req.validate(r.db, routine.UserID); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		routine.Name = utils.Sanitize(strings.TrimSpace(req.Name))
		routine.Icon = req.Icon
		routine.Description = utils.Sanitize(req.Description)
		routine.ScheduledTime = req.ScheduledTime
		routine.ScheduledDays = normalizeDays(req.ScheduledDays)
		routine.Order = req.Order
		if err := tx.Save(routine).Error; err != nil {
			return err
		}
		if err := tx.Where("routine_id = ?", routine.ID).Delete(&models.RoutineStep{}).Error; err != nil {
			return err
		}
		for i, step := range req.Steps {
			row := models.RoutineStep{
				UserID:          routine.UserID,
				RoutineID:       routine.ID,
				StepOrder:       i + 1,
				Description:     utils.Sanitize(strings.TrimSpace(step.Description)),
				DurationMinutes: step.DurationMinutes,
				LinkedHabitID:   step.LinkedHabitID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to update routine")
		return
	}
	r.db.Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order") }).
		First(routine, routine.ID)
	utils.Success(ctx, routine)
}

// Delete removes a routine and its steps.
func (r *RoutineController) Delete(ctx *gin.Context) {
	routine, ok := r.owned(ctx, false)
	if !ok {
		return
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("routine_id = ?", routine.ID).Delete(&models.RoutineStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(routine).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to delete routine")
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

// CompleteStep marks one step done for today. A step linked to a habit marks
// the habit through the engine; finishing the last step awards routine XP.
func (r *RoutineController) CompleteStep(ctx *gin.Context) {
	user, ok := fetchUser(ctx, r.db)
	if !ok {
		return
	}
	routineID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	stepID, ok := pathID(ctx, "step_id")
	if !ok {
		return
	}
	var routine models.Routine
	err := r.db.Where("id = ? AND user_id = ?", routineID, user.ID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order") }).
		First(&routine).Error
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40404, "routine not found")
		return
	}
	var step *models.RoutineStep
	for i := range routine.Steps {
		if routine.Steps[i].ID == stepID {
			step = &routine.Steps[i]
			break
		}
	}
	if step == nil {
		utils.Error(ctx, http.StatusNotFound, 40405, "step not found")
		return
	}

	day, ok := queryDay(ctx, user)
	if !ok {
		return
	}

	response := gin.H{"step_id": step.ID}
	if step.LinkedHabitID != nil {
		result, err := r.engine.MarkHabit(user.ID, *step.LinkedHabitID, day, true, nil, nil)
		if err != nil && !errors.Is(err, engine.ErrNotFound) {
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to mark linked habit")
			return
		}
		if result != nil {
			response["habit_result"] = result
		}
	}

	lastStep := len(routine.Steps) > 0 && routine.Steps[len(routine.Steps)-1].ID == step.ID
	if lastStep {
		xp, err := r.engine.AwardAction(user.ID, engine.ActionRoutineComplete, user.GlobalStreak)
		if err == nil {
			response["routine_completed"] = true
			response["xp"] = xp
		}
	}
	utils.Success(ctx, response)
}

func (r *RoutineController) owned(ctx *gin.Context, withSteps bool) (*models.Routine, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	query := r.db.Where("id = ? AND user_id = ?", id, userID)
	if withSteps {
		query = query.Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order") })
	}
	var routine models.Routine
	if err := query.First(&routine).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40404, "routine not found")
		return nil, false
	}
	return &routine, true
}

func normalizeDays(days []string) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(strings.TrimSpace(d)))
	}
	return out
}
