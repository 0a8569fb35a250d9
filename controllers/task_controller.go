package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/engine"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// TaskController handles one-off tasks.
type TaskController struct {
	db     *gorm.DB
	engine *engine.Engine
}

func NewTaskController(db *gorm.DB, eng *engine.Engine) *TaskController {
	return &TaskController{db: db, engine: eng}
}

type taskRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
}

func (r *taskRequest) apply(task *models.Task) (int, string) {
	priority := models.PriorityMedium
	if r.Priority != "" {
		parsed, err := models.ParseTaskPriority(r.Priority)
		if err != nil {
			return 40002, "unknown priority"
		}
		priority = parsed
	}
	if r.DueDate != "" {
		if _, err := time.Parse("2006-01-02", r.DueDate); err != nil {
			return 40002, "due_date must be YYYY-MM-DD"
		}
	}
	if r.DueTime != "" {
		if _, err := time.Parse("15:04", r.DueTime); err != nil {
			return 40002, "due_time must be HH:MM"
		}
	}
	task.Title = utils.Sanitize(strings.TrimSpace(r.Title))
	task.Description = utils.Sanitize(r.Description)
	task.Priority = priority
	task.DueDate = r.DueDate
	task.DueTime = r.DueTime
	return 0, ""
}

// List returns tasks, pending first.
func (t *TaskController) List(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	query := t.db.Where("user_id = ?", userID)
	if ctx.Query("include_completed") != "true" {
		query = query.Where("completed = ?", false)
	}
	var tasks []models.Task
	if err := query.Order("completed, due_date, id").Find(&tasks).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to list tasks")
		return
	}
	utils.Success(ctx, tasks)
}

// Create adds a task.
func (t *TaskController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req taskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	task := models.Task{UserID: userID}
	if code, msg := req.apply(&task); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	if err := t.db.Create(&task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create task")
		return
	}
	utils.Success(ctx, task)
}

// Update replaces a task's editable fields.
func (t *TaskController) Update(ctx *gin.Context) {
	task, ok := t.owned(ctx)
	if !ok {
		return
	}
	var req taskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if code, msg := req.apply(task); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}
	if err := t.db.Save(task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update task")
		return
	}
	utils.Success(ctx, task)
}

// Complete marks a task done and awards XP once.
func (t *TaskController) Complete(ctx *gin.Context) {
	task, ok := t.owned(ctx)
	if !ok {
		return
	}
	if task.Completed {
		utils.Success(ctx, gin.H{"task": task, "xp": nil})
		return
	}
	now := time.Now()
	updates := map[string]interface{}{"completed": true, "completed_at": &now}
	if err := t.db.Model(task).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update task")
		return
	}
	xp, err := t.engine.AwardAction(task.UserID, engine.ActionTaskComplete, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to award task completion")
		return
	}
	utils.Success(ctx, gin.H{"task": task, "xp": xp})
}

// Reopen clears the completed flag without clawing back XP.
func (t *TaskController) Reopen(ctx *gin.Context) {
	task, ok := t.owned(ctx)
	if !ok {
		return
	}
	updates := map[string]interface{}{"completed": false, "completed_at": nil}
	if err := t.db.Model(task).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update task")
		return
	}
	utils.Success(ctx, task)
}

// Delete removes a task.
func (t *TaskController) Delete(ctx *gin.Context) {
	task, ok := t.owned(ctx)
	if !ok {
		return
	}
	if err := t.db.Delete(task).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to delete task")
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

func (t *TaskController) owned(ctx *gin.Context) (*models.Task, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	var task models.Task
	if err := t.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40406, "task not found")
		return nil, false
	}
	return &task, true
}
