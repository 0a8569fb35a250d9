package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/middleware"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// currentUserID reads the authenticated user ID set by the auth middleware.
func currentUserID(ctx *gin.Context) (uint, bool) {
	raw, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return 0, false
	}
	id, ok := raw.(uint)
	if !ok || id == 0 {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
		return 0, false
	}
	return id, true
}

// fetchUser loads the authenticated user row or writes the error response.
func fetchUser(ctx *gin.Context, db *gorm.DB) (*models.User, bool) {
	id, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "account no longer exists")
		return nil, false
	}
	return &user, true
}

// pathID parses a numeric path parameter.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// queryDay parses an optional ?date=YYYY-MM-DD parameter, defaulting to today
// in the user's timezone.
func queryDay(ctx *gin.Context, user *models.User) (time.Time, bool) {
	raw := ctx.Query("date")
	if raw == "" {
		loc, err := time.LoadLocation(user.Timezone)
		if err != nil {
			loc = time.UTC
		}
		return time.Now().In(loc), true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}
