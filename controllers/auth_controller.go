package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/config"
	"github.com/PolDiaz18/nexotime/models"
	"github.com/PolDiaz18/nexotime/utils"
)

// AuthController handles registration, login, Google OAuth and account
// settings.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// defaultReminders is the reminder set every new account starts with.
var defaultReminders = []struct {
	Type models.ReminderType
	Time string
}{
	{models.ReminderMorning, "07:00"},
	{models.ReminderMidday, "14:00"},
	{models.ReminderEvening, "20:00"},
	{models.ReminderNight, "22:30"},
	{models.ReminderSummary, "23:00"},
}

// Register creates an account plus its default reminder set.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name" binding:"required,min=2,max=80"`
		Password string `json:"password" binding:"required,min=6,max=72"`
		Timezone string `json:"timezone"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "too many attempts, try again later")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, slow down")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var existing models.User
	if err := a.db.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	}

	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40002, "unknown timezone")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Email:        email,
		Name:         utils.Sanitize(strings.TrimSpace(req.Name)),
		PasswordHash: hash,
		Timezone:     req.Timezone,
	}
	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		for _, r := range defaultReminders {
			rem := models.Reminder{UserID: user.ID, Type: r.Type, Time: r.Time, Active: true}
			if err := tx.Create(&rem).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		fails := utils.RegistrationFailRecord(ip)
		if fails >= 5 {
			utils.RegistrationBan(ip)
		}
		return
	}
	utils.RegistrationDailyIncrement(ip)

	token, err := utils.GenerateToken(user.ID, user.Email, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid email or password")
		return
	}

	now := time.Now()
	a.db.Model(&user).Update("last_active", now)

	token, err := utils.GenerateToken(user.ID, user.Email, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40102, "invalid authorization header format")
		return
	}
	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	utils.BlacklistToken(token, claims.ExpiresAt.Time)
	utils.Success(ctx, gin.H{"ok": true})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := fetchUser(ctx, a.db)
	if !ok {
		return
	}
	utils.Success(ctx, user)
}

// UpdateProfile patches mutable account settings.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	user, ok := fetchUser(ctx, a.db)
	if !ok {
		return
	}
	var req struct {
		Name                *string `json:"name"`
		Timezone            *string `json:"timezone"`
		Mode                *string `json:"mode"`
		DoNotDisturb        *bool   `json:"do_not_disturb"`
		OnboardingCompleted *bool   `json:"onboarding_completed"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := utils.Sanitize(strings.TrimSpace(*req.Name))
		if len(name) < 2 {
			utils.Error(ctx, http.StatusBadRequest, 40002, "name too short")
			return
		}
		updates["name"] = name
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40002, "unknown timezone")
			return
		}
		updates["timezone"] = *req.Timezone
	}
	if req.Mode != nil {
		mode, err := models.ParseUserMode(*req.Mode)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40002, "unknown mode")
			return
		}
		updates["mode"] = string(mode)
	}
	if req.DoNotDisturb != nil {
		updates["do_not_disturb"] = *req.DoNotDisturb
	}
	if req.OnboardingCompleted != nil {
		updates["onboarding_completed"] = *req.OnboardingCompleted
	}
	if len(updates) == 0 {
		utils.Success(ctx, user)
		return
	}
	if err := a.db.Model(user).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to update profile")
		return
	}
	utils.Success(ctx, user)
}

// DeleteAccount removes the user and all owned rows.
func (a *AuthController) DeleteAccount(ctx *gin.Context) {
	user, ok := fetchUser(ctx, a.db)
	if !ok {
		return
	}
	err := a.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.HabitLog{}, &models.Habit{}, &models.Reminder{},
			&models.RoutineStep{}, &models.Routine{}, &models.Task{},
			&models.MoodLog{}, &models.WaterLog{}, &models.UserAchievement{},
		} {
			if err := tx.Where("user_id = ?", user.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to delete account")
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

// LinkCode mints a short-lived code the chat client redeems with /vincular.
func (a *AuthController) LinkCode(ctx *gin.Context) {
	user, ok := fetchUser(ctx, a.db)
	if !ok {
		return
	}
	code := utils.GenerateVerificationCode(6)
	utils.SaveLinkCode(code, user.ID, 10*time.Minute)
	utils.Success(ctx, gin.H{"code": code, "expires_in": 600})
}

// UnlinkChat removes the chat pairing.
func (a *AuthController) UnlinkChat(ctx *gin.Context) {
	user, ok := fetchUser(ctx, a.db)
	if !ok {
		return
	}
	if err := a.db.Model(user).Update("chat_id", "").Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to unlink chat")
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

// OAuthRedirect starts the Google OAuth flow.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	info, err := fetchGoogleUser(cfg, token)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to fetch user info")
		return
	}
	user, err := a.findOrCreateOAuthUser(info)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Email, 72*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": jwtToken, "user": user})
}

type googleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *AuthController) oauthConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, errors.New("google oauth is not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.OAuthRedirectBase, "/") + "/api/auth/oauth/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, nil
}

func fetchGoogleUser(cfg *oauth2.Config, token *oauth2.Token) (*googleUser, error) {
	client := cfg.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}
	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}
	return &info, nil
}

func (a *AuthController) findOrCreateOAuthUser(info *googleUser) (*models.User, error) {
	email := strings.ToLower(info.Email)
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "google", info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	// An existing password account with the same email gets the provider attached.
	if err := a.db.Where("email = ?", email).First(&user).Error; err == nil {
		if err := a.db.Model(&user).Updates(map[string]interface{}{"provider": "google", "provider_id": info.ID}).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	user = models.User{
		Email:      email,
		Name:       utils.Sanitize(info.Name),
		Provider:   "google",
		ProviderID: info.ID,
	}
	err = a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		for _, r := range defaultReminders {
			rem := models.Reminder{UserID: user.ID, Type: r.Type, Time: r.Time, Active: true}
			if err := tx.Create(&rem).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

