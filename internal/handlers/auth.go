package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/metrics"
	"github.com/canopyhq/canopy/pkg/response"
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	db       *gorm.DB
	sessions *iauth.SessionService
}

func NewAuthHandler(db *gorm.DB, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{db: db, sessions: sessions}
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))

	var user models.User
	err := h.db.WithContext(requestContext(c)).
		Where("username = ? OR email = ?", identifier, identifier).
		Take(&user).Error
	if err != nil || !user.IsActive || !iauth.CheckPassword(user.Password, req.Password) {
		// Normalise all failures to 401 without leaking which check failed
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	pair, _, err := h.sessions.CreateSession(user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	now := time.Now()
	h.db.WithContext(requestContext(c)).Model(&user).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": c.ClientIP(),
	})

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user": gin.H{
			"id":           user.ID,
			"username":     user.Username,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"is_admin":     user.IsAdmin,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(req.RefreshToken)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sid := currentSessionID(c)
	if sid == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(sid); err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).Take(&user, "id = ?", userID).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"is_admin":     user.IsAdmin,
		"last_login":   user.LastLoginAt,
	})
}
