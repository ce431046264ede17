package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/usersvc/backend/internal/metrics"
	"github.com/usersvc/backend/internal/model"
)

type authService interface {
	Login(ctx context.Context, email, password string) (model.TokenPair, error)
	RenewAccessToken(ctx context.Context, refreshToken string) (string, error)
	RotateRefreshToken(ctx context.Context, refreshToken string) (string, error)
	ValidateAccessToken(token string) bool
}

type AuthHandler struct {
	svc     authService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewAuthHandler(svc authService, logger *slog.Logger, m *metrics.Metrics) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, logger: logger, metrics: m}
}

// Authenticate godoc
// @Summary Login
// @Description Issues an access token and a refresh token. Any refresh token issued earlier to the same user stops working.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.LoginResponse
// @Failure 400,401,500 {object} model.ErrorResponse
// @Router /api/auth/authenticate [post]
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	log := h.requestLogger("authenticate")
	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	h.metrics.AuthOperation("login", err)
	if err != nil {
		log.Warn("login failed", "email", req.Email, "error", err)
		writeError(c, log, err)
		return
	}

	log.Info("login succeeded", "email", req.Email)
	c.JSON(http.StatusOK, model.LoginResponse{
		TokenType:    model.TokenTypeBearer,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// RefreshAccessToken godoc
// @Summary Renew access token
// @Description Issues a new access token. The refresh token stays valid.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshTokenRequest true "Current refresh token"
// @Success 200 {object} model.AccessTokenResponse
// @Failure 400,401,500 {object} model.ErrorResponse
// @Router /api/auth/refresh-access-token [post]
func (h *AuthHandler) RefreshAccessToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	log := h.requestLogger("refresh-access-token")
	access, err := h.svc.RenewAccessToken(c.Request.Context(), req.RefreshToken)
	h.metrics.AuthOperation("renew_access", err)
	if err != nil {
		log.Warn("access token renewal failed", "error", err)
		writeError(c, log, err)
		return
	}

	log.Info("access token renewed")
	c.JSON(http.StatusOK, model.AccessTokenResponse{
		TokenType:   model.TokenTypeBearer,
		AccessToken: access,
	})
}

// RenewRefreshToken godoc
// @Summary Rotate refresh token
// @Description Issues a new refresh token and invalidates the presented one.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshTokenRequest true "Current refresh token"
// @Success 200 {object} model.RefreshTokenResponse
// @Failure 400,401,500 {object} model.ErrorResponse
// @Router /api/auth/renew-refresh-token [post]
func (h *AuthHandler) RenewRefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	log := h.requestLogger("renew-refresh-token")
	refresh, err := h.svc.RotateRefreshToken(c.Request.Context(), req.RefreshToken)
	h.metrics.AuthOperation("rotate_refresh", err)
	if err != nil {
		log.Warn("refresh token rotation failed", "error", err)
		writeError(c, log, err)
		return
	}

	log.Info("refresh token rotated")
	c.JSON(http.StatusOK, model.RefreshTokenResponse{
		TokenType:    model.TokenTypeBearer,
		RefreshToken: refresh,
	})
}

// ValidateToken godoc
// @Summary Validate access token
// @Description Responds 200 with no body when the access token is valid.
// @Tags auth
// @Accept json
// @Param request body model.AccessTokenRequest true "Access token"
// @Success 200
// @Failure 400,401 {object} model.ErrorResponse
// @Router /api/auth/validateToken [post]
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req model.AccessTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.AccessToken == "" {
		writeStatus(c, http.StatusBadRequest, "accessToken is required")
		return
	}

	if !h.svc.ValidateAccessToken(req.AccessToken) {
		h.metrics.AuthOperation("validate", errInvalidAccessToken)
		writeStatus(c, http.StatusUnauthorized, errInvalidAccessToken.Error())
		return
	}
	h.metrics.AuthOperation("validate", nil)
	c.Status(http.StatusOK)
}

func (h *AuthHandler) requestLogger(operation string) *slog.Logger {
	return h.logger.With("requestId", uuid.NewString(), "operation", operation)
}
