package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/internal/metrics"
	"github.com/usersvc/backend/internal/model"
)

type userService interface {
	Create(ctx context.Context, req model.UserRequest) (model.UserResponse, error)
	GetByID(ctx context.Context, id int64) (model.UserResponse, error)
	ListPage(ctx context.Context, page, size int) (model.Page[model.UserResponse], error)
	SearchByBirthDateRange(ctx context.Context, from, to model.Date, page, size int) (model.Page[model.UserResponse], error)
	FullUpdate(ctx context.Context, id int64, req model.UserRequest) (model.UserResponse, error)
	PartialUpdate(ctx context.Context, id int64, req model.UserUpdateRequest) (model.UserResponse, error)
	DeleteByID(ctx context.Context, id int64) error
}

type UserHandler struct {
	svc     userService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewUserHandler(svc userService, logger *slog.Logger, m *metrics.Metrics) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{svc: svc, logger: logger, metrics: m}
}

// CreateUser godoc
// @Summary Register a user
// @Description Public endpoint. The response never contains the password.
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.UserRequest true "New user"
// @Success 201 {object} model.UserResponse
// @Failure 400,500 {object} model.ErrorResponse
// @Router /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.svc.Create(c.Request.Context(), req)
	h.metrics.UserOperation("create", err)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size (1-100)" default(10)
// @Success 200 {object} model.UserPage
// @Failure 400,401,500 {object} model.ErrorResponse
// @Router /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.svc.ListPage(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchUsers godoc
// @Summary Search users by birth date
// @Description Both bounds are inclusive.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param fromDate query string true "Lower bound (yyyy.MM.dd)"
// @Param toDate query string true "Upper bound (yyyy.MM.dd)"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size (1-100)" default(10)
// @Success 200 {object} model.UserPage
// @Failure 400,401,500 {object} model.ErrorResponse
// @Router /api/users/search [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	from, ok := queryDate(c, "fromDate")
	if !ok {
		return
	}
	to, ok := queryDate(c, "toDate")
	if !ok {
		return
	}
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	result, err := h.svc.SearchByBirthDateRange(c.Request.Context(), from, to, page, size)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUser godoc
// @Summary Get a user by ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.UserResponse
// @Failure 400,401,404,500 {object} model.ErrorResponse
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Replace a user
// @Description Overwrites every field, including the password.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body model.UserRequest true "User"
// @Success 200 {object} model.UserResponse
// @Failure 400,401,404,500 {object} model.ErrorResponse
// @Router /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.svc.FullUpdate(c.Request.Context(), id, req)
	h.metrics.UserOperation("full_update", err)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PatchUser godoc
// @Summary Update some fields of a user
// @Description Absent, null and blank fields are left unchanged.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body model.UserUpdateRequest true "Fields to change"
// @Success 200 {object} model.UserResponse
// @Failure 400,401,404,500 {object} model.ErrorResponse
// @Router /api/users/{id} [patch]
func (h *UserHandler) PatchUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.svc.PartialUpdate(c.Request.Context(), id, req)
	h.metrics.UserOperation("partial_update", err)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 400,401,404,500 {object} model.ErrorResponse
// @Router /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.svc.DeleteByID(c.Request.Context(), id)
	h.metrics.UserOperation("delete", err)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeStatus(c, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return 0, 0, false
	}
	size, ok := queryInt(c, "size", model.DefaultPageSize)
	if !ok {
		return 0, 0, false
	}
	return page, size, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeStatus(c, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return value, true
}

// queryDate parses a yyyy.MM.dd query parameter. A missing parameter yields a
// zero Date, which the service rejects.
func queryDate(c *gin.Context, name string) (model.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return model.Date{}, true
	}
	d, err := model.ParseDate(model.QueryDateLayout, raw)
	if err != nil {
		writeStatus(c, http.StatusBadRequest, fmt.Sprintf("%s must be in yyyy.MM.dd format", name))
		return model.Date{}, false
	}
	return d, true
}
