package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/internal/model"
	"github.com/usersvc/backend/internal/service"
)

const msgUnexpected = "Unexpected error occurred"

var errInvalidAccessToken = errors.New("invalid access token")

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrRegistration),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the error taxonomy. Uncategorized errors are
// logged in full and answered with a generic 500.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	messages := service.Messages(err)
	if status == http.StatusInternalServerError || len(messages) == 0 {
		logger.Error("unexpected error", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		status = http.StatusInternalServerError
		messages = []string{msgUnexpected}
	}
	c.AbortWithStatusJSON(status, model.ErrorResponse{StatusCode: status, Errors: messages})
}

func writeStatus(c *gin.Context, status int, messages ...string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{StatusCode: status, Errors: messages})
}

// Recovery turns a panic into the generic 500 body.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
		writeStatus(c, http.StatusInternalServerError, msgUnexpected)
	})
}
