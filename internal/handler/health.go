package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/docs"
	"github.com/usersvc/backend/internal/model"
)

// Ping godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.PingResponse
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// Root godoc
// @Summary Service status
// @Tags health
// @Produce json
// @Success 200 {object} model.RootResponse
// @Router / [get]
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "user service API server is running",
	})
}

// OpenAPIDoc serves the swagger document with the request host filled in.
func OpenAPIDoc(c *gin.Context) {
	spec := *docs.SwaggerInfo
	spec.Host = c.Request.Host
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(spec.ReadDoc()))
}
