package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/internal/metrics"
)

type RouterDeps struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Gate    *Gate
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter mounts every route behind the gate. Everything under /api/users
// except registration also requires an authenticated principal.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(deps.Gate.Middleware())

	router.GET("/", Root)
	router.GET("/ping", Ping)
	router.GET("/swagger/doc.json", OpenAPIDoc)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/authenticate", deps.Auth.Authenticate)
	auth.POST("/refresh-access-token", deps.Auth.RefreshAccessToken)
	auth.POST("/renew-refresh-token", deps.Auth.RenewRefreshToken)
	auth.POST("/validateToken", deps.Auth.ValidateToken)

	users := api.Group("/users")
	users.POST("", deps.Users.CreateUser)

	protected := users.Group("", RequireAuth())
	protected.GET("", deps.Users.ListUsers)
	protected.GET("/search", deps.Users.SearchUsers)
	protected.GET("/:id", deps.Users.GetUser)
	protected.PUT("/:id", deps.Users.UpdateUser)
	protected.PATCH("/:id", deps.Users.PatchUser)
	protected.DELETE("/:id", deps.Users.DeleteUser)

	return router
}
