package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "taskhub/internal/app"
	"taskhub/internal/bootstrap"
	"taskhub/internal/cache"
	"taskhub/internal/platform/rabbitmq"
	"taskhub/internal/repository"
	"taskhub/internal/transport/http/handler"
	"taskhub/internal/transport/http/middleware"
)

// NewRouter wires repositories, services and handlers onto a gin engine.
// Redis and RabbitMQ are optional on the App: without them the auth path
// falls back to plain database lookups and notifications are skipped.
func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.DB)
	sessionRepo := repository.NewSessionRepository(app.DB)
	taskRepo := repository.NewTaskRepository(app.DB)

	var tokenCache appsvc.TokenCache
	if app.Redis != nil {
		tokenCache = cache.NewTokenCache(
			app.Redis,
			time.Duration(app.Config.Redis.TokenTTLSeconds)*time.Second,
		)
	}

	var notifier appsvc.Notifier
	if app.MQConn != nil {
		notifier = rabbitmq.NewEmailPublisher(app.MQConn, app.Config.RabbitMQ.EmailQueue)
	}

	authService := appsvc.NewAuthService(
		userRepo,
		sessionRepo,
		tokenCache,
		notifier,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	avatarService := appsvc.NewAvatarService(userRepo)
	taskService := appsvc.NewTaskService(taskRepo)

	userHandler := handler.NewUserHandler(authService, avatarService)
	taskHandler := handler.NewTaskHandler(taskService)
	authRequired := middleware.Auth(authService)

	router.POST("/users", userHandler.Register)
	router.POST("/users/login", userHandler.Login)
	router.POST("/users/logout", authRequired, userHandler.Logout)
	router.POST("/users/logoutAll", authRequired, userHandler.LogoutAll)
	router.GET("/users/me", authRequired, userHandler.Me)
	router.PATCH("/users/me", authRequired, userHandler.Update)
	router.DELETE("/users/me", authRequired, userHandler.Delete)
	router.POST("/users/me/avatar", authRequired, userHandler.UploadAvatar)
	router.DELETE("/users/me/avatar", authRequired, userHandler.DeleteAvatar)
	router.GET("/users/:id/avatar", userHandler.GetAvatar)

	tasks := router.Group("/tasks")
	tasks.Use(authRequired)
	tasks.POST("", taskHandler.Create)
	tasks.GET("", taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)

	return router
}
