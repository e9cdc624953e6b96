package router

import (
	"net/http"
	"time"

	"github.com/edulane/edulane-backend/internal/config"
	"github.com/edulane/edulane-backend/internal/handler"
	"github.com/edulane/edulane-backend/internal/middleware"
	"github.com/edulane/edulane-backend/internal/response"
	"github.com/edulane/edulane-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Group  *handler.GroupHandler
	Access *handler.AccessHandler
	Course *handler.CourseHandler
	Lesson *handler.LessonHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	rdb *redis.Client,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", middleware.AuthRateLimit(rdb, cfg.AuthRateLimit), handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. API Group (JWT + Active Session) ───────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService),
	)
	{
		// Access checks
		api.POST("/access/check", handlers.Access.Check)
		api.POST("/access/check-batch", handlers.Access.CheckBatch)
		api.POST("/access/resolve", handlers.Access.Resolve)

		// Groups
		api.GET("/groups", handlers.Group.ListMyGroups)
		api.POST("/groups", handlers.Group.CreateGroup)
		api.GET("/groups/:id", handlers.Group.GetGroup)
		api.PUT("/groups/:id", handlers.Group.UpdateGroup)
		api.DELETE("/groups/:id", handlers.Group.DeleteGroup)

		// Memberships
		api.POST("/groups/:id/members", handlers.Group.GrantMember)
		api.DELETE("/groups/:id/members/:user_id", handlers.Group.RevokeMember)
		api.POST("/groups/:id/owner", handlers.Group.TransferOwner)

		// Permissions
		api.POST("/groups/:id/permissions", handlers.Group.GrantPermission)
		api.DELETE("/permissions/:id", handlers.Group.RevokePermission)

		// Courses
		api.GET("/courses", handlers.Course.ListCourses)
		api.GET("/courses/:id", handlers.Course.GetCourse)
		api.PUT("/courses/:id", handlers.Course.UpdateCourse)
		api.DELETE("/courses/:id", handlers.Course.DeleteCourse)
		api.POST("/courses", middleware.RequireSiteAdmin(), handlers.Course.CreateCourse)

		// Lessons
		api.GET("/courses/:id/lessons", handlers.Lesson.ListLessons)
		api.POST("/courses/:id/lessons", handlers.Lesson.CreateLesson)
		api.GET("/lessons/:id", handlers.Lesson.GetLesson)
		api.PUT("/lessons/:id", handlers.Lesson.UpdateLesson)
		api.DELETE("/lessons/:id", handlers.Lesson.DeleteLesson)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/groups/:id/activity", handlers.WS.GroupActivity)
	}

	return router
}
