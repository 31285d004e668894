package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/projectstack/projectstack/internal/config"
	"github.com/projectstack/projectstack/internal/handlers"
	"github.com/projectstack/projectstack/internal/middleware"
	"github.com/projectstack/projectstack/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services is everything the router hands to handlers.
type Services struct {
	Auth         *services.AuthService
	Profiles     *services.ProfileService
	Projects     *services.ProjectService
	Membership   *services.MembershipService
	Engagement   *services.EngagementService
	Notification *services.NotificationService
	Storage      *services.StorageService
}

// NewServices wires the service graph around one database handle.
func NewServices(cfg *config.Config, db *gorm.DB, storage *services.StorageService) *Services {
	notifications := services.NewNotificationService(db, services.NewEmailService(cfg))
	return &Services{
		Auth:         services.NewAuthService(cfg, db),
		Profiles:     services.NewProfileService(db),
		Projects:     services.NewProjectService(db, notifications, storage),
		Membership:   services.NewMembershipService(db, notifications),
		Engagement:   services.NewEngagementService(db, notifications),
		Notification: notifications,
		Storage:      storage,
	}
}

func SetupRouter(cfg *config.Config, db *gorm.DB, svc *Services, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(), middleware.Metrics())

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		dbConnected := false
		if sqlDB, err := db.DB(); err == nil {
			dbConnected = sqlDB.PingContext(c.Request.Context()) == nil
		}
		status := http.StatusOK
		if !dbConnected {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":       http.StatusText(status),
			"db_connected": dbConnected,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if cfg.StorageDriver == "" || cfg.StorageDriver == "local" {
		router.Static("/uploads", cfg.UploadDir)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Profiles)
	profileHandler := handlers.NewProfileHandler(svc.Profiles, svc.Membership, svc.Storage)
	projectHandler := handlers.NewProjectHandler(svc.Projects, svc.Storage)
	applicationHandler := handlers.NewApplicationHandler(svc.Membership)
	engagementHandler := handlers.NewEngagementHandler(svc.Engagement)
	notificationHandler := handlers.NewNotificationHandler(svc.Notification)

	authRequired := middleware.AuthMiddleware(svc.Auth)
	profileRequired := middleware.RequireProfile(svc.Profiles)
	optionalAuth := middleware.OptionalAuthMiddleware(svc.Auth, svc.Profiles)

	// API routes
	api := router.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.GET("/google/login", authHandler.GoogleLogin)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.GET("/me", authRequired, authHandler.Me)
		}

		// Profile routes
		profiles := api.Group("/profiles")
		{
			profiles.POST("", authRequired, profileHandler.CreateProfile)

			me := profiles.Group("/me")
			me.Use(authRequired, profileRequired)
			{
				me.GET("", profileHandler.GetMyProfile)
				me.PUT("", profileHandler.UpdateMyProfile)
				me.POST("/avatar", profileHandler.UploadAvatar)
			}

			profiles.GET("/:id", profileHandler.GetProfile)
			profiles.GET("/:id/applications", authRequired, profileRequired, profileHandler.GetProfileApplications)
			profiles.GET("/:id/contributions", profileHandler.GetProfileContributions)
		}

		// Project routes
		projects := api.Group("/projects")
		{
			// Public routes
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", optionalAuth, projectHandler.GetProject)
			projects.GET("/:id/contributors", applicationHandler.GetProjectContributors)
			projects.GET("/:id/comments", engagementHandler.ListComments)

			// Protected routes
			projectsProtected := projects.Group("")
			projectsProtected.Use(authRequired, profileRequired)
			{
				projectsProtected.POST("", projectHandler.CreateProject)
				projectsProtected.PUT("/:id", projectHandler.UpdateProject)
				projectsProtected.DELETE("/:id", projectHandler.DeleteProject)
				projectsProtected.POST("/:id/thumbnail", projectHandler.UploadThumbnail)
				projectsProtected.POST("/:id/apply", applicationHandler.Apply)
				projectsProtected.GET("/:id/status", applicationHandler.CheckStatus)
				projectsProtected.GET("/:id/applications", applicationHandler.GetProjectApplications)
				projectsProtected.POST("/:id/like", engagementHandler.ToggleLike)
				projectsProtected.POST("/:id/comments", engagementHandler.AddComment)
			}
		}

		// Member-only routes
		protected := api.Group("")
		protected.Use(authRequired, profileRequired)
		{
			protected.DELETE("/comments/:id", engagementHandler.DeleteComment)
			protected.POST("/applications/:id/accept", applicationHandler.Accept)
			protected.POST("/applications/:id/reject", applicationHandler.Reject)
			protected.DELETE("/contributors/:id", applicationHandler.RemoveContributor)

			protected.GET("/notifications", notificationHandler.ListNotifications)
			protected.DELETE("/notifications", notificationHandler.ClearNotifications)
			protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found", "kind": "NotFound"})
	})

	return router
}
