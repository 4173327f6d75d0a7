package router

import (
	"github.com/cuongbtq/fieldops-be/internal/api/handler"
	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	statusHandler := handler.NewStatusHandler(deps)
	notificationHandler := handler.NewNotificationHandler(deps)

	r.GET("/health", healthHandler.Health)

	// API v1 routes, all on behalf of an authenticated principal
	v1 := r.Group("/api/v1")
	v1.Use(ActorMiddleware(deps.Store.Directory(), deps.Logger))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", RequireCapability(domain.CapCreateJobs), jobHandler.CreateJob)
			jobs.GET("", RequireCapability(domain.CapViewJobs), jobHandler.ListJobs)
			jobs.GET("/:job_id", RequireCapability(domain.CapViewJobs), jobHandler.GetJob)
			jobs.PATCH("/:job_id", RequireCapability(domain.CapEditJobs), jobHandler.UpdateJob)
			jobs.DELETE("/:job_id", RequireCapability(domain.CapDeleteJobs), jobHandler.DeleteJob)
			jobs.POST("/:job_id/assign", RequireCapability(domain.CapAssignJobs), jobHandler.AssignJob)
			jobs.GET("/:job_id/history", RequireCapability(domain.CapViewJobs), jobHandler.GetHistory)

			// Synchronous transition
			jobs.PATCH("/:job_id/status", RequireCapability(domain.CapUpdateJobStatus), statusHandler.UpdateStatus)

			// Queued transition, applied by the worker service
			jobs.POST("/:job_id/status-updates", RequireCapability(domain.CapUpdateJobStatus), statusHandler.EnqueueStatusUpdate)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:notification_id/read", notificationHandler.MarkRead)
		}

		v1.GET("/dashboard/summary", RequireCapability(domain.CapViewDashboard), jobHandler.GetSummary)
	}

	return r
}
