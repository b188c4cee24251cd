package router

import (
	"net/http"

	"github.com/aurorasynth/aurora-backend/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, runnerSecret string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "aurora-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	accountHandler := handler.NewAccountHandler(deps)

	// Provider re-entry point, authenticated by shared secret
	internal := r.Group("/internal/v1")
	internal.Use(RunnerSecretMiddleware(runnerSecret))
	{
		internal.POST("/callbacks/runner", jobHandler.RunnerCallback)
	}

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(deps.Logger, deps.Store))
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a generation or enhancement job
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// GET /api/v1/jobs/:job_id/events - SSE status stream
			jobs.GET("/:job_id/events", jobHandler.StreamJobEvents)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", accountHandler.ListNotifications)
			notifications.POST("/:notification_id/read", accountHandler.MarkNotificationRead)
		}

		v1.GET("/usage", accountHandler.GetUsage)
	}

	return r
}
