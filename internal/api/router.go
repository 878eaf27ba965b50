package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krafity/krafity/internal/api/handler"
	"github.com/krafity/krafity/internal/api/middleware"
	"github.com/krafity/krafity/internal/logger"
	"github.com/krafity/krafity/internal/service"
)

// SetupRouter configures the Gin router with all routes.
func SetupRouter(
	jobService *service.JobService,
	mergeService *service.MergeService,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(jobService)
	mergeHandler := handler.NewMergeHandler(mergeService)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs/video", jobHandler.CreateVideoJob)
		v1.GET("/jobs/video/:id", jobHandler.GetVideoJob)

		v1.POST("/videos/merge", mergeHandler.MergeVideos)
	}

	return r
}
