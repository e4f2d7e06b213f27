package api

import (
	"github.com/gin-gonic/gin"

	"github.com/omarwh/finsent/internal/api/handler"
	"github.com/omarwh/finsent/internal/api/middleware"
	"github.com/omarwh/finsent/internal/logger"
)

// Deps bundles everything the router needs.
type Deps struct {
	Runner     handler.RunController
	Scheduler  handler.ScheduleController
	Registry   handler.SourceResolver
	Sentiments handler.SentimentStore
	Articles   handler.ArticleStore
	Usage      handler.UsageStore
	Summarizer handler.EntitySummarizer
	Logger     *logger.Logger
	CORS       middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(deps.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	pipelineHandler := handler.NewPipelineHandler(deps.Runner, deps.Scheduler, deps.Registry, deps.Logger)
	queryHandler := handler.NewQueryHandler(deps.Sentiments, deps.Articles, deps.Usage, deps.Summarizer, deps.Logger)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sources
		v1.GET("/sources", pipelineHandler.ListSources)

		// Pipeline control
		pipelineGroup := v1.Group("/pipeline")
		{
			pipelineGroup.POST("/trigger", pipelineHandler.Trigger)
			pipelineGroup.POST("/stop", pipelineHandler.Stop)
			pipelineGroup.GET("/status", pipelineHandler.Status)
			pipelineGroup.GET("/last-run", pipelineHandler.LastRun)
			pipelineGroup.POST("/schedule", pipelineHandler.SetSchedule)
		}

		// Analyzed data
		v1.GET("/articles", queryHandler.GetArticles)
		v1.GET("/entities", queryHandler.GetEntities)
		v1.GET("/entities/top", queryHandler.GetTopEntities)
		v1.GET("/entities/timeline", queryHandler.GetTimeline)
		v1.GET("/entities/articles", queryHandler.GetEntityArticles)
		v1.GET("/entities/summary", queryHandler.SummarizeEntity)

		// Stats
		v1.GET("/stats", queryHandler.GetStats)
		v1.GET("/usage", queryHandler.GetUsage)
	}

	return r
}
