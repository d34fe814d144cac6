package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/gamecatalog-backend/config"
	"github.com/ikkim/gamecatalog-backend/internal/app/controller"
	"github.com/ikkim/gamecatalog-backend/internal/middleware"
)

type Router struct {
	populateController  *controller.PopulateController
	ingestRunController *controller.IngestRunController
	eventController     *controller.EventController
	uploadController    *controller.UploadController
	config              *config.Config
	// staticDir is served under /uploads when files are stored locally
	staticDir string
}

func NewRouter(
	populateController *controller.PopulateController,
	ingestRunController *controller.IngestRunController,
	eventController *controller.EventController,
	uploadController *controller.UploadController,
	cfg *config.Config,
	staticDir string,
) *Router {
	return &Router{
		populateController:  populateController,
		ingestRunController: ingestRunController,
		eventController:     eventController,
		uploadController:    uploadController,
		config:              cfg,
		staticDir:           staticDir,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Game catalog API is running",
		})
	})

	if r.staticDir != "" {
		router.Static("/uploads", r.staticDir)
	}

	// Asset endpoint used by the ingestion pipeline
	router.POST("/api/upload", r.uploadController.Upload)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/games/populate", r.populateController.Populate)

		ingest := v1.Group("/ingest")
		{
			ingest.GET("/runs", r.ingestRunController.ListRuns)
			ingest.GET("/runs/:run_id", r.ingestRunController.GetRun)
			ingest.GET("/events", r.eventController.Stream)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
