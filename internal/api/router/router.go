package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leadforge/leadforge/internal/api/handler"
	"github.com/leadforge/leadforge/internal/api/router/identity"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "lead-import-api",
		})
	})

	importHandler := handler.NewImportHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware())
	{
		imports := v1.Group("/imports")
		{
			// POST /api/v1/imports - Upload a CSV of leads
			imports.POST("", importHandler.UploadCSV)

			// GET /api/v1/imports - List the uploader's recent import jobs
			imports.GET("", importHandler.ListImportJobs)

			// GET /api/v1/imports/:job_id - Get import job status
			imports.GET("/:job_id", importHandler.GetImportJob)
		}
	}

	return r
}
