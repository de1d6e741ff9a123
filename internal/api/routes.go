package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		items := v1.Group("/items")
		{
			items.GET("", handler.ListItems)                // GET /api/v1/items
			items.GET("/:id/status", handler.GetItemStatus) // GET /api/v1/items/:id/status
			items.PUT("/:id/status", handler.SetItemStatus) // PUT /api/v1/items/:id/status
		}

		v1.GET("/courses", handler.ListCourses) // GET /api/v1/courses

		etl := v1.Group("/etl")
		{
			etl.POST("/run", handler.RunPipeline) // POST /api/v1/etl/run
		}
	}
}
