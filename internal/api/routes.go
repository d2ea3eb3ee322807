package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/trends", handler.Trends)

		admin := api.Group("/admin")
		{
			admin.POST("/upload", handler.Upload)
			admin.POST("/clearData", handler.ClearData)
		}
	}
}
