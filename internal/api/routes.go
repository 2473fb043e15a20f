package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RegisterRoutes wires the v1 API surface.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
) {
	printHandler := NewPrintHandler(db, asynqClient)
	wsHandler := NewWsHandler(redisClient, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.POST("/print", printHandler.CreatePrintJob)
		v1.POST("/preview", printHandler.CreatePreviewJob)
		v1.GET("/jobs/:id", printHandler.GetJob)
	}
}
