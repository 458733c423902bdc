package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Chat   *ChatHandler
	Events *EventHandler
	Status *StatusHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/chat", deps.Chat.Ask)
	api.POST("/retrieve", deps.Chat.Retrieve)
	api.POST("/events/s3", deps.Events.HandleS3)
	api.GET("/index/status", deps.Status.Status)
}
