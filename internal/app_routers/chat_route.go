package approuters

import (
	"github.com/dhairya9370/wispr-backend/internal/configuration"
	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api")
	{
		chatRoute.POST("/get-active-chat", container.ChatHandler.GetActiveChat)
		chatRoute.POST("/get-all-chats", container.ChatHandler.GetAllChats)
		chatRoute.GET("/chats/:chatId/messages", container.ChatHandler.GetChatMessages)
		chatRoute.POST("/create-new-chat", container.ChatHandler.CreateNewChat)
		chatRoute.POST("/create-group", container.ChatHandler.CreateGroup)
		chatRoute.POST("/delete-message", container.ChatHandler.DeleteMessage)
	}
}
