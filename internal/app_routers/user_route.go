package approuters

import (
	"github.com/dhairya9370/wispr-backend/internal/configuration"
	"github.com/gin-gonic/gin"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/api")
	{
		userRoute.POST("/user-status", container.UserHandler.GetUserStatus)
		userRoute.POST("/online-participants", container.UserHandler.GetOnlineParticipants)
	}
}
