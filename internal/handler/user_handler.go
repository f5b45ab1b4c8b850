package handler

import (
	"github.com/dhairya9370/wispr-backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserHandler interface {
	GetUserStatus(c *gin.Context)
	GetOnlineParticipants(c *gin.Context)
}

type userHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) UserHandler {
	return &userHandler{
		service: service,
	}
}

type userStatusRequest struct {
	RecipientID primitive.ObjectID `json:"recipientId" binding:"required"`
}

type onlineParticipantsRequest struct {
	Recipients []primitive.ObjectID `json:"recipients"`
}

// GetUserStatus
// @Router /api/user-status [post]
func (h *userHandler) GetUserStatus(c *gin.Context) {
	var body userStatusRequest
	if !bind(c, &body) {
		return
	}

	status, err := h.service.GetUserStatus(c.Request.Context(), body.RecipientID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User status retrieved successfully", gin.H{"online": status})
}

// GetOnlineParticipants
// @Router /api/online-participants [post]
func (h *userHandler) GetOnlineParticipants(c *gin.Context) {
	var body onlineParticipantsRequest
	if !bind(c, &body) {
		return
	}
	ok(c, "Online participants retrieved successfully", h.service.OnlineParticipants(body.Recipients))
}
