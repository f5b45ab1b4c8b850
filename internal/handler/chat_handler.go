package handler

import (
	"strconv"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/service"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler interface {
	GetActiveChat(c *gin.Context)
	GetAllChats(c *gin.Context)
	GetChatMessages(c *gin.Context)
	CreateNewChat(c *gin.Context)
	CreateGroup(c *gin.Context)
	DeleteMessage(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
}

func NewChatHandler(service service.ChatService) ChatHandler {
	return &chatHandler{
		service: service,
	}
}

type chatIDRequest struct {
	ChatID primitive.ObjectID `json:"chatId" binding:"required"`
}

type userIDRequest struct {
	UserID primitive.ObjectID `json:"userId" binding:"required"`
}

type newChatRequest struct {
	Participants []primitive.ObjectID `json:"participants" binding:"required,len=2"`
}

type newGroupRequest struct {
	Participants []primitive.ObjectID `json:"participants" binding:"required,min=1"`
	CreatedBy    primitive.ObjectID   `json:"createdBy" binding:"required"`
}

type deleteMessageRequest struct {
	Msg model.Message `json:"msg"`
}

// GetActiveChat
// @Router /api/get-active-chat [post]
func (h *chatHandler) GetActiveChat(c *gin.Context) {
	var body chatIDRequest
	if !bind(c, &body) {
		return
	}

	history, err := h.service.GetActiveChat(c.Request.Context(), body.ChatID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Chat retrieved successfully", gin.H{"activeChat": history})
}

// GetAllChats
// @Router /api/get-all-chats [post]
func (h *chatHandler) GetAllChats(c *gin.Context) {
	var body userIDRequest
	if !bind(c, &body) {
		return
	}

	chats, err := h.service.GetAllChats(c.Request.Context(), body.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Chats retrieved successfully", gin.H{"chatList": chats})
}

// GetChatMessages pages through a chat's messages, oldest first.
// @Router /api/chats/:chatId/messages [get]
func (h *chatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chatId"))
	if err != nil {
		fail(c, apperr.ErrInvalidPayload)
		return
	}
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil || page < 1 {
		fail(c, apperr.ErrInvalidPayload)
		return
	}

	msgs, err := h.service.GetChatMessages(c.Request.Context(), chatID, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Messages retrieved successfully", msgs)
}

// CreateNewChat
// @Router /api/create-new-chat [post]
func (h *chatHandler) CreateNewChat(c *gin.Context) {
	var body newChatRequest
	if !bind(c, &body) {
		return
	}

	chat, created, err := h.service.CreateDirectChat(c.Request.Context(), body.Participants)
	if err != nil {
		fail(c, err)
		return
	}
	message := "Chat Already Exists"
	if created {
		message = "Created Chat Successfully"
	}
	ok(c, message, gin.H{"chat": chat})
}

// CreateGroup
// @Router /api/create-group [post]
func (h *chatHandler) CreateGroup(c *gin.Context) {
	var body newGroupRequest
	if !bind(c, &body) {
		return
	}

	group, err := h.service.CreateGroup(c.Request.Context(), body.CreatedBy, body.Participants)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Created Group Successfully", gin.H{"group": group})
}

// DeleteMessage
// @Router /api/delete-message [post]
func (h *chatHandler) DeleteMessage(c *gin.Context) {
	var body deleteMessageRequest
	if !bind(c, &body) {
		return
	}
	if body.Msg.ID.IsZero() {
		fail(c, apperr.ErrInvalidPayload)
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), body.Msg.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Deleted Successfully", nil)
}
