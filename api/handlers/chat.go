package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/chat"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const defaultChatHistory = 50

type Chatter interface {
	Chat(ctx context.Context, userID, userName, message string) (string, *chat.Metadata, error)
}

type ChatHandler struct {
	chat   Chatter
	store  store.Store
	logger logger.Logger
}

type ChatRequest struct {
	Message  string `json:"message"`
	UserName string `json:"user_name"`
}

func NewChatHandler(c Chatter, st store.Store, log logger.Logger) *ChatHandler {
	return &ChatHandler{chat: c, store: st, logger: log}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID := c.Param("userId")
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		handleError(c, h.logger, http.StatusBadRequest, "El mensaje no puede estar vacío", nil)
		return
	}

	ctx := logger.WithUserID(c.Request.Context(), userID)
	reply, meta, err := h.chat.Chat(ctx, userID, req.UserName, req.Message)
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Error en el chatbot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"response": reply,
		"metadata": meta,
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := c.Param("userId")
	history, err := h.store.GetConversationHistory(c.Request.Context(), userID, queryLimit(c, defaultChatHistory))
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get conversation history", err)
		return
	}
	meta := userMeta(userID)
	meta["message_count"] = len(history)
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"history":  history,
		"metadata": meta,
	})
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.store.ClearConversationHistory(c.Request.Context(), userID); err != nil {
		handleError(c, h.logger, 0, "Failed to clear conversation history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"message":  "Historial de conversación eliminado",
		"metadata": userMeta(userID),
	})
}
