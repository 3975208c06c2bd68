package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/meal"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/qa"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/utils/validator"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
)

type Handlers struct {
	Health *HealthHandler
	QA     *QAHandler
	Meal   *MealHandler
	User   *UserHandler
	Chat   *ChatHandler
}

// Deps are the services behind the HTTP API.
type Deps struct {
	LLM     *config.LLMConfig
	Model   string
	QA      qa.QAProcessor
	Meal    MealAnalyzer
	Store   store.Store
	Chat    Chatter
	Decoder *validator.MediaDecoder
	Logger  logger.Logger
}

func NewHandlers(d Deps) *Handlers {
	log := d.Logger.Named("api")
	return &Handlers{
		Health: NewHealthHandler(d.LLM, d.Model),
		QA:     NewQAHandler(d.QA, d.Decoder, log),
		Meal:   NewMealHandler(d.Meal, d.Decoder, log),
		User:   NewUserHandler(d.Store, log),
		Chat:   NewChatHandler(d.Chat, d.Store, log),
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// handleError logs err and writes an ErrorResponse. status <= 0 derives the
// code from err.
func handleError(c *gin.Context, log logger.Logger, status int, message string, err error) {
	if status <= 0 {
		status = statusFor(err)
	}
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	l := logger.FromContext(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		l.Error(message, fields...)
	} else {
		l.Warn(message, fields...)
	}

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, queue.ErrTaskNotFound),
		errors.Is(err, queue.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, qa.ErrTaskNotCompleted):
		return http.StatusConflict
	case errors.Is(err, validator.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, validator.ErrTooManyFiles),
		errors.Is(err, meal.ErrNotAnImage),
		errors.Is(err, errInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, meal.ErrMalformedReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
