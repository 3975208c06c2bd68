package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/qa"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/utils/validator"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

var errInvalidForm = errors.New("invalid multipart form")

type QAHandler struct {
	service qa.QAProcessor
	decoder *validator.MediaDecoder
	logger  logger.Logger
}

type SubmitResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Files     int    `json:"files"`
	CreatedAt string `json:"createdAt"`
}

func NewQAHandler(service qa.QAProcessor, decoder *validator.MediaDecoder, log logger.Logger) *QAHandler {
	return &QAHandler{service: service, decoder: decoder, logger: log}
}

// qaForm is the decoded multipart body shared by the sync and async routes.
type qaForm struct {
	question    string
	useFilesAPI bool
	files       []*models.MediaFile
}

// readForm decodes question, use_files_api and files. A body that is not
// multipart yields no files instead of an error so the pipeline can report it.
func (h *QAHandler) readForm(c *gin.Context) (*qaForm, error) {
	var headers []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		headers = form.File["files"]
	case errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}

	files, err := h.decoder.DecodeFiles(headers)
	if err != nil {
		return nil, err
	}
	return &qaForm{
		question:    strings.TrimSpace(c.PostForm("question")),
		useFilesAPI: config.ParseBool(c.PostForm("use_files_api")),
		files:       files,
	}, nil
}

// Answer runs the pipeline synchronously. Validation problems come back as
// 200 with ok=false.
func (h *QAHandler) Answer(c *gin.Context) {
	f, err := h.readForm(c)
	if err != nil {
		handleError(c, h.logger, 0, "Invalid form data", err)
		return
	}

	answer, summary := h.service.Answer(c.Request.Context(), f.question, f.files, f.useFilesAPI)
	c.JSON(http.StatusOK, gin.H{
		"ok":       summary.Outcome.OK(),
		"answer":   answer,
		"metadata": summary.AsMap(),
	})
}

// Submit stages the upload and queues it.
func (h *QAHandler) Submit(c *gin.Context) {
	f, err := h.readForm(c)
	if err != nil {
		handleError(c, h.logger, 0, "Invalid form data", err)
		return
	}

	task, err := h.service.Submit(c.Request.Context(), f.question, f.files, f.useFilesAPI)
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to submit task", err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Files:     len(f.files),
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	})
}

func (h *QAHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		handleError(c, h.logger, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get status", err)
		return
	}

	resp := gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
	}
	if !task.UpdatedAt.IsZero() {
		resp["updatedAt"] = task.UpdatedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *QAHandler) GetResult(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		handleError(c, h.logger, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	result, err := h.service.GetResult(c.Request.Context(), taskID)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get result", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          result.OK,
		"taskId":      result.TaskID,
		"answer":      result.Answer,
		"metadata":    result.Metadata,
		"completedAt": result.CompletedAt.Format(time.RFC3339),
	})
}

func (h *QAHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if taskID == "" {
		handleError(c, h.logger, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		handleError(c, h.logger, 0, "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}
