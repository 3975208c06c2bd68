package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/meal"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/utils/validator"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

type MealAnalyzer interface {
	AnalyzeMeal(ctx context.Context, image *models.MediaFile) (*meal.Analysis, error)
}

type MealHandler struct {
	analyzer MealAnalyzer
	decoder  *validator.MediaDecoder
	logger   logger.Logger
}

func NewMealHandler(analyzer MealAnalyzer, decoder *validator.MediaDecoder, log logger.Logger) *MealHandler {
	return &MealHandler{analyzer: analyzer, decoder: decoder, logger: log}
}

// AnalyzeMeal estimates the nutrients of the image in the "file" field.
func (h *MealHandler) AnalyzeMeal(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "An image is required in 'file'", err)
		return
	}

	image, _, err := h.decoder.DecodeFile(header)
	if err != nil {
		handleError(c, h.logger, 0, "Invalid file upload", err)
		return
	}

	res, err := h.analyzer.AnalyzeMeal(c.Request.Context(), image)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to analyze meal", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"nutrients": res.Nutrients,
		"metadata": gin.H{
			"method":             "direct",
			"model":              res.Model,
			"processing_time_ms": res.ProcessingTimeMs,
		},
	})
}
