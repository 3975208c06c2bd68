package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const (
	defaultHistoryDays = 30
	maxQueryLimit      = 365
)

type UserHandler struct {
	store  store.Store
	logger logger.Logger
}

func NewUserHandler(st store.Store, log logger.Logger) *UserHandler {
	return &UserHandler{store: st, logger: log}
}

func userMeta(userID string) gin.H {
	return gin.H{
		"timestamp": float64(time.Now().UnixMilli()) / 1000,
		"user_id":   userID,
	}
}

// queryLimit reads ?limit=, falling back to def and capping at maxQueryLimit.
func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.Param("userId")
	profile, err := h.store.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get user profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"profile":  profile,
		"metadata": userMeta(userID),
	})
}

func (h *UserHandler) GetMetrics(c *gin.Context) {
	userID := c.Param("userId")
	metrics, err := h.store.GetUserMetrics(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get user metrics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"metrics":  metrics,
		"metadata": userMeta(userID),
	})
}

func (h *UserHandler) GetNutritionHistory(c *gin.Context) {
	userID := c.Param("userId")
	records, err := h.store.GetDailyNutrition(c.Request.Context(), userID, queryLimit(c, defaultHistoryDays))
	if err != nil {
		handleError(c, h.logger, 0, "Failed to get nutrition history", err)
		return
	}
	meta := userMeta(userID)
	meta["count"] = len(records)
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"daily_nutrition": records,
		"metadata":        meta,
	})
}

// GetNutritionByDate serves ?date=YYYY-MM-DD, defaulting to today.
func (h *UserHandler) GetNutritionByDate(c *gin.Context) {
	userID := c.Param("userId")
	date := c.DefaultQuery("date", time.Now().Format(models.DateLayout))
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return
	}

	rec, err := h.store.GetNutritionByDate(c.Request.Context(), userID, date)
	if err != nil {
		handleError(c, h.logger, 0, "No nutrition record found for "+date, err)
		return
	}
	meta := userMeta(userID)
	meta["date"] = date
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"daily_nutrition": rec,
		"metadata":        meta,
	})
}

// UpsertNutrition replaces the totals of one day.
func (h *UserHandler) UpsertNutrition(c *gin.Context) {
	var body models.DailyNutrition
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	body.UserID = c.Param("userId")
	if body.Date == "" {
		body.Date = time.Now().Format(models.DateLayout)
	}
	if _, err := time.Parse(models.DateLayout, body.Date); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return
	}

	rec, err := h.store.UpsertDailyNutrition(c.Request.Context(), &body)
	if err != nil {
		handleError(c, h.logger, 0, "Failed to save daily nutrition", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"daily_nutrition": rec,
		"metadata":        userMeta(body.UserID),
	})
}
