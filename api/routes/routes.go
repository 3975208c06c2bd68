package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UNI-Final-Project/api-multimodal-ai/api/handlers"
	"github.com/UNI-Final-Project/api-multimodal-ai/api/middleware"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

// SetupRoutes registers every endpoint on r.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger, origins ...string) {
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(log),
		middleware.Metrics(),
		middleware.CORS(origins...),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// /api/v1 is canonical; the root keeps the paths existing clients call
	registerAPI(r.Group("/api/v1"), h)
	registerAPI(&r.RouterGroup, h)
}

func registerAPI(g *gin.RouterGroup, h *handlers.Handlers) {
	g.GET("/health", h.Health.Health)
	g.GET("/env-check", h.Health.EnvCheck)

	qa := g.Group("/qa")
	{
		qa.POST("", h.QA.Answer)
		qa.POST("/async", h.QA.Submit)
		qa.GET("/status/:taskId", h.QA.GetStatus)
		qa.GET("/result/:taskId", h.QA.GetResult)
		qa.DELETE("/task/:taskId", h.QA.CancelTask)
	}

	g.POST("/analyze-meal", h.Meal.AnalyzeMeal)

	user := g.Group("/user/:userId")
	{
		user.GET("/profile", h.User.GetProfile)
		user.GET("/metrics", h.User.GetMetrics)
		user.GET("/nutrition/history", h.User.GetNutritionHistory)
		user.GET("/nutrition/today", h.User.GetNutritionByDate)
		user.PUT("/nutrition", h.User.UpsertNutrition)
	}

	chat := g.Group("/chat/:userId")
	{
		chat.POST("", h.Chat.Chat)
		chat.GET("/history", h.Chat.GetHistory)
		chat.DELETE("/history", h.Chat.ClearHistory)
	}
}
