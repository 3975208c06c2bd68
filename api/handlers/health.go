package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
)

type HealthHandler struct {
	llm   *config.LLMConfig
	model string
}

func NewHealthHandler(llm *config.LLMConfig, model string) *HealthHandler {
	return &HealthHandler{llm: llm, model: model}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EnvCheck reports whether the backend credentials were loaded, never their values.
func (h *HealthHandler) EnvCheck(c *gin.Context) {
	resp := gin.H{
		"google_api_key_loaded": false,
		"provider":              "",
		"model":                 h.model,
	}
	if h.llm != nil {
		resp["google_api_key_loaded"] = h.llm.GoogleAPIKey != ""
		resp["provider"] = h.llm.Provider
	}
	c.JSON(http.StatusOK, resp)
}
