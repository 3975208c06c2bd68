package orchestration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	en := BuildSystemPrompt(models.LanguageEnglish, []models.AnalysisCategory{
		models.CategoryNutritional,
		models.CategoryRecipeSuggestion,
		models.CategoryMealPlan,
	})
	assert.Contains(t, en, "Always answer in **English**")
	assert.Contains(t, en, "[EMPHASIS RECIPES]")
	assert.Contains(t, en, "[EMPHASIS PLAN]")
	assert.NotContains(t, en, "[EMPHASIS LABEL]")
	assert.NotContains(t, en, "ÉNFASIS")
	assert.Less(t, strings.Index(en, "[EMPHASIS RECIPES]"), strings.Index(en, "[EMPHASIS PLAN]"))

	es := BuildSystemPrompt(models.LanguageSpanish, []models.AnalysisCategory{models.CategoryProductLabel})
	assert.Contains(t, es, "[ÉNFASIS ETIQUETA]")
	assert.NotContains(t, es, "EMPHASIS")
}

func TestBuildSystemPromptWithoutBlocks(t *testing.T) {
	for _, c := range []models.AnalysisCategory{
		models.CategoryNutritional, models.CategoryHabitAnalysis, models.CategoryGeneral,
	} {
		assert.Equal(t, BaseInstructions(models.LanguageSpanish),
			BuildSystemPrompt(models.LanguageSpanish, []models.AnalysisCategory{c}))
	}
	assert.Equal(t, BaseInstructions(models.LanguageEnglish), BuildSystemPrompt(models.LanguageEnglish, nil))
}

