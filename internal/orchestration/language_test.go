package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		question string
		want     models.Language
	}{
		{"¿Cuáles son las calorías?", models.LanguageSpanish},
		{"What recipes can I make?", models.LanguageEnglish},
		{"How much protein is in the meal", models.LanguageEnglish},
		{"dame una receta con la comida del plato", models.LanguageSpanish},
		{"", models.LanguageSpanish},
		{"   ", models.LanguageSpanish},
		// "plan" and "a" are in both lists
		{"plan a", models.LanguageSpanish},
		{"xyz qwerty", models.LanguageSpanish},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.question), tt.question)
	}
}

func TestDetectLanguageTieIsStable(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.LanguageSpanish, DetectLanguage("the el"))
	}
}
