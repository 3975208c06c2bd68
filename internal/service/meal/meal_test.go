package meal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/agenttest"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

func photo() *models.MediaFile {
	return models.NewMediaFile("lunch.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
}

func TestParseNutrientsStripsFences(t *testing.T) {
	reply := "```json\n{\"food_name\": \"Ensalada\", \"calories\": 320, \"protein_g\": 12.5, \"sodium_mg\": \"410\"}\n```"

	n, err := ParseNutrients(reply)
	require.NoError(t, err)
	assert.Equal(t, "Ensalada", n.FoodName)
	assert.Equal(t, 320.0, n.Calories)
	assert.Equal(t, 12.5, n.ProteinG)
	assert.Equal(t, 410.0, n.SodiumMg)
	assert.Zero(t, n.FatG)
	assert.Zero(t, n.FiberG)
}

func TestParseNutrientsRejectsProse(t *testing.T) {
	_, err := ParseNutrients("No puedo ver la imagen.")
	assert.ErrorIs(t, err, ErrMalformedReply)

	_, err = ParseNutrients("{calories: 3")
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestAnalyzeMealSendsImageAtTemperatureZero(t *testing.T) {
	backend := agenttest.New(`{"calories": 500, "carbs_g": 60}`)
	gen := config.DefaultOrchestrationConfig().Generation
	a := NewAnalyzer(backend, gen, logger.NewTestLogger())

	res, err := a.AnalyzeMeal(context.Background(), photo())
	require.NoError(t, err)
	assert.Equal(t, 500.0, res.Nutrients.Calories)
	assert.Equal(t, 60.0, res.Nutrients.CarbsG)
	assert.Equal(t, gen.Model, res.Model)

	req := backend.LastRequest()
	require.NotNil(t, req)
	assert.Zero(t, req.Temperature)
	require.Len(t, req.Parts, 2)
	blob, ok := req.Parts[1].(llm.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
}

func TestAnalyzeMealRejectsNonImages(t *testing.T) {
	a := NewAnalyzer(agenttest.New("{}"), config.GenerationConfig{}, logger.NewTestLogger())
	_, err := a.AnalyzeMeal(context.Background(), models.NewMediaFile("a.pdf", "application/pdf", []byte("%PDF")))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestAnalyzeMealPropagatesBackendErrors(t *testing.T) {
	backend := agenttest.New("unused")
	backend.GenerateErrs = []error{errors.New("quota exceeded")}
	log := logger.NewTestLogger()
	a := NewAnalyzer(backend, config.GenerationConfig{Model: "m"}, log)

	_, err := a.AnalyzeMeal(context.Background(), photo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.True(t, log.HasMessage("ERROR", "Meal analysis failed"))
}
