package meal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

var (
	ErrNotAnImage     = errors.New("meal analysis needs an image")
	ErrMalformedReply = errors.New("model reply is not a JSON object")
)

const instruction = `Analiza esta imagen de comida y extrae SOLO estos valores nutricionales.
Sé preciso con los números estimados basándote en el tamaño de las porciones.

Responde únicamente con un objeto JSON, sin texto adicional, con las claves:
{"food_name": string, "description": string, "calories": number, "protein_g": number,
"carbs_g": number, "fat_g": number, "fiber_g": number, "sugar_g": number, "sodium_mg": number}`

// Analysis is one meal estimate plus how it was obtained.
type Analysis struct {
	Nutrients        models.MealNutrients
	Model            string
	ProcessingTimeMs float64
}

// Analyzer estimates the nutrients of a plate from a single photo.
type Analyzer struct {
	backend llm.Backend
	gen     config.GenerationConfig
	logger  logger.Logger
}

func NewAnalyzer(backend llm.Backend, gen config.GenerationConfig, log logger.Logger) *Analyzer {
	return &Analyzer{backend: backend, gen: gen, logger: log.Named("meal")}
}

// AnalyzeMeal asks the model for a JSON-only answer at temperature 0.
func (a *Analyzer) AnalyzeMeal(ctx context.Context, image *models.MediaFile) (*Analysis, error) {
	if image == nil || models.MediaTypeFromMIME(image.MIMEType) != models.MediaImage {
		return nil, ErrNotAnImage
	}
	log := logger.FromContext(ctx, a.logger)
	start := time.Now()

	req := &llm.GenerateRequest{
		Model:           a.gen.Model,
		Temperature:     0,
		MaxOutputTokens: a.gen.MaxOutputTokens,
		TopP:            a.gen.TopP,
		TopK:            a.gen.TopK,
		Parts: []llm.Part{
			llm.Text(instruction),
			llm.Blob{MIMEType: image.MIMEType, Data: image.Data},
		},
	}
	reply, err := a.backend.Generate(ctx, req)
	if err != nil {
		log.Error("Meal analysis failed", logger.Error(err))
		return nil, fmt.Errorf("failed to analyze meal: %w", err)
	}

	nutrients, err := ParseNutrients(reply)
	if err != nil {
		log.Warn("Unparseable meal analysis reply",
			logger.String("reply", truncate(reply, 300)),
			logger.Error(err),
		)
		return nil, err
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	log.Info("Meal analyzed",
		logger.String("food_name", nutrients.FoodName),
		logger.Float64("calories", nutrients.Calories),
		logger.Float64("processing_time_ms", elapsed),
	)
	return &Analysis{Nutrients: *nutrients, Model: a.gen.Model, ProcessingTimeMs: elapsed}, nil
}

// ParseNutrients extracts the JSON object of reply, tolerating code fences
// and numbers sent as strings. Missing fields are 0.
func ParseNutrients(reply string) (*models.MealNutrients, error) {
	s := strings.TrimSpace(reply)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, ErrMalformedReply
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	return &models.MealNutrients{
		FoodName:    str(raw["food_name"]),
		Description: str(raw["description"]),
		Calories:    num(raw["calories"]),
		ProteinG:    num(raw["protein_g"]),
		CarbsG:      num(raw["carbs_g"]),
		FatG:        num(raw["fat_g"]),
		FiberG:      num(raw["fiber_g"]),
		SugarG:      num(raw["sugar_g"]),
		SodiumMg:    num(raw["sodium_mg"]),
	}, nil
}

func num(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
