package orchestration

import (
	"strings"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

type categoryRule struct {
	category models.AnalysisCategory
	keywords []string
}

// categoryTable is evaluated in order; the order is the order categories
// appear in DetectedCategories and therefore in the system prompt. Each rule
// lists the Spanish keywords first, then their English counterparts.
var categoryTable = []categoryRule{
	{models.CategoryNutritional, []string{
		"nutrición", "caloría", "grasa", "proteína", "carbohidrato",
		"macronutriente", "vitamina", "mineral", "fibra", "sodio",
		"azúcar", "equilibrado", "saludable", "energía",
		"nutrition", "nutrient", "calorie", "kcal", "protein", "carbohydrate", "carbs", "fat",
		"macro", "vitamin", "fiber", "fibre", "sodium", "sugar", "balanced", "healthy", "energy",
	}},
	{models.CategoryRecipeSuggestion, []string{
		"receta", "idea", "cómo hacer", "preparar", "ingrediente",
		"cocina", "cocinar", "hacer", "sugerencia", "propuesta",
		"alternativa", "cambio", "modificación",
		"recipe", "cook", "prepare", "dish", "suggest", "how to make", "alternative",
	}},
	{models.CategoryProductLabel, []string{
		"etiqueta", "producto", "envasado", "composición",
		"ingredientes", "alérgeno", "información nutricional",
		"marca", "porción",
		"label", "product", "packaged", "allergen", "brand", "serving", "nutrition facts",
	}},
	{models.CategoryMealPlan, []string{
		"plan", "menú", "semana", "diario", "programación",
		"desayuno", "almuerzo", "cena", "snack", "horario",
		"distribución",
		"menu", "week", "daily", "breakfast", "lunch", "dinner", "schedule",
	}},
	{models.CategoryHabitAnalysis, []string{
		"hábito", "costumbre", "frecuencia", "rutina",
		"diario", "regularidad", "patrón", "comportamiento",
		"habit", "routine", "frequency", "pattern", "behavior", "behaviour",
	}},
}

// ClassifyQuestion returns the categories whose keywords occur in question,
// in table order, or {GENERAL} when none does. Single-word keywords match
// inside any whitespace token; multi-word keywords match the whole text.
func ClassifyQuestion(question string) []models.AnalysisCategory {
	text := strings.ToLower(question)
	tokens := strings.Fields(text)

	var categories []models.AnalysisCategory
	for _, rule := range categoryTable {
		if matchesAny(rule.keywords, tokens, text) {
			categories = append(categories, rule.category)
		}
	}
	if len(categories) == 0 {
		return []models.AnalysisCategory{models.CategoryGeneral}
	}
	return categories
}

func matchesAny(keywords, tokens []string, text string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if strings.Contains(tok, kw) {
				return true
			}
		}
	}
	return false
}

// ClassifyMedia assigns MediaType to every file.
func ClassifyMedia(files []*models.MediaFile) {
	for _, f := range files {
		f.MediaType = models.MediaTypeFromMIME(f.MIMEType)
	}
}
