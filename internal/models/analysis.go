package models

// AnalysisCategory is the intent detected from a question.
type AnalysisCategory string

const (
	CategoryNutritional      AnalysisCategory = "nutritional"
	CategoryRecipeSuggestion AnalysisCategory = "recipe_suggestion"
	CategoryProductLabel     AnalysisCategory = "product_label"
	CategoryMealPlan         AnalysisCategory = "meal_plan"
	CategoryHabitAnalysis    AnalysisCategory = "habit_analysis"
	CategoryGeneral          AnalysisCategory = "general"
)

// Language is a supported prompt locale.
type Language string

const (
	LanguageSpanish Language = "es"
	LanguageEnglish Language = "en"
)
