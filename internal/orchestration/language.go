package orchestration

import (
	"strings"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

var spanishWords = wordSet(
	"el", "la", "de", "que", "es", "y", "en", "un", "una", "los", "las", "por", "con", "para",
	"a", "se", "del", "al", "lo", "como", "más", "cómo", "qué", "cuál", "cuáles", "dónde",
	"cuándo", "cuánto", "cuántos", "receta", "nutrición", "caloría", "proteína", "carbohidrato",
	"grasa", "comida", "plato", "dieta", "plan", "menú", "etiqueta", "hábito",
)

var englishWords = wordSet(
	"the", "a", "and", "is", "in", "of", "to", "for", "that", "it", "with", "on", "as", "at",
	"be", "or", "by", "from", "this", "an", "how", "what", "which", "where", "when", "why",
	"recipe", "nutrition", "calorie", "protein", "carbohydrate", "fat", "meal", "diet", "plan",
	"menu", "label", "habit",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// DetectLanguage picks the language whose word list shares strictly more
// distinct tokens with question. Ties, including empty input, are Spanish.
func DetectLanguage(question string) models.Language {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(question)) {
		tokens[tok] = struct{}{}
	}

	var es, en int
	for tok := range tokens {
		if _, ok := spanishWords[tok]; ok {
			es++
		}
		if _, ok := englishWords[tok]; ok {
			en++
		}
	}
	if en > es {
		return models.LanguageEnglish
	}
	return models.LanguageSpanish
}
