package models

import (
	"time"
)

// DateLayout is the wire format of nutrition dates.
const DateLayout = "2006-01-02"

// UserMetrics holds the body metrics and daily goals of a user.
type UserMetrics struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Weight      float64   `json:"weight" db:"weight"` // kg
	Height      float64   `json:"height" db:"height"` // cm
	CalorieGoal float64   `json:"calorie_goal" db:"calorie_goal"`
	ProteinGoal float64   `json:"protein_goal" db:"protein_goal"`
	CarbsGoal   float64   `json:"carbs_goal" db:"carbs_goal"`
	FatGoal     float64   `json:"fat_goal" db:"fat_goal"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// BMI returns weight / height², or 0 when height is unknown.
func (m *UserMetrics) BMI() float64 {
	if m == nil || m.Height <= 0 {
		return 0
	}
	h := m.Height / 100
	return m.Weight / (h * h)
}

// DailyNutrition is the consumption total of one user for one day.
type DailyNutrition struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Date      string    `json:"date" db:"date"` // YYYY-MM-DD
	Calories  float64   `json:"calories" db:"calories"`
	Protein   float64   `json:"protein" db:"protein"`
	Carbs     float64   `json:"carbs" db:"carbs"`
	Fat       float64   `json:"fat" db:"fat"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is one chat turn.
type ConversationMessage struct {
	ID          string      `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	MessageType MessageRole `json:"message_type" db:"message_type"`
	Content     string      `json:"content" db:"content"`
	Timestamp   time.Time   `json:"timestamp" db:"timestamp"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// UserNutritionProfile bundles metrics with recent history.
type UserNutritionProfile struct {
	Metrics        *UserMetrics      `json:"metrics"`
	DailyNutrition []*DailyNutrition `json:"daily_nutrition"`
}

// MealNutrients is the structured estimate returned by meal analysis.
type MealNutrients struct {
	FoodName    string  `json:"food_name,omitempty"`
	Description string  `json:"description,omitempty"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	CarbsG      float64 `json:"carbs_g"`
	FatG        float64 `json:"fat_g"`
	FiberG      float64 `json:"fiber_g"`
	SugarG      float64 `json:"sugar_g"`
	SodiumMg    float64 `json:"sodium_mg"`
}
