// Package store reads and writes the per-user nutrition data behind the
// profile endpoints and the chatbot.
package store

import (
	"context"
	"errors"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

var ErrNotFound = errors.New("not found")

// ProfileHistoryDays is how many daily records a profile carries.
const ProfileHistoryDays = 30

type Store interface {
	// GetUserMetrics returns ErrNotFound when the user has no metrics row.
	GetUserMetrics(ctx context.Context, userID string) (*models.UserMetrics, error)
	// GetDailyNutrition returns up to limit records, newest first.
	GetDailyNutrition(ctx context.Context, userID string, limit int) ([]*models.DailyNutrition, error)
	// GetNutritionByDate returns ErrNotFound when nothing was logged on date (YYYY-MM-DD).
	GetNutritionByDate(ctx context.Context, userID, date string) (*models.DailyNutrition, error)
	// UpsertDailyNutrition replaces the totals of (UserID, Date).
	UpsertDailyNutrition(ctx context.Context, n *models.DailyNutrition) (*models.DailyNutrition, error)
	// GetUserProfile returns metrics plus the last ProfileHistoryDays records.
	GetUserProfile(ctx context.Context, userID string) (*models.UserNutritionProfile, error)

	SaveConversationMessage(ctx context.Context, userID string, role models.MessageRole, content string) (*models.ConversationMessage, error)
	// GetConversationHistory returns the latest limit messages, oldest first.
	GetConversationHistory(ctx context.Context, userID string, limit int) ([]*models.ConversationMessage, error)
	ClearConversationHistory(ctx context.Context, userID string) error

	Close() error
}
