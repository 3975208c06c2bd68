package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

// Memory is a process-local Store for development and tests.
type Memory struct {
	mu       sync.RWMutex
	metrics  map[string]*models.UserMetrics
	daily    map[string]map[string]*models.DailyNutrition // user -> date -> record
	messages map[string][]*models.ConversationMessage
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		metrics:  make(map[string]*models.UserMetrics),
		daily:    make(map[string]map[string]*models.DailyNutrition),
		messages: make(map[string][]*models.ConversationMessage),
		now:      time.Now,
	}
}

// PutUserMetrics seeds the metrics of a user.
func (m *Memory) PutUserMetrics(metrics *models.UserMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *metrics
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	m.metrics[cp.UserID] = &cp
}

func (m *Memory) GetUserMetrics(_ context.Context, userID string) (*models.UserMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics, ok := m.metrics[userID]
	if !ok {
		return nil, fmt.Errorf("user metrics %s: %w", userID, ErrNotFound)
	}
	cp := *metrics
	return &cp, nil
}

func (m *Memory) GetDailyNutrition(_ context.Context, userID string, limit int) ([]*models.DailyNutrition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*models.DailyNutrition, 0, len(m.daily[userID]))
	for _, rec := range m.daily[userID] {
		cp := *rec
		records = append(records, &cp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *Memory) GetNutritionByDate(_ context.Context, userID, date string) (*models.DailyNutrition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.daily[userID][date]
	if !ok {
		return nil, fmt.Errorf("nutrition of %s on %s: %w", userID, date, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) UpsertDailyNutrition(_ context.Context, n *models.DailyNutrition) (*models.DailyNutrition, error) {
	if err := validateDaily(n); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate, ok := m.daily[n.UserID]
	if !ok {
		byDate = make(map[string]*models.DailyNutrition)
		m.daily[n.UserID] = byDate
	}
	now := m.now()
	rec := *n
	if existing, ok := byDate[n.Date]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.ID = uuid.New().String()
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	byDate[n.Date] = &rec

	cp := rec
	return &cp, nil
}

func (m *Memory) GetUserProfile(ctx context.Context, userID string) (*models.UserNutritionProfile, error) {
	metrics, err := m.GetUserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := m.GetDailyNutrition(ctx, userID, ProfileHistoryDays)
	if err != nil {
		return nil, err
	}
	return &models.UserNutritionProfile{Metrics: metrics, DailyNutrition: history}, nil
}

func (m *Memory) SaveConversationMessage(_ context.Context, userID string, role models.MessageRole, content string) (*models.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	msg := &models.ConversationMessage{
		ID:          uuid.New().String(),
		UserID:      userID,
		MessageType: role,
		Content:     content,
		Timestamp:   now,
		CreatedAt:   now,
	}
	m.messages[userID] = append(m.messages[userID], msg)
	cp := *msg
	return &cp, nil
}

func (m *Memory) GetConversationHistory(_ context.Context, userID string, limit int) ([]*models.ConversationMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*models.ConversationMessage, len(all))
	for i, msg := range all {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

func (m *Memory) ClearConversationHistory(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, userID)
	return nil
}

func (m *Memory) Close() error { return nil }

func validateDaily(n *models.DailyNutrition) error {
	if n == nil || n.UserID == "" {
		return fmt.Errorf("daily nutrition: missing user id")
	}
	if _, err := time.Parse(models.DateLayout, n.Date); err != nil {
		return fmt.Errorf("daily nutrition: invalid date %q: %w", n.Date, err)
	}
	return nil
}
