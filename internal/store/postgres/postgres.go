package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
)

// Store implements store.Store on the user_metrics, daily_nutrition and
// conversation_history tables.
type Store struct {
	DB *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New connects to Postgres. maxConns <= 0 keeps the pgxpool default.
func New(ctx context.Context, connStr string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

const metricsColumns = `id::text AS id, user_id::text AS user_id,
        weight::float8 AS weight, height::float8 AS height,
        calorie_goal::float8 AS calorie_goal, protein_goal::float8 AS protein_goal,
        carbs_goal::float8 AS carbs_goal, fat_goal::float8 AS fat_goal,
        created_at, updated_at`

const dailyColumns = `id::text AS id, user_id::text AS user_id, date::text AS date,
        calories::float8 AS calories, protein::float8 AS protein,
        carbs::float8 AS carbs, fat::float8 AS fat,
        created_at, updated_at`

const messageColumns = `id::text AS id, user_id::text AS user_id, message_type, content,
        "timestamp", created_at`

func (s *Store) GetUserMetrics(ctx context.Context, userID string) (*models.UserMetrics, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+metricsColumns+` FROM user_metrics WHERE user_id = $1 LIMIT 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user metrics: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.UserMetrics])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user metrics %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user metrics: %w", err)
	}
	return m, nil
}

func (s *Store) GetDailyNutrition(ctx context.Context, userID string, limit int) ([]*models.DailyNutrition, error) {
	if limit <= 0 {
		limit = store.ProfileHistoryDays
	}
	rows, err := s.DB.Query(ctx, `
        SELECT `+dailyColumns+`
        FROM daily_nutrition
        WHERE user_id = $1
        ORDER BY date DESC
        LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily nutrition: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.DailyNutrition])
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily nutrition: %w", err)
	}
	return records, nil
}

func (s *Store) GetNutritionByDate(ctx context.Context, userID, date string) (*models.DailyNutrition, error) {
	rows, err := s.DB.Query(ctx, `
        SELECT `+dailyColumns+`
        FROM daily_nutrition
        WHERE user_id = $1 AND date = $2::date
        LIMIT 1`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily nutrition: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.DailyNutrition])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("nutrition of %s on %s: %w", userID, date, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily nutrition: %w", err)
	}
	return rec, nil
}

// UpsertDailyNutrition updates the row of (user, date) if one exists and
// inserts otherwise, without relying on a unique constraint.
func (s *Store) UpsertDailyNutrition(ctx context.Context, n *models.DailyNutrition) (rec *models.DailyNutrition, err error) {
	if n == nil || n.UserID == "" {
		return nil, errors.New("daily nutrition: missing user id")
	}
	if _, perr := time.Parse(models.DateLayout, n.Date); perr != nil {
		return nil, fmt.Errorf("daily nutrition: invalid date %q: %w", n.Date, perr)
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `
        SELECT id::text FROM daily_nutrition
        WHERE user_id = $1 AND date = $2::date
        LIMIT 1
        FOR UPDATE`, n.UserID, n.Date).Scan(&id)

	var rows pgx.Rows
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		rows, err = tx.Query(ctx, `
            INSERT INTO daily_nutrition (user_id, date, calories, protein, carbs, fat)
            VALUES ($1, $2::date, $3, $4, $5, $6)
            RETURNING `+dailyColumns,
			n.UserID, n.Date, n.Calories, n.Protein, n.Carbs, n.Fat)
	case err != nil:
		return nil, fmt.Errorf("failed to look up daily nutrition: %w", err)
	default:
		rows, err = tx.Query(ctx, `
            UPDATE daily_nutrition
            SET calories = $2, protein = $3, carbs = $4, fat = $5, updated_at = NOW()
            WHERE id::text = $1
            RETURNING `+dailyColumns,
			id, n.Calories, n.Protein, n.Carbs, n.Fat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save daily nutrition: %w", err)
	}
	rec, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.DailyNutrition])
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily nutrition: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit daily nutrition: %w", err)
	}
	return rec, nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (*models.UserNutritionProfile, error) {
	metrics, err := s.GetUserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.GetDailyNutrition(ctx, userID, store.ProfileHistoryDays)
	if err != nil {
		return nil, err
	}
	return &models.UserNutritionProfile{Metrics: metrics, DailyNutrition: history}, nil
}

func (s *Store) SaveConversationMessage(ctx context.Context, userID string, role models.MessageRole, content string) (*models.ConversationMessage, error) {
	rows, err := s.DB.Query(ctx, `
        INSERT INTO conversation_history (user_id, message_type, content, "timestamp")
        VALUES ($1, $2, $3, $4)
        RETURNING `+messageColumns,
		userID, string(role), content, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	msg, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.ConversationMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	return msg, nil
}

func (s *Store) GetConversationHistory(ctx context.Context, userID string, limit int) ([]*models.ConversationMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
        SELECT * FROM (
            SELECT `+messageColumns+`
            FROM conversation_history
            WHERE user_id = $1
            ORDER BY created_at DESC
            LIMIT $2
        ) latest
        ORDER BY created_at ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.ConversationMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation history: %w", err)
	}
	return msgs, nil
}

func (s *Store) ClearConversationHistory(ctx context.Context, userID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM conversation_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}

// CreateSchema creates the three tables if they are missing. schemaPath, when
// set, replaces the built-in DDL.
func (s *Store) CreateSchema(ctx context.Context, schemaPath string) error {
	schema := defaultSchema
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schema = string(data)
	}
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	s.DB.Close()
	return nil
}

const defaultSchema = `
CREATE TABLE IF NOT EXISTS user_metrics (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id TEXT NOT NULL UNIQUE,
    weight DOUBLE PRECISION NOT NULL DEFAULT 0,
    height DOUBLE PRECISION NOT NULL DEFAULT 0,
    calorie_goal DOUBLE PRECISION NOT NULL DEFAULT 0,
    protein_goal DOUBLE PRECISION NOT NULL DEFAULT 0,
    carbs_goal DOUBLE PRECISION NOT NULL DEFAULT 0,
    fat_goal DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS daily_nutrition (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id TEXT NOT NULL,
    date DATE NOT NULL,
    calories DOUBLE PRECISION NOT NULL DEFAULT 0,
    protein DOUBLE PRECISION NOT NULL DEFAULT 0,
    carbs DOUBLE PRECISION NOT NULL DEFAULT 0,
    fat DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS daily_nutrition_user_date_idx ON daily_nutrition (user_id, date DESC);

CREATE TABLE IF NOT EXISTS conversation_history (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id TEXT NOT NULL,
    message_type TEXT NOT NULL,
    content TEXT NOT NULL,
    "timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);

CREATE INDEX IF NOT EXISTS conversation_history_user_idx ON conversation_history (user_id, created_at);
`
