package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

const (
	TaskTypeQAAnswer = "qa:answer"

	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrResultNotFound = errors.New("result not found")
)

var queueNames = []string{QueueCritical, QueueDefault, QueueLow}

// Queue schedules async QA jobs and keeps their status and results.
type Queue interface {
	Enqueue(ctx context.Context, payload *models.QAPayload) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, status *TaskStatus) error
	SaveResult(ctx context.Context, result *models.QAResult) error
	GetResult(ctx context.Context, taskID string) (*models.QAResult, error)
}

// TaskStatus is the externally visible state of a job.
type TaskStatus struct {
	TaskID     string                  `json:"taskId"`
	Status     models.ProcessingStatus `json:"status"`
	Progress   float64                 `json:"progress"`
	Error      string                  `json:"error,omitempty"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt,omitempty"`
}

type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	cfg       *QueueConfig
}

type QueueConfig struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MaxRetries     int
	ProcessTimeout time.Duration
	StatusTTL      time.Duration
}

func (c *QueueConfig) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// TaskOptions are the asynq options every qa:answer task is enqueued with.
func (c *QueueConfig) TaskOptions(taskID string) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(c.MaxRetries),
		asynq.Timeout(c.ProcessTimeout),
		asynq.TaskID(taskID),
		asynq.Queue(QueueDefault),
		asynq.Retention(c.StatusTTL),
	}
}

func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 10 * time.Minute
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &AsynqQueue{
		client:    asynq.NewClient(cfg.RedisOpt()),
		inspector: asynq.NewInspector(cfg.RedisOpt()),
		redis:     redisClient,
		cfg:       cfg,
	}, nil
}

// Ping checks that Redis is reachable.
func (q *AsynqQueue) Ping(ctx context.Context) error {
	return q.redis.Ping(ctx).Err()
}

func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close(), q.redis.Close())
}

// Enqueue schedules payload under its own task id and records it as pending.
func (q *AsynqQueue) Enqueue(ctx context.Context, payload *models.QAPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	t := asynq.NewTask(TaskTypeQAAnswer, data, q.cfg.TaskOptions(payload.TaskID)...)
	if _, err := q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return q.SaveStatus(ctx, &TaskStatus{
		TaskID:    payload.TaskID,
		Status:    models.StatusPending,
		StartedAt: time.Now(),
	})
}

// GetTaskStatus prefers the status record and falls back to asynq's own view.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := q.redis.Get(ctx, StatusKey(taskID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	if err == nil {
		var status TaskStatus
		if err := json.Unmarshal(data, &status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status: %w", err)
		}
		return &status, nil
	}

	for _, name := range queueNames {
		info, err := q.inspector.GetTaskInfo(name, taskID)
		if err == nil {
			return convertAsynqStatus(info), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// CancelTask removes a job that has not run yet.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	var lastErr error
	for _, name := range queueNames {
		err := q.inspector.DeleteTask(name, taskID)
		if err == nil {
			return q.SaveStatus(ctx, &TaskStatus{
				TaskID:     taskID,
				Status:     models.StatusCancelled,
				FinishedAt: time.Now(),
			})
		}
		lastErr = err
	}
	if errors.Is(lastErr, asynq.ErrTaskNotFound) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return fmt.Errorf("failed to cancel task: %w", lastErr)
}

func (q *AsynqQueue) SaveStatus(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, StatusKey(status.TaskID), data, q.cfg.StatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (q *AsynqQueue) SaveResult(ctx context.Context, result *models.QAResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := q.redis.Set(ctx, ResultKey(result.TaskID), data, q.cfg.StatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (q *AsynqQueue) GetResult(ctx context.Context, taskID string) (*models.QAResult, error) {
	data, err := q.redis.Get(ctx, ResultKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result from redis: %w", err)
	}

	var result models.QAResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func StatusKey(taskID string) string { return "task_status:" + taskID }
func ResultKey(taskID string) string { return "result:" + taskID }

func convertAsynqStatus(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		StartedAt: info.NextProcessAt,
	}

	switch info.State {
	case asynq.TaskStatePending, asynq.TaskStateScheduled:
		status.Status = models.StatusPending
	case asynq.TaskStateActive:
		status.Status = models.StatusRunning
		status.Progress = 0.5
	case asynq.TaskStateCompleted:
		status.Status = models.StatusCompleted
		status.Progress = 1.0
		status.FinishedAt = info.CompletedAt
	case asynq.TaskStateRetry:
		status.Status = models.StatusRunning
		status.Error = info.LastErr
	case asynq.TaskStateArchived:
		status.Status = models.StatusFailed
		status.Error = info.LastErr
	default:
		status.Status = models.StatusPending
	}
	return status
}
