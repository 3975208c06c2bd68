package qa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/converters"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/metrics"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
)

const StagingPrefix = "qa/"

var ErrTaskNotCompleted = errors.New("task is not completed")

type QAService struct {
	orchestrator *orchestration.Orchestrator
	queue        queue.Queue
	storage      storage.Storage
	converter    converters.ResultConverter
	logger       logger.Logger
	config       *ServiceConfig

	// lastAttempt reports whether the running delivery is the last one
	// asynq will make.
	lastAttempt func(ctx context.Context) bool
}

type ServiceConfig struct {
	MaxConcurrent   int
	RetentionPeriod time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxConcurrent:   5,
		RetentionPeriod: 24 * time.Hour,
	}
}

// NewService wires the pipeline to the async job plumbing. q and store may be
// nil when only synchronous answers are needed.
func NewService(
	orchestrator *orchestration.Orchestrator,
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
	cfg *ServiceConfig,
) *QAService {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &QAService{
		orchestrator: orchestrator,
		queue:        q,
		storage:      store,
		converter:    converters.NewJSONConverter(),
		logger:       log.Named("qa"),
		config:       cfg,
		lastAttempt:  asynqLastAttempt,
	}
}

// asynqLastAttempt treats calls made outside an asynq handler as final.
func asynqLastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// Answer runs the pipeline in the caller's goroutine.
func (s *QAService) Answer(ctx context.Context, question string, files []*models.MediaFile, useFilesAPI bool) (string, orchestration.Summary) {
	return s.orchestrator.Invoke(ctx, question, files, useFilesAPI)
}

// Submit stages files in object storage and enqueues a qa:answer job.
func (s *QAService) Submit(ctx context.Context, question string, files []*models.MediaFile, useFilesAPI bool) (*models.ProcessingTask, error) {
	if s.queue == nil || s.storage == nil {
		return nil, errors.New("async processing is not configured")
	}

	log := logger.FromContext(ctx, s.logger)
	taskID := uuid.New().String()
	now := time.Now()

	staged, err := s.stageFiles(ctx, taskID, files)
	if err != nil {
		log.Error("Failed to stage files",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		s.deleteStaged(ctx, staged)
		return nil, err
	}

	payload := &models.QAPayload{
		TaskID:      taskID,
		Question:    question,
		UseFilesAPI: useFilesAPI,
		Files:       staged,
		RequestID:   logger.RequestID(ctx),
	}
	if err := s.queue.Enqueue(ctx, payload); err != nil {
		log.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		s.deleteStaged(ctx, staged)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info("QA task created",
		logger.String("taskId", taskID),
		logger.Int("files", len(staged)),
	)

	return &models.ProcessingTask{
		ID:     taskID,
		Status: models.StatusPending,
		Type:   queue.TaskTypeQAAnswer,
		Metadata: map[string]string{
			"files":         fmt.Sprintf("%d", len(staged)),
			"use_files_api": fmt.Sprintf("%t", useFilesAPI),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// stageFiles uploads every file concurrently. On error the returned slice
// holds whatever made it to storage so the caller can remove it.
func (s *QAService) stageFiles(ctx context.Context, taskID string, files []*models.MediaFile) ([]models.StagedFile, error) {
	staged := make([]models.StagedFile, len(files))
	ok := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			key := StagingKey(taskID, i, f.Filename)
			if err := s.storage.Store(gctx, key, bytes.NewReader(f.Data), f.SizeBytes, f.MIMEType); err != nil {
				return fmt.Errorf("failed to stage %s: %w", f.Filename, err)
			}
			staged[i] = models.StagedFile{
				Key:       key,
				Filename:  f.Filename,
				MIMEType:  f.MIMEType,
				SizeBytes: f.SizeBytes,
			}
			ok[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		return staged, nil
	}

	done := make([]models.StagedFile, 0, len(files))
	for i := range staged {
		if ok[i] {
			done = append(done, staged[i])
		}
	}
	return done, err
}

// HandleTask runs one queued job to completion and records its result.
func (s *QAService) HandleTask(ctx context.Context, payload *models.QAPayload) error {
	if payload == nil || payload.TaskID == "" {
		return errors.New("invalid task: missing task id")
	}
	if payload.RequestID != "" {
		ctx = logger.WithRequestID(ctx, payload.RequestID)
	}
	log := logger.FromContext(ctx, s.logger).With(logger.String("taskId", payload.TaskID))
	started := time.Now()

	log.Info("Processing QA task", logger.Int("files", len(payload.Files)))
	s.saveStatus(ctx, log, &queue.TaskStatus{
		TaskID:    payload.TaskID,
		Status:    models.StatusRunning,
		Progress:  0.1,
		StartedAt: started,
	})

	files, err := s.loadFiles(ctx, payload.Files)
	if err != nil {
		return s.fail(ctx, log, payload.TaskID, started, err)
	}

	answer, summary := s.orchestrator.Invoke(ctx, payload.Question, files, payload.UseFilesAPI)

	result, err := s.converter.Convert(payload.TaskID, answer, summary)
	if err != nil {
		return s.fail(ctx, log, payload.TaskID, started, err)
	}
	if err := s.queue.SaveResult(ctx, result); err != nil {
		return s.fail(ctx, log, payload.TaskID, started, fmt.Errorf("failed to save result: %w", err))
	}

	s.saveStatus(ctx, log, &queue.TaskStatus{
		TaskID:     payload.TaskID,
		Status:     models.StatusCompleted,
		Progress:   1.0,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	s.deleteStaged(ctx, payload.Files)
	metrics.AsyncTasksTotal.WithLabelValues(string(models.StatusCompleted)).Inc()

	log.Info("QA task completed",
		logger.String("outcome", string(summary.Outcome.Status)),
		logger.Int("answer_length", summary.AnswerLength),
	)
	return nil
}

// fail records err. Only the last delivery, or an error the worker will not
// retry, marks the task failed; earlier ones leave it running for the retry.
func (s *QAService) fail(ctx context.Context, log logger.Logger, taskID string, started time.Time, err error) error {
	if !errors.Is(err, storage.ErrObjectNotFound) && !s.lastAttempt(ctx) {
		log.Warn("QA task attempt failed, will retry", logger.Error(err))
		s.saveStatus(ctx, log, &queue.TaskStatus{
			TaskID:    taskID,
			Status:    models.StatusRunning,
			Error:     err.Error(),
			StartedAt: started,
		})
		return err
	}

	log.Error("QA task failed", logger.Error(err))
	s.saveStatus(ctx, log, &queue.TaskStatus{
		TaskID:     taskID,
		Status:     models.StatusFailed,
		Error:      err.Error(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	metrics.AsyncTasksTotal.WithLabelValues(string(models.StatusFailed)).Inc()
	return err
}

func (s *QAService) saveStatus(ctx context.Context, log logger.Logger, status *queue.TaskStatus) {
	if err := s.queue.SaveStatus(ctx, status); err != nil {
		log.Error("Failed to save task status",
			logger.String("status", string(status.Status)),
			logger.Error(err),
		)
	}
}

// loadFiles reads staged objects back, keeping the submitted order.
func (s *QAService) loadFiles(ctx context.Context, staged []models.StagedFile) ([]*models.MediaFile, error) {
	files := make([]*models.MediaFile, len(staged))
	g, gctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}
	for i, sf := range staged {
		i, sf := i, sf
		g.Go(func() error {
			rc, err := s.storage.Get(gctx, sf.Key)
			if err != nil {
				return fmt.Errorf("failed to load staged file: %w", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("failed to read staged file %s: %w", sf.Key, err)
			}
			files[i] = models.NewMediaFile(sf.Filename, sf.MIMEType, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// deleteStaged is best effort; leftovers are purged by CleanupStaged.
func (s *QAService) deleteStaged(ctx context.Context, staged []models.StagedFile) {
	ctx = context.WithoutCancel(ctx)
	for _, sf := range staged {
		if err := s.storage.Delete(ctx, sf.Key); err != nil {
			s.logger.Warn("Failed to delete staged file",
				logger.String("key", sf.Key),
				logger.Error(err),
			)
		}
	}
}

// GetStatus reports the state of a queued job.
func (s *QAService) GetStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: %s", queue.ErrTaskNotFound, taskID)
	}
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    status.Status,
		Type:      queue.TaskTypeQAAnswer,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetResult returns the answer of a completed job.
func (s *QAService) GetResult(ctx context.Context, taskID string) (*models.QAResult, error) {
	status, err := s.GetStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotCompleted, status.Status)
	}

	result, err := s.queue.GetResult(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *QAService) CancelTask(ctx context.Context, taskID string) error {
	if s.queue == nil {
		return fmt.Errorf("%w: %s", queue.ErrTaskNotFound, taskID)
	}
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled", logger.String("taskId", taskID))
	return nil
}

// CleanupStaged purges staged media older than olderThan. A non-positive
// value falls back to the retention period.
func (s *QAService) CleanupStaged(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.storage == nil {
		return 0, nil
	}
	if olderThan <= 0 {
		olderThan = s.config.RetentionPeriod
	}
	threshold := time.Now().Add(-olderThan)

	n, err := s.storage.CleanupBefore(ctx, StagingPrefix, threshold)
	if err != nil {
		return n, fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Staged media cleanup finished",
		logger.Time("threshold", threshold),
		logger.Int("deleted", n),
	)
	return n, nil
}

// StagingKey is where file index of task taskID is parked.
func StagingKey(taskID string, index int, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s%s/%d-%s", StagingPrefix, taskID, index, name)
}
