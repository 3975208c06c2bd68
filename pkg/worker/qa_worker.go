package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
)

// TaskHandler runs one async QA job.
type TaskHandler interface {
	HandleTask(ctx context.Context, payload *models.QAPayload) error
}

// Cleaner purges staged media older than a retention period.
type Cleaner interface {
	CleanupStaged(ctx context.Context, olderThan time.Duration) (int, error)
}

type QAWorker struct {
	BaseWorker
	handler TaskHandler
	cleaner Cleaner
	cfg     *Config
}

// NewQAWorker builds an asynq server consuming qa:answer tasks. cleaner may be nil.
func NewQAWorker(cfg *Config, handler TaskHandler, cleaner Cleaner, log logger.Logger) (*QAWorker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = map[string]int{
			queue.QueueCritical: 6,
			queue.QueueDefault:  3,
			queue.QueueLow:      1,
		}
	}

	log = log.Named("worker")
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
			Logger: asynqLogger{log},
		},
	)

	w := &QAWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		handler: handler,
		cleaner: cleaner,
		cfg:     cfg,
	}
	w.registerHandlers()
	return w, nil
}

func (w *QAWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeQAAnswer, w.handleQAAnswer)
}

func (w *QAWorker) handleQAAnswer(ctx context.Context, t *asynq.Task) error {
	var payload models.QAPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.Int("payload_size", len(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}
	if payload.TaskID == "" {
		w.logger.Error("Invalid task data: missing task id")
		return fmt.Errorf("invalid task data: %w", asynq.SkipRetry)
	}

	w.logger.Info("Received task",
		logger.String("taskId", payload.TaskID),
		logger.Int("files", len(payload.Files)),
		logger.Bool("use_files_api", payload.UseFilesAPI),
	)
	w.writeResult(t, `{"status":"running","progress":0}`)

	if err := w.handler.HandleTask(ctx, &payload); err != nil {
		w.writeResult(t, fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	w.writeResult(t, `{"status":"completed","progress":100}`)
	return nil
}

// writeResult records progress on the asynq task itself, next to the
// status record kept by the queue.
func (w *QAWorker) writeResult(t *asynq.Task, body string) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	if _, err := rw.Write([]byte(body)); err != nil {
		w.logger.Error("Failed to write task status", logger.Error(err))
	}
}

func (w *QAWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	if w.cleaner != nil && w.cfg.CleanupInterval > 0 {
		go w.runCleanup(ctx)
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = w.Stop()
		case <-w.stopChan:
		}
	}()

	return nil
}

func (w *QAWorker) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.cleaner.CleanupStaged(ctx, w.cfg.RetentionPeriod); err != nil {
				w.logger.Warn("Staged media cleanup failed", logger.Error(err))
			}
		}
	}
}

// asynqLogger routes asynq's own messages through the service logger.
type asynqLogger struct {
	l logger.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal(fmt.Sprint(args...)) }
