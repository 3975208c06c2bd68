package qa

import (
	"context"
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
)

// QAProcessor answers nutrition questions synchronously or as queued jobs.
type QAProcessor interface {
	Answer(ctx context.Context, question string, files []*models.MediaFile, useFilesAPI bool) (string, orchestration.Summary)
	Submit(ctx context.Context, question string, files []*models.MediaFile, useFilesAPI bool) (*models.ProcessingTask, error)
	HandleTask(ctx context.Context, payload *models.QAPayload) error
	GetStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	GetResult(ctx context.Context, taskID string) (*models.QAResult, error)
	CancelTask(ctx context.Context, taskID string) error
	CleanupStaged(ctx context.Context, olderThan time.Duration) (int, error)
}
