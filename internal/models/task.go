package models

import (
	"time"
)

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

// ProcessingTask is the status record of an async QA job.
type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// StagedFile references a media item parked in object storage for a job.
type StagedFile struct {
	Key       string `json:"key"`
	Filename  string `json:"filename"`
	MIMEType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// QAPayload is the asynq payload of a qa:answer task.
type QAPayload struct {
	TaskID      string       `json:"taskId"`
	Question    string       `json:"question"`
	UseFilesAPI bool         `json:"useFilesApi"`
	Files       []StagedFile `json:"files"`
	RequestID   string       `json:"requestId,omitempty"`
}

// QAResult is the stored outcome of a finished job.
type QAResult struct {
	TaskID      string                 `json:"taskId"`
	OK          bool                   `json:"ok"`
	Answer      string                 `json:"answer"`
	Metadata    map[string]interface{} `json:"metadata"`
	CompletedAt time.Time              `json:"completedAt"`
}
