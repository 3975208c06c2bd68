package orchestration

import (
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
)

// Stage names as they appear in the execution log.
const (
	StepValidate = "validate"
	StepClassify = "classify"
	StepUpload   = "upload"
	StepEnrich   = "enrich"
	StepGenerate = "generate"
	StepCleanup  = "cleanup"
)

// Execution log statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusWarning = "warning"
	StatusError   = "error"
	StatusRetry   = "retry"
)

// ExecutionLog is one entry of the append-only audit trail.
type ExecutionLog struct {
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type OutcomeStatus string

const (
	OutcomeSuccess          OutcomeStatus = "success"
	OutcomeValidationFailed OutcomeStatus = "validation_failed"
	OutcomeGenerationFailed OutcomeStatus = "generation_failed"
)

// Outcome tells callers how the run ended without parsing the answer text.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == OutcomeSuccess }

// State is owned by exactly one stage at a time.
type State struct {
	Question        string
	MediaFiles      []*models.MediaFile
	UseRemoteUpload bool

	DetectedCategories []models.AnalysisCategory
	UploadedRemoteIDs  []string

	ValidationPassed bool
	ValidationErrors []string

	Temperature float32
	ModelName   string
	Language    models.Language

	SystemPrompt   string
	Answer         string
	AnswerMarkdown string
	Outcome        Outcome

	ExecutionLogs    []ExecutionLog
	ProcessingTimeMs float64
}

// NewState builds the state of one request.
func NewState(question string, files []*models.MediaFile, useRemoteUpload bool, gen config.GenerationConfig) *State {
	if files == nil {
		files = []*models.MediaFile{}
	}
	return &State{
		Question:         question,
		MediaFiles:       files,
		UseRemoteUpload:  useRemoteUpload,
		ValidationPassed: true,
		Temperature:      gen.Temperature,
		ModelName:        gen.Model,
		Language:         models.LanguageSpanish,
	}
}

func (s *State) addLog(step, status, detail string) {
	s.ExecutionLogs = append(s.ExecutionLogs, ExecutionLog{
		Step:      step,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

func (s *State) addValidationError(msg string) {
	s.ValidationErrors = append(s.ValidationErrors, msg)
	s.ValidationPassed = false
}

func (s *State) addElapsed(d time.Duration) {
	if d > 0 {
		s.ProcessingTimeMs += float64(d.Microseconds()) / 1000
	}
}

// Summary is the diagnostic record returned next to the answer.
type Summary struct {
	Question         string         `json:"question"`
	MediaCount       int            `json:"media_count"`
	AnalysisTypes    []string       `json:"analysis_types"`
	ValidationPassed bool           `json:"validation_passed"`
	AnswerLength     int            `json:"answer_length"`
	ExecutionLogs    int            `json:"execution_logs"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	Language         string         `json:"language"`
	Outcome          Outcome        `json:"outcome"`
	Logs             []ExecutionLog `json:"logs,omitempty"`
}

const summaryQuestionLimit = 100

// Summary extracts the diagnostics of a finished run.
func (s *State) Summary(includeLogs bool) Summary {
	types := make([]string, 0, len(s.DetectedCategories))
	for _, c := range s.DetectedCategories {
		types = append(types, string(c))
	}

	sum := Summary{
		Question:         truncate(s.Question, summaryQuestionLimit),
		MediaCount:       len(s.MediaFiles),
		AnalysisTypes:    types,
		ValidationPassed: s.ValidationPassed,
		AnswerLength:     len([]rune(s.Answer)),
		ExecutionLogs:    len(s.ExecutionLogs),
		ProcessingTimeMs: s.ProcessingTimeMs,
		Language:         string(s.Language),
		Outcome:          s.Outcome,
	}
	if includeLogs {
		sum.Logs = append([]ExecutionLog(nil), s.ExecutionLogs...)
	}
	return sum
}

// AsMap renders the summary as the metadata object of the HTTP response.
func (s Summary) AsMap() map[string]interface{} {
	m := map[string]interface{}{
		"question":           s.Question,
		"media_count":        s.MediaCount,
		"analysis_types":     s.AnalysisTypes,
		"validation_passed":  s.ValidationPassed,
		"answer_length":      s.AnswerLength,
		"execution_logs":     s.ExecutionLogs,
		"processing_time_ms": s.ProcessingTimeMs,
		"language":           s.Language,
		"outcome":            s.Outcome,
	}
	if len(s.Logs) > 0 {
		m["logs"] = s.Logs
	}
	return m
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
