package orchestration

import (
	"context"
	"fmt"
	"strings"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/metrics"
)

const (
	msgEmptyQuestion = "question is empty"
	msgNoFiles       = "no files attached"
)

// Validate records every violated input rule. It never stops the pipeline.
func (o *Orchestrator) Validate(_ context.Context, s *State) *State {
	if strings.TrimSpace(s.Question) == "" {
		s.addValidationError(msgEmptyQuestion)
	}
	if len(s.MediaFiles) == 0 {
		s.addValidationError(msgNoFiles)
	}

	var total int64
	for _, f := range s.MediaFiles {
		total += f.SizeBytes
	}
	if limit := o.cfg.Validation.MaxTotalSizeBytes; total > limit {
		s.addValidationError(fmt.Sprintf("total file size exceeds %dMB", limit/config.MiB))
	}

	if s.ValidationPassed {
		s.addLog(StepValidate, StatusSuccess, fmt.Sprintf("%d file(s), %d bytes", len(s.MediaFiles), total))
	} else {
		s.addLog(StepValidate, StatusFailed, strings.Join(s.ValidationErrors, ", "))
	}
	return s
}

// Classify assigns media types and analysis categories. Running it twice
// yields the same result.
func (o *Orchestrator) Classify(_ context.Context, s *State) *State {
	if !s.ValidationPassed {
		s.addLog(StepClassify, StatusSkipped, "validation failed")
		return s
	}

	ClassifyMedia(s.MediaFiles)
	s.DetectedCategories = ClassifyQuestion(s.Question)

	names := make([]string, 0, len(s.DetectedCategories))
	for _, c := range s.DetectedCategories {
		names = append(names, string(c))
	}
	s.addLog(StepClassify, StatusSuccess, strings.Join(names, ", "))
	return s
}

// Upload moves files above the size threshold to the backend's file store.
// A file whose upload fails, or comes back without a URI, keeps
// IsUploaded=false and is embedded inline.
func (o *Orchestrator) Upload(ctx context.Context, s *State) *State {
	if !remoteUploadEnabled(s, o.backend) {
		s.addLog(StepUpload, StatusSkipped, "remote upload not requested or unsupported")
		return s
	}

	log := logger.FromContext(ctx, o.logger)
	threshold := o.cfg.FilesAPI.SizeThresholdBytes
	uploaded, candidates := 0, 0

	for _, f := range s.MediaFiles {
		if !needsRemoteUpload(f, threshold) {
			continue
		}
		candidates++

		var remote *llm.RemoteFile
		err := retry(ctx, o.sleep, o.cfg.FilesAPI.MaxRetries, o.cfg.FilesAPI.RetryDelay,
			func(int) error {
				var err error
				remote, err = o.backend.Upload(ctx, f.Filename, f.MIMEType, f.Data)
				if err != nil {
					return err
				}
				if err := f.MarkUploaded(remote.ID, remote.URI); err != nil {
					// keep half-registered uploads for cleanup
					if remote.ID != "" {
						s.UploadedRemoteIDs = append(s.UploadedRemoteIDs, remote.ID)
					}
					return err
				}
				return nil
			},
			func(attempt int, err error) {
				s.addLog(StepUpload, StatusRetry, fmt.Sprintf("%s: attempt %d failed: %v", f.Filename, attempt, err))
			},
		)
		if err != nil {
			metrics.UploadFailuresTotal.Inc()
			log.Warn("Remote upload failed, embedding inline",
				logger.String("filename", f.Filename),
				logger.Error(err),
			)
			s.addLog(StepUpload, StatusWarning, fmt.Sprintf("%s: %v", f.Filename, err))
			continue
		}

		s.UploadedRemoteIDs = append(s.UploadedRemoteIDs, remote.ID)
		uploaded++
	}

	if candidates == 0 {
		s.addLog(StepUpload, StatusSkipped, "no file above threshold")
		return s
	}
	s.addLog(StepUpload, StatusSuccess, fmt.Sprintf("%d of %d file(s) uploaded", uploaded, candidates))
	return s
}

// Enrich detects the question language and composes the system prompt.
// It runs even after a failed validation so the log stays complete.
func (o *Orchestrator) Enrich(_ context.Context, s *State) *State {
	s.Language = DetectLanguage(s.Question)
	s.SystemPrompt = BuildSystemPrompt(s.Language, s.DetectedCategories)
	s.addLog(StepEnrich, StatusSuccess, fmt.Sprintf("language=%s", s.Language))
	return s
}

// Generate calls the backend once per attempt, falling back to the
// configured fallback model when every attempt on the primary one failed.
func (o *Orchestrator) Generate(ctx context.Context, s *State) *State {
	if !s.ValidationPassed {
		reason := strings.Join(s.ValidationErrors, ", ")
		s.Answer = "Error: validation failed. " + reason
		s.AnswerMarkdown = s.Answer
		s.Outcome = Outcome{Status: OutcomeValidationFailed, Reason: reason}
		s.addLog(StepGenerate, StatusFailed, reason)
		return s
	}

	parts := make([]llm.Part, 0, len(s.MediaFiles)+2)
	parts = append(parts, llm.Text(s.SystemPrompt))
	for _, f := range s.MediaFiles {
		parts = append(parts, mediaPart(f))
	}
	parts = append(parts, llm.Text("User question: "+s.Question))

	modelNames := []string{s.ModelName}
	if fb := o.cfg.Generation.FallbackModel; fb != "" && fb != s.ModelName {
		modelNames = append(modelNames, fb)
	}

	var (
		text    string
		lastErr error
	)
	for i, model := range modelNames {
		req := &llm.GenerateRequest{
			Model:           model,
			Temperature:     s.Temperature,
			MaxOutputTokens: o.cfg.Generation.MaxOutputTokens,
			TopP:            o.cfg.Generation.TopP,
			TopK:            o.cfg.Generation.TopK,
			Parts:           parts,
		}
		maxRetries := o.cfg.Generation.MaxRetries
		if i > 0 {
			maxRetries = 0
		}

		lastErr = retry(ctx, o.sleep, maxRetries, o.cfg.Generation.RetryDelay,
			func(int) error {
				var err error
				text, err = o.backend.Generate(ctx, req)
				result := "success"
				if err != nil {
					result = "error"
				}
				metrics.BackendAttemptsTotal.WithLabelValues(model, result).Inc()
				return err
			},
			func(attempt int, err error) {
				s.addLog(StepGenerate, StatusRetry, fmt.Sprintf("model=%s attempt %d failed: %v", model, attempt, err))
			},
		)
		if lastErr == nil {
			s.ModelName = model
			break
		}
		if i+1 < len(modelNames) {
			s.addLog(StepGenerate, StatusRetry, fmt.Sprintf("model=%s exhausted: %v, falling back to %s", model, lastErr, modelNames[i+1]))
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		logger.FromContext(ctx, o.logger).Error("Generation failed", logger.Error(lastErr))
		s.Answer = fmt.Sprintf("Error generating answer: %v", lastErr)
		s.AnswerMarkdown = s.Answer
		s.Outcome = Outcome{Status: OutcomeGenerationFailed, Reason: lastErr.Error()}
		s.addLog(StepGenerate, StatusError, lastErr.Error())
		return s
	}

	s.Answer = text
	s.AnswerMarkdown = ForceMarkdown(text)
	s.Outcome = Outcome{Status: OutcomeSuccess}
	s.addLog(StepGenerate, StatusSuccess, fmt.Sprintf("model=%s, %d chars", s.ModelName, len(text)))
	return s
}

// Cleanup deletes every remote upload of the request, best effort. It
// never touches the answer.
func (o *Orchestrator) Cleanup(ctx context.Context, s *State) *State {
	if len(s.UploadedRemoteIDs) == 0 || !o.backend.SupportsRemoteUpload() {
		s.addLog(StepCleanup, StatusSkipped, "nothing to delete")
		return s
	}
	if !o.cfg.FilesAPI.AutoCleanup {
		s.addLog(StepCleanup, StatusSkipped, "auto cleanup disabled")
		return s
	}

	// the caller may already be gone; deletions still run
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx, o.logger)

	deleted := 0
	for _, id := range s.UploadedRemoteIDs {
		if err := o.backend.Delete(ctx, id); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			log.Warn("Remote delete failed", logger.String("remote_id", id), logger.Error(err))
			s.addLog(StepCleanup, StatusWarning, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		deleted++
	}
	s.addLog(StepCleanup, StatusSuccess, fmt.Sprintf("%d of %d upload(s) deleted", deleted, len(s.UploadedRemoteIDs)))
	return s
}
