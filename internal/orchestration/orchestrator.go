package orchestration

import (
	"context"
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/metrics"
)

// Stage takes ownership of s, mutates it and hands it back.
type Stage func(ctx context.Context, s *State) *State

type namedStage struct {
	name string
	run  Stage
}

// Orchestrator runs the fixed QA pipeline. It holds no per-request data and
// can be shared across goroutines.
type Orchestrator struct {
	backend llm.Backend
	cfg     *config.OrchestrationConfig
	logger  logger.Logger
	sleep   sleepFunc
	stages  []namedStage
}

type Option func(*Orchestrator)

// WithSleeper replaces the wait between retries.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New builds an orchestrator around an already constructed backend.
func New(backend llm.Backend, cfg *config.OrchestrationConfig, log logger.Logger, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultOrchestrationConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	o := &Orchestrator{
		backend: backend,
		cfg:     cfg,
		logger:  log.Named("orchestrator"),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.stages = []namedStage{
		{StepValidate, o.Validate},
		{StepClassify, o.Classify},
		{StepUpload, o.Upload},
		{StepEnrich, o.Enrich},
		{StepGenerate, o.Generate},
		{StepCleanup, o.Cleanup},
	}
	return o
}

// Config returns the configuration the orchestrator runs with.
func (o *Orchestrator) Config() *config.OrchestrationConfig {
	return o.cfg
}

// Backend returns the injected LLM backend.
func (o *Orchestrator) Backend() llm.Backend {
	return o.backend
}

// Invoke answers question about files. It never fails: problems are
// reported through the answer text and Summary.Outcome.
func (o *Orchestrator) Invoke(ctx context.Context, question string, files []*models.MediaFile, useRemoteUpload bool) (string, Summary) {
	s := NewState(question, files, useRemoteUpload, o.cfg.Generation)
	s = o.Run(ctx, s)

	metrics.RequestsTotal.WithLabelValues(string(s.Outcome.Status)).Inc()
	log := logger.FromContext(ctx, o.logger)
	log.Info("Orchestration finished",
		logger.String("outcome", string(s.Outcome.Status)),
		logger.Int("media_count", len(s.MediaFiles)),
		logger.String("language", string(s.Language)),
		logger.Float64("processing_time_ms", s.ProcessingTimeMs),
	)

	return s.AnswerMarkdown, s.Summary(o.cfg.Logging.IncludeLogsInSummary)
}

// Run executes every stage in order over s.
func (o *Orchestrator) Run(ctx context.Context, s *State) *State {
	log := logger.FromContext(ctx, o.logger)
	for _, st := range o.stages {
		start := time.Now()
		s = st.run(ctx, s)
		elapsed := time.Since(start)

		s.addElapsed(elapsed)
		metrics.StageDurationSeconds.WithLabelValues(st.name).Observe(elapsed.Seconds())
		if o.cfg.Logging.LogExecutionSteps {
			last := s.ExecutionLogs[len(s.ExecutionLogs)-1]
			log.Debug("Stage finished",
				logger.String("stage", st.name),
				logger.String("status", last.Status),
				logger.Duration("elapsed", elapsed),
			)
		}
	}
	return s
}
