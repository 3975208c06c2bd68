package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/qa"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/metrics"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/worker"
)

func main() {
	serverCfg := config.GetServerConfig()
	orchCfg := config.GetOrchestrationConfig()
	redisCfg := config.GetRedisConfig()

	log, err := logger.NewLogger(
		logger.WithLevel(orchCfg.Logging.Level),
		logger.WithEncoding(serverCfg.LogEncoding),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
		logger.WithInitialFields(map[string]interface{}{"service": "worker", "environment": orchCfg.Environment}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := agent.NewBackend(ctx, config.GetLLMConfig(), orchCfg, log)
	if err != nil {
		log.Error("Failed to create LLM backend", logger.Error(err))
		os.Exit(1)
	}
	defer backend.Close()

	q, err := queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		MaxRetries:    redisCfg.MaxRetries,
		StatusTTL:     redisCfg.StatusTTL,
	})
	if err != nil {
		log.Error("Failed to create queue", logger.Error(err))
		os.Exit(1)
	}
	defer q.Close()

	staging, err := storage.NewStorage(ctx, storage.StorageType(serverCfg.StorageType), log)
	if err != nil {
		log.Error("Failed to create staging storage", logger.Error(err))
		os.Exit(1)
	}

	qaService := qa.NewService(orchestration.New(backend, orchCfg, log), q, staging, log, &qa.ServiceConfig{
		MaxConcurrent:   qa.DefaultServiceConfig().MaxConcurrent,
		RetentionPeriod: redisCfg.StagingRetention,
	})

	workerCfg := &worker.Config{
		RedisAddr:       redisCfg.Addr,
		RedisPassword:   redisCfg.Password,
		RedisDB:         redisCfg.DB,
		Concurrency:     redisCfg.Concurrency,
		CleanupInterval: redisCfg.CleanupInterval,
		RetentionPeriod: redisCfg.StagingRetention,
	}
	qaWorker, err := worker.NewQAWorker(workerCfg, qaService, qaService, log)
	if err != nil {
		log.Error("Failed to create QA worker", logger.Error(err))
		os.Exit(1)
	}

	if err := qaWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Worker started",
		logger.String("redis", redisCfg.Addr),
		logger.Int("concurrency", workerCfg.Concurrency),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	_ = qaWorker.Stop()
	log.Info("Worker stopped")
}
