package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/UNI-Final-Project/api-multimodal-ai/api/handlers"
	"github.com/UNI-Final-Project/api-multimodal-ai/api/routes"
	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/chat"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/meal"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/service/qa"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store/postgres"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/utils/validator"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/metrics"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/queue"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/storage"
)

func main() {
	serverCfg := config.GetServerConfig()
	orchCfg := config.GetOrchestrationConfig()

	level := serverCfg.LogLevel
	if level == "" {
		level = orchCfg.Logging.Level
	}
	outputs := []string{"stdout"}
	if serverCfg.LogFile != "" {
		outputs = append(outputs, serverCfg.LogFile)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(level),
		logger.WithEncoding(serverCfg.LogEncoding),
		logger.WithOutputPaths(outputs),
		logger.WithInitialFields(map[string]interface{}{"service": "api", "environment": orchCfg.Environment}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.Register()
	ctx := context.Background()

	// init llm backend and pipeline
	backend, err := agent.NewBackend(ctx, config.GetLLMConfig(), orchCfg, log)
	if err != nil {
		log.Fatal("Failed to create LLM backend", logger.Error(err))
	}
	defer backend.Close()
	orch := orchestration.New(backend, orchCfg, log)

	// async jobs are optional; without Redis or storage only /qa works
	var (
		q       queue.Queue
		staging storage.Storage
	)
	redisCfg := config.GetRedisConfig()
	aq, err := queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		MaxRetries:    redisCfg.MaxRetries,
		StatusTTL:     redisCfg.StatusTTL,
	})
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = aq.Ping(pingCtx)
		cancel()
	}
	if err != nil {
		log.Warn("Redis unavailable, async QA disabled", logger.String("addr", redisCfg.Addr), logger.Error(err))
	} else {
		defer aq.Close()
		staging, err = storage.NewStorage(ctx, storage.StorageType(serverCfg.StorageType), log)
		if err != nil {
			log.Warn("Staging storage unavailable, async QA disabled", logger.Error(err))
		} else {
			q = aq
		}
	}
	qaService := qa.NewService(orch, q, staging, log, &qa.ServiceConfig{
		MaxConcurrent:   qa.DefaultServiceConfig().MaxConcurrent,
		RetentionPeriod: redisCfg.StagingRetention,
	})

	// init nutrition store
	st := openStore(ctx, log)
	defer st.Close()

	decoder := validator.NewMediaDecoder(log, &validator.DecoderConfig{
		MaxFileSize: orchCfg.Validation.MaxFileSizeBytes,
		MaxFiles:    orchCfg.Validation.MaxFiles,
	})

	// init handlers
	h := handlers.NewHandlers(handlers.Deps{
		LLM:     config.GetLLMConfig(),
		Model:   orchCfg.Generation.Model,
		QA:      qaService,
		Meal:    meal.NewAnalyzer(backend, orchCfg.Generation, log),
		Store:   st,
		Chat:    chat.NewChatbot(st, backend, orchCfg.Generation, log),
		Decoder: decoder,
		Logger:  log,
	})

	if orchCfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.SetupRoutes(r, h, log, serverCfg.AllowedOrigins...)

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("port", serverCfg.Port), logger.Bool("async", q != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-process store otherwise.
func openStore(ctx context.Context, log logger.Logger) store.Store {
	dbCfg := config.GetDatabaseConfig()
	if dbCfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory nutrition store")
		return store.NewMemory()
	}

	pg, err := postgres.New(ctx, dbCfg.URL, dbCfg.MaxConns)
	if err != nil {
		log.Fatal("Failed to connect to database", logger.Error(err))
	}
	if err := pg.Ping(ctx); err != nil {
		log.Fatal("Database is unreachable", logger.Error(err))
	}
	if dbCfg.AutoSchema {
		if err := pg.CreateSchema(ctx, dbCfg.SchemaPath); err != nil {
			log.Fatal("Failed to create database schema", logger.Error(err))
		}
	}
	log.Info("Connected to Postgres", logger.Int("max_conns", int(dbCfg.MaxConns)))
	return pg
}
