package config

import (
	"sync"
	"time"
)

var (
	llmOnce   sync.Once
	llmConfig *LLMConfig

	redisOnce   sync.Once
	redisConfig *RedisConfig

	dbOnce   sync.Once
	dbConfig *DatabaseConfig

	serverOnce   sync.Once
	serverConfig *ServerConfig
)

// LLMConfig selects and authenticates the multimodal backend.
type LLMConfig struct {
	Provider     string // "gemini" or "ollama"
	GoogleAPIKey string
	Model        string
	OllamaHost   string
	OllamaModel  string
}

func GetLLMConfig() *LLMConfig {
	llmOnce.Do(func() {
		loadEnv()
		apiKey := getEnv("GOOGLE_API_KEY", "")
		if apiKey == "" {
			apiKey = getEnv("GEMINI_API_KEY", "")
		}
		llmConfig = &LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "gemini"),
			GoogleAPIKey: apiKey,
			Model:        getEnv("GEMINI_MODEL", DefaultModel),
			OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
			OllamaModel:  getEnv("OLLAMA_MODEL", "llava"),
		}
	})
	return llmConfig
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Concurrency int
	StatusTTL   time.Duration
	MaxRetries  int

	// staged media of async jobs
	CleanupInterval  time.Duration
	StagingRetention time.Duration
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadEnv()
		redisConfig = &RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getIntEnv("REDIS_DB", 0),
			Concurrency: getIntEnv("WORKER_CONCURRENCY", 5),
			StatusTTL:   getDurationEnv("TASK_STATUS_TTL", 24*time.Hour),
			MaxRetries:  getIntEnv("TASK_MAX_RETRIES", 3),

			CleanupInterval:  getDurationEnv("STAGING_CLEANUP_INTERVAL", time.Hour),
			StagingRetention: getDurationEnv("STAGING_RETENTION", 24*time.Hour),
		}
	})
	return redisConfig
}

// DatabaseConfig points at the Postgres database holding user metrics,
// daily nutrition and conversation history.
type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	SchemaPath string // optional DDL replacing the built-in schema
	AutoSchema bool
}

func GetDatabaseConfig() *DatabaseConfig {
	dbOnce.Do(func() {
		loadEnv()
		dbConfig = &DatabaseConfig{
			URL:        getEnv("DATABASE_URL", ""),
			MaxConns:   int32(getIntEnv("DATABASE_MAX_CONNS", 10)),
			SchemaPath: getEnv("DATABASE_SCHEMA", ""),
			AutoSchema: getBoolEnv("DATABASE_AUTO_SCHEMA", true),
		}
	})
	return dbConfig
}

type ServerConfig struct {
	Port           string
	StorageType    string // "s3", "minio" or "memory"
	LogLevel       string
	LogEncoding    string
	LogFile        string
	AllowedOrigins []string // empty allows every origin
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			Port:           getEnv("PORT", "8080"),
			StorageType:    getEnv("STORAGE_TYPE", "s3"),
			LogLevel:       getEnv("LOG_LEVEL", ""),
			LogEncoding:    getEnv("LOG_ENCODING", "json"),
			LogFile:        getEnv("LOG_FILE", "logs/app.log"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		}
	})
	return serverConfig
}
