package config

import "sync"

var (
	s3Once   sync.Once
	s3Config *S3Config

	minioOnce   sync.Once
	minioConfig *MinioConfig
)

// S3Config locates the bucket that stages media of async QA jobs. Endpoint
// switches to path-style addressing for S3-compatible services.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func GetS3Config() *S3Config {
	s3Once.Do(func() {
		loadEnv()
		s3Config = &S3Config{
			Bucket:    getEnv("S3_STAGING_BUCKET", "nutriapp-media"),
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		}
	})
	return s3Config
}

// MinioConfig is the self-hosted alternative to S3Config.
type MinioConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	Region       string
	Bucket       string
	CreateBucket bool
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadEnv()
		minioConfig = &MinioConfig{
			Endpoint:     getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:    getEnv("MINIO_SECRET_KEY", ""),
			UseSSL:       getBoolEnv("MINIO_USE_SSL", false),
			Region:       getEnv("MINIO_REGION", ""),
			Bucket:       getEnv("MINIO_STAGING_BUCKET", "nutriapp-media"),
			CreateBucket: getBoolEnv("MINIO_CREATE_BUCKET", true),
		}
	})
	return minioConfig
}
