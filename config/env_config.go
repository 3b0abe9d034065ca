package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	StorageDriverMinio = "minio"
	StorageDriverS3    = "s3"

	AudioMimePolicyPrefix = "prefix"
	AudioMimePolicyStrict = "strict"
)

type EnvConfig struct {
	Server struct {
		Port string
	}
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
		SSLMode  string
	}
	JWT struct {
		SecretKey string
	}
	CORS struct {
		AllowDomains string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Storage struct {
		Driver string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		UseSSL       bool
	}
	S3 struct {
		Region          string
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
	}
	Media struct {
		MaxImageMB         int64
		MaxAudioMB         int64
		AllowedImageMime   []string
		AllowedAudioMime   []string
		AudioMimePolicy    string
		PreviewURLTTL      int
		DownloadURLTTL     int
		SignedUploadTTL    int
		CommitRequireToken bool
		CommitVerifyObject bool
	}
	ExternalService struct {
		AuthorizationServiceURL string
	}
	Telemetry struct {
		OTLPEndpoint string
		ServiceName  string
	}
	PrivateKey string

	Environment struct {
		Mode string
	}
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	config.Server.Port = getEnv("PORT", "8080")

	// Postgres
	config.Postgres.HOST = getEnv("PGPOOL_HOST", "localhost")
	config.Postgres.Database = getEnv("PGPOOL_DB", "media")
	config.Postgres.Username = getEnv("PGPOOL_USER", "postgres")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = getEnv("PGPOOL_PORT", "5432")
	config.Postgres.SSLMode = getEnv("PGPOOL_SSLMODE", "disable")

	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = getEnv("REDIS_HOST", "localhost")
	config.Redis.RedisPort = getEnv("REDIS_PORT", "6379")

	// RabbitMQ
	config.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	config.RabbitMQ.Port = getEnv("RABBITMQ_PORT", "5672")
	config.RabbitMQ.Username = getEnv("RABBITMQ_USER", "guest")
	config.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	// Object storage
	config.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverMinio))

	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", false)

	config.S3.Region = getEnv("AWS_REGION", "us-east-1")
	config.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	config.S3.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	config.S3.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")

	// Media limits and policies
	config.Media.MaxImageMB = getEnvInt64("MAX_IMAGE_MB", 10)
	config.Media.MaxAudioMB = getEnvInt64("MAX_AUDIO_MB", 50)
	config.Media.AllowedImageMime = splitList(getEnv("ALLOWED_IMAGE_MIME", "image/jpeg,image/png,image/webp"))
	config.Media.AllowedAudioMime = splitList(getEnv("ALLOWED_AUDIO_MIME", "audio/m4a,audio/aac,audio/mp3"))
	config.Media.AudioMimePolicy = strings.ToLower(getEnv("AUDIO_MIME_POLICY", AudioMimePolicyPrefix))
	config.Media.PreviewURLTTL = int(getEnvInt64("PREVIEW_URL_TTL", 600))
	config.Media.DownloadURLTTL = int(getEnvInt64("DOWNLOAD_URL_TTL", 3600))
	config.Media.SignedUploadTTL = int(getEnvInt64("SIGNED_UPLOAD_TTL", 7200))
	config.Media.CommitRequireToken = getEnvBool("COMMIT_REQUIRE_TOKEN", false)
	config.Media.CommitVerifyObject = getEnvBool("COMMIT_VERIFY_OBJECT", false)

	config.PrivateKey = os.Getenv("PRIVATE_KEY")

	config.ExternalService.AuthorizationServiceURL = getEnv("AUTHORIZATION_SERVICE_URL", "http://localhost:8080")

	// OpenTelemetry: strip the scheme, the OTLP http clients expect host:port
	endpoint := os.Getenv("OTLP_ENDPOINT")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	config.Telemetry.OTLPEndpoint = endpoint
	config.Telemetry.ServiceName = getEnv("SERVICE_NAME", "gau-media-gateway")

	config.Environment.Mode = getEnv("DEPLOY_ENV", "development")

	return &config
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
