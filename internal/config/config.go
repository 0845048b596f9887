package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Audio    AudioConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadMB    int
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
	MessageTable   string
	PromptTable    string
	FeedbackTable  string
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PromptCacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string // empty disables bearer auth
}

type StorageConfig struct {
	SupabaseURL  string
	SupabaseKey  string
	Bucket       string
	PublicBucket string
	Prefix       string // remote folder prepended to every object path
	PublicAudio  bool
}

type QueueConfig struct {
	Name     string
	MaxRetry int
	Timeout  time.Duration
}

type AudioConfig struct {
	UnprocessedDir string
	ProcessedDir   string
	Format         string // "mp3" or "wav"
	FFmpegBin      string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string // json, console
}

type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_MB", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	promptTTL, err := getEnvDuration("PROMPT_CACHE_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid PROMPT_CACHE_TTL: %w", err)
	}

	maxRetry, err := getEnvInt("QUEUE_MAX_RETRY", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_MAX_RETRY: %w", err)
	}

	queueTimeout, err := getEnvDuration("QUEUE_TASK_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_TASK_TIMEOUT: %w", err)
	}

	publicAudio, err := getEnvBool("STORAGE_PUBLIC_AUDIO", true)
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_PUBLIC_AUDIO: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			MaxUploadMB:    maxUpload,
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
			CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
			MessageTable:   getEnv("DB_MESSAGE_TABLE", "chat_messages"),
			PromptTable:    getEnv("DB_PROMPT_TABLE", "agent_prompts"),
			FeedbackTable:  getEnv("DB_FEEDBACK_TABLE", "ai_feedback"),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             redisDB,
			PromptCacheTTL: promptTTL,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			SupabaseURL:  getEnv("SUPABASE_URL", ""),
			SupabaseKey:  getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:       getEnv("STORAGE_BUCKET", "media"),
			PublicBucket: getEnv("STORAGE_PUBLIC_BUCKET", "media-public"),
			Prefix:       getEnv("STORAGE_PREFIX", "audio/"),
			PublicAudio:  publicAudio,
		},
		Queue: QueueConfig{
			Name:     getEnv("QUEUE_NAME", "audio_processing"),
			MaxRetry: maxRetry,
			Timeout:  queueTimeout,
		},
		Audio: AudioConfig{
			UnprocessedDir: getEnv("UNPROCESSED_MEDIA_DIR", "./unprocessed_media"),
			ProcessedDir:   getEnv("PROCESSED_MEDIA_DIR", "./processed_media"),
			Format:         strings.ToLower(getEnv("AUDIO_OUTPUT_FORMAT", "mp3")),
			FFmpegBin:      getEnv("FFMPEG_BIN", "ffmpeg"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_AUDIO_TOPIC", "message.audio_ready"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":9090"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidateWorker checks the settings the audio worker cannot run without.
func (c *Config) ValidateWorker() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Storage.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.Storage.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return c.validateAudio()
}

func (c *Config) validateAudio() error {
	switch c.Audio.Format {
	case "mp3", "wav":
		return nil
	default:
		return fmt.Errorf("unsupported AUDIO_OUTPUT_FORMAT %q (want mp3 or wav)", c.Audio.Format)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
