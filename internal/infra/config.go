package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	StoragePath string

	WebhookBaseURL    string
	WebhookHealthPath string
	WebhookUploadPath string
	RembgBaseURL      string
	ComfyUIBaseURL    string
	ComfyCheckpoint   string

	GenerationTimeout time.Duration
	PollInterval      time.Duration

	NormalizeMaxDimension int
	NormalizeMinDimension int
	NormalizeQuality      int

	PromptTemplatesFile string

	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		StoragePath:           getEnv("STORAGE_PATH", "./storage"),
		WebhookBaseURL:        getEnv("WEBHOOK_BASE_URL", "http://localhost:5678"),
		WebhookHealthPath:     getEnv("WEBHOOK_HEALTH_PATH", "/healthz"),
		WebhookUploadPath:     getEnv("WEBHOOK_UPLOAD_PATH", "/webhook/upload"),
		RembgBaseURL:          getEnv("REMBG_BASE_URL", "http://localhost:7000"),
		ComfyUIBaseURL:        getEnv("COMFYUI_BASE_URL", "http://localhost:8188"),
		ComfyCheckpoint:       getEnv("COMFYUI_CHECKPOINT", "v1-5-pruned-emaonly.safetensors"),
		GenerationTimeout:     time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)),
		PollInterval:          time.Second * time.Duration(getEnvInt("GENERATION_POLL_SECONDS", 2)),
		NormalizeMaxDimension: getEnvInt("NORMALIZE_MAX_DIMENSION", 2048),
		NormalizeMinDimension: getEnvInt("NORMALIZE_MIN_DIMENSION", 512),
		NormalizeQuality:      getEnvInt("NORMALIZE_QUALITY", 90),
		PromptTemplatesFile:   os.Getenv("PROMPT_TEMPLATES_FILE"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		KafkaBrokers:          getEnvList("KAFKA_BROKERS"),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "studio.pipeline"),
		MinIOEndpoint:         os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:           getEnv("MINIO_BUCKET", "studio-artifacts"),
		MinIOUseSSL:           getEnv("MINIO_USE_SSL", "false") == "true",
		CORSAllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if strings.TrimSpace(cfg.StoragePath) == "" {
		return nil, fmt.Errorf("STORAGE_PATH is required")
	}
	if cfg.NormalizeMinDimension <= 0 || cfg.NormalizeMaxDimension < cfg.NormalizeMinDimension {
		return nil, fmt.Errorf("NORMALIZE_MAX_DIMENSION (%d) must be >= NORMALIZE_MIN_DIMENSION (%d) > 0",
			cfg.NormalizeMaxDimension, cfg.NormalizeMinDimension)
	}
	if cfg.NormalizeQuality < 1 || cfg.NormalizeQuality > 100 {
		return nil, fmt.Errorf("NORMALIZE_QUALITY must be between 1 and 100")
	}
	if cfg.GenerationTimeout <= 0 || cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("generation timeout and poll interval must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
