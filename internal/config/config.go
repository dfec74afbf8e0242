package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAllowedHosts = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000," +
	"http://127.0.0.1:5173,https://baz-car-server.online"

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	UploadDir            string
	TempUploadDir        string
	ThumbnailDir         string
	MaxFileSize          int64
	MaxUploadRequestSize int64
	AllowedMIMETypes     []string

	LogLevel  string
	LogFormat string

	RedisURL    string
	CacheTTL    time.Duration
	CachePrefix string

	RabbitMQURL   string
	RabbitMQQueue string

	WhatsAppNumber string
}

// Load reads the environment (and an optional .env file) into a validated
// Config. The returned value is never mutated afterwards.
func Load() (Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Read is Load without validation, for tools that only need a subset of
// the settings.
func Read() Config {
	_ = godotenv.Load()

	return Config{
		ServerPort:              getEnv("PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             getEnv("DATABASE_URL", "sqlite:///./baz_car.db"),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET_KEY")),
		JWTAccessTTL:            time.Duration(getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		JWTRefreshTTL:           time.Duration(getInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,
		CORSOrigins:             splitCSV(getEnv("ALLOWED_HOSTS", defaultAllowedHosts)),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		UploadDir:               getEnv("UPLOAD_DIR", "uploads"),
		TempUploadDir:           getEnv("TEMP_UPLOAD_DIR", filepath.Join("uploads", "temp")),
		ThumbnailDir:            getEnv("THUMBNAIL_DIR", filepath.Join("state", "thumbnails")),
		MaxFileSize:             getInt64("MAX_FILE_SIZE", 50*1024*1024),
		MaxUploadRequestSize:    getInt64("MAX_UPLOAD_REQUEST_SIZE", 200*1024*1024),
		AllowedMIMETypes:        splitCSV(strings.TrimSpace(os.Getenv("ALLOWED_MIME_TYPES"))),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		RedisURL:                strings.TrimSpace(os.Getenv("REDIS_URL")),
		CacheTTL:                getDuration("CACHE_TTL", 60*time.Second),
		CachePrefix:             getEnv("CACHE_PREFIX", "baz-car"),
		RabbitMQURL:             strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		RabbitMQQueue:           getEnv("RABBITMQ_QUEUE", "baz-car.events"),
		WhatsAppNumber:          getEnv("WHATSAPP_NUMBER", "79894413888"),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if _, err := c.DatabasePath(); err != nil {
		return err
	}

	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}

	if !isWithin(c.UploadDir, c.TempUploadDir) {
		return fmt.Errorf("TEMP_UPLOAD_DIR must be inside UPLOAD_DIR")
	}

	if strings.TrimSpace(c.ThumbnailDir) == "" {
		return fmt.Errorf("THUMBNAIL_DIR cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}

	if c.MaxUploadRequestSize < c.MaxFileSize {
		return fmt.Errorf("MAX_UPLOAD_REQUEST_SIZE must be at least MAX_FILE_SIZE")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

// DatabasePath extracts the SQLite file path from DATABASE_URL. Both the
// sqlite:/// URL form and a bare path are accepted.
func (c Config) DatabasePath() (string, error) {
	raw := strings.TrimSpace(c.DatabaseURL)
	if raw == "" {
		return "", fmt.Errorf("DATABASE_URL is required")
	}

	if !strings.Contains(raw, "://") {
		return raw, nil
	}

	path, ok := strings.CutPrefix(raw, "sqlite:///")
	if !ok {
		return "", fmt.Errorf("DATABASE_URL must use the sqlite:/// scheme")
	}
	if path == "" {
		return "", fmt.Errorf("DATABASE_URL has an empty path")
	}

	return path, nil
}

// TempRelDir is the temp directory relative to UploadDir, slash separated.
func (c Config) TempRelDir() string {
	rel, err := filepath.Rel(filepath.Clean(c.UploadDir), filepath.Clean(c.TempUploadDir))
	if err != nil {
		return "temp"
	}
	return filepath.ToSlash(rel)
}

func isWithin(root string, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
