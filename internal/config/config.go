package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTTTL    time.Duration
	Timezone  string

	Datastore DatastoreConfig
	DB        DatabaseConfig
	Redis     RedisConfig
	Mail      MailConfig
	Kafka     KafkaConfig
	S3        S3Config
	Backup    BackupConfig
	Bootstrap BootstrapConfig
	Login     LoginConfig
	CORS      CORSConfig
}

// DatastoreConfig selects the document store backend.
type DatastoreConfig struct {
	Driver string // "file" or "postgres"
	Path   string // JSON document path for the file driver
}

// DatabaseConfig contains PostgreSQL connection parameters (postgres driver only).
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters. An empty Host disables
// idempotent submissions.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MailConfig configures the order/request notification emails.
type MailConfig struct {
	APIKey    string
	BaseURL   string
	From      string
	To        []string
	QueueSize int
	Timeout   time.Duration
}

// Enabled reports whether enough is configured to send mail.
func (m MailConfig) Enabled() bool {
	return m.APIKey != "" && m.From != "" && len(m.To) > 0
}

// KafkaConfig configures the optional event topic.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	BufferSize int
}

// S3Config contains the datastore backup destination.
type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

// BackupConfig contains the cron schedule for datastore snapshots.
type BackupConfig struct {
	Schedule string
}

// BootstrapConfig describes the admin account ensured at startup.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

// LoginConfig bounds failed login attempts per client IP.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// CORSConfig lists allowed browser origins. Empty allows any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.Timezone = getEnv("TIMEZONE", "Asia/Taipei")

	// Datastore
	defaultPath := "db.json"
	if cfg.Env == "production" {
		defaultPath = "/data/db.json"
	}
	cfg.Datastore = DatastoreConfig{
		Driver: strings.ToLower(getEnv("DATASTORE_DRIVER", "file")),
		Path:   getEnv("DATASTORE_PATH", defaultPath),
	}

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Mail
	cfg.Mail = MailConfig{
		APIKey:    getEnv("MAIL_API_KEY", ""),
		BaseURL:   getEnv("MAIL_BASE_URL", "https://api.resend.com"),
		From:      getEnv("MAIL_FROM", ""),
		To:        getEnvList("MAIL_TO"),
		QueueSize: getEnvInt("MAIL_QUEUE_SIZE", 100),
	}

	// Kafka
	cfg.Kafka = KafkaConfig{
		Brokers:    getEnvList("KAFKA_BROKERS"),
		Topic:      getEnv("KAFKA_TOPIC", "groupbuy.events"),
		BufferSize: getEnvInt("KAFKA_BUFFER_SIZE", 256),
	}

	// S3 backups
	cfg.S3 = S3Config{
		Region: getEnv("S3_REGION", "ap-northeast-1"),
		Bucket: getEnv("S3_BUCKET", ""),
		Prefix: getEnv("S3_PREFIX", "backups/"),
	}
	cfg.Backup = BackupConfig{
		Schedule: getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
	}

	cfg.Bootstrap = BootstrapConfig{
		AdminUsername: getEnv("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.Mail.Timeout, err = parseDurationEnv("MAIL_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid MAIL_TIMEOUT: %w", err)
	}
	cfg.Login.MaxAttempts = getEnvInt("LOGIN_MAX_ATTEMPTS", 5)
	if cfg.Login.Window, err = parseDurationEnv("LOGIN_WINDOW", "1m"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_WINDOW: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for authentication")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	switch cfg.Datastore.Driver {
	case "file":
		if cfg.Datastore.Path == "" {
			return errors.New("DATASTORE_PATH must be set for the file datastore")
		}
	case "postgres":
		// DB parameters are only required for the postgres driver.
		if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
			return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	default:
		return fmt.Errorf("DATASTORE_DRIVER must be 'file' or 'postgres', got %q", cfg.Datastore.Driver)
	}
	if cfg.Login.MaxAttempts < 1 {
		return errors.New("LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
