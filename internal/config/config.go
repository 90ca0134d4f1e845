package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"

	ClickSinkDirect = "direct"
	ClickSinkKafka  = "kafka"
)

type Config struct {
	App       AppConfig
	Log       LogConfig
	Server    ServerConfig
	Storage   StorageConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	SQLite    SQLiteConfig
	Shortener ShortenerConfig
	Clicks    ClicksConfig
	Kafka     KafkaConfig
	CORS      CORSConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name    string
	Version string
	Env     string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Backend      string
	InitAttempts int
	InitBackoff  time.Duration
}

type PostgresConfig struct {
	URL string
}

// DSN prefers DATABASE_URL and falls back to the individual DB_* variables.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return DefaultPostgresDSN()
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type SQLiteConfig struct {
	Path string
}

type ShortenerConfig struct {
	BaseURL        string
	CodeLength     int
	MaxAttempts    int
	RedirectStatus int // 301 or 302
}

type ClicksConfig struct {
	Sink    string
	Timeout time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	WriteTimeout     time.Duration
	FetchMaxWait     time.Duration
	OperationTimeout time.Duration
	ConsumeBackoff   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	port := GetEnv("PORT", GetEnv("APP_PORT", "4000"))

	cfg := &Config{
		App: AppConfig{
			Name:    GetEnv("APP_NAME", "shorty"),
			Version: GetEnv("APP_VERSION", "1.0"),
			Env:     GetEnv("APP_ENV", "development"),
		},
		Log: LogConfig{
			Level:      GetEnv("LOG_LEVEL", "info"),
			File:       GetEnv("LOG_FILE", ""),
			MaxSizeMB:  GetEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: GetEnvInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: GetEnvInt("LOG_FILE_MAX_AGE_DAYS", 30),
		},
		Server: ServerConfig{
			Port:            port,
			Host:            GetEnv("APP_HOST", "localhost"),
			ShutdownTimeout: GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Backend:      strings.ToLower(GetEnv("STORAGE_BACKEND", BackendPostgres)),
			InitAttempts: GetEnvInt("STORAGE_INIT_ATTEMPTS", 3),
			InitBackoff:  GetEnvDuration("STORAGE_INIT_BACKOFF", 2*time.Second),
		},
		Postgres: PostgresConfig{
			URL: GetEnv("DATABASE_URL", ""),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "shorty"),
		},
		SQLite: SQLiteConfig{
			Path: GetEnv("SQLITE_PATH", "shorty.db"),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("BASE_URL", fmt.Sprintf("http://localhost:%s", port)),
			CodeLength:     GetEnvInt("CODE_LENGTH", 6),
			MaxAttempts:    GetEnvInt("CODE_MAX_ATTEMPTS", 5),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Clicks: ClicksConfig{
			Sink:    strings.ToLower(GetEnv("CLICK_SINK", ClickSinkDirect)),
			Timeout: GetEnvDuration("CLICK_TIMEOUT", 2*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: SplitCSV(GetEnv("KAFKA_BROKERS", "")),
			Topic:   GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
			GroupID: GetEnv("KAFKA_CLICK_GROUP_ID", "click-recorder"),

			WriteTimeout:     GetEnvDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
			FetchMaxWait:     GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
			OperationTimeout: GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
			ConsumeBackoff:   GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
		},
		CORS: CORSConfig{
			AllowedOrigins: SplitCSV(GetEnv("FRONTEND_ORIGIN", "http://localhost:5173")),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Shortener.RedirectStatus != 301 && c.Shortener.RedirectStatus != 302 {
		return fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", c.Shortener.RedirectStatus)
	}
	if c.Shortener.CodeLength < 6 || c.Shortener.CodeLength > 8 {
		return fmt.Errorf("CODE_LENGTH must be between 6 and 8 (got %d)", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxAttempts < 1 {
		return fmt.Errorf("CODE_MAX_ATTEMPTS must be >= 1 (got %d)", c.Shortener.MaxAttempts)
	}
	if c.Storage.InitAttempts < 1 {
		return fmt.Errorf("STORAGE_INIT_ATTEMPTS must be >= 1 (got %d)", c.Storage.InitAttempts)
	}

	switch c.Storage.Backend {
	case BackendPostgres, BackendMongo, BackendSQLite:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of postgres, mongo, sqlite (got %q)", c.Storage.Backend)
	}

	switch c.Clicks.Sink {
	case ClickSinkDirect:
	case ClickSinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must contain at least one broker when CLICK_SINK=kafka")
		}
		if strings.TrimSpace(c.Kafka.Topic) == "" {
			return fmt.Errorf("KAFKA_CLICK_TOPIC must not be empty")
		}
	default:
		return fmt.Errorf("CLICK_SINK must be direct or kafka (got %q)", c.Clicks.Sink)
	}
	if c.Clicks.Timeout <= 0 {
		return fmt.Errorf("CLICK_TIMEOUT must be > 0")
	}

	return nil
}
