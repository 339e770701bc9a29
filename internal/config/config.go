package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment   string `validate:"oneof=development staging production"`
	Server        ServerConfig
	Database      DatabaseConfig
	Poynt         PoyntConfig
	Webhook       WebhookConfig
	Kafka         KafkaConfig
	Secrets       SecretsConfig
	Dedup         DedupConfig
	Sync          SyncConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds the listener ports and host credentials
type ServerConfig struct {
	HTTPPort int `validate:"min=1,max=65535"`
	GRPCPort int `validate:"min=1,max=65535"`
	// HostToken guards the /orders endpoints; empty disables the check
	HostToken       string
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required"`
	Password string `validate:"required"`
	Name     string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `validate:"min=1"`
	MinConns int32  `validate:"min=0,ltefield=MaxConns"`
}

// PoyntConfig holds the Poynt cloud API settings
type PoyntConfig struct {
	BaseURL        string `validate:"required,url"`
	BusinessID     string `validate:"required"`
	ApplicationID  string `validate:"required"`
	APIVersion     string
	PrivateKeyPath string `validate:"required"`
	Timeout        time.Duration `validate:"gt=0"`
}

// WebhookConfig holds webhook verification settings
type WebhookConfig struct {
	SecretPath string `validate:"required"`
	// PreviousSecretVersion is still accepted while a rotation is in flight
	PreviousSecretVersion string
	MaxBodyBytes          int64 `validate:"min=1024"`
}

// KafkaConfig holds event forwarding settings; no brokers means disabled
type KafkaConfig struct {
	Brokers     []string
	Topic       string `validate:"required_with=Brokers"`
	ClientID    string
	MaxAttempts int `validate:"min=1"`
}

// Enabled reports whether domain events are forwarded to Kafka
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// SecretsConfig selects and configures the secret manager backend
type SecretsConfig struct {
	Backend        string `validate:"oneof=aws vault local"`
	AWSRegion      string `validate:"required_if=Backend aws"`
	AWSProfile     string
	AWSEndpoint    string
	VaultAddress   string `validate:"required_if=Backend vault"`
	VaultAuth      string `validate:"omitempty,oneof=token approle kubernetes"`
	VaultToken     string
	VaultRole      string
	VaultMountPath string
	VaultNamespace string
	LocalPath      string `validate:"required_if=Backend local"`
	CacheTTL       time.Duration
}

// DedupConfig holds the delivery dedup cache settings
type DedupConfig struct {
	// TTL of 0 disables the in-memory cache; the journal still dedups
	TTL time.Duration `validate:"min=0"`
}

// SyncConfig holds the journaled sync failure retry settings
type SyncConfig struct {
	ResyncInterval time.Duration `validate:"gt=0"`
	ResyncBatch    int           `validate:"min=1"`
}

// RateLimitConfig holds the webhook route limiter settings
type RateLimitConfig struct {
	RequestsPerSecond float64 `validate:"gt=0"`
	Burst             int     `validate:"min=1"`
	TrustForwardedFor bool
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel      string `validate:"oneof=debug info warn error"`
	MetricsPort   string `validate:"required,numeric"`
	HealthTimeout time.Duration `validate:"gt=0"`
}

// Load reads an optional .env file, then the environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// existing variables win over the file
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			HTTPPort:        getEnvAsInt("HTTP_PORT", 8080),
			GRPCPort:        getEnvAsInt("GRPC_PORT", 50051),
			HostToken:       getEnv("HOST_API_TOKEN", ""),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "poynt_sync"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Poynt: PoyntConfig{
			BaseURL:        getEnv("POYNT_BASE_URL", "https://services.poynt.net"),
			BusinessID:     getEnv("POYNT_BUSINESS_ID", ""),
			ApplicationID:  getEnv("POYNT_APPLICATION_ID", ""),
			APIVersion:     getEnv("POYNT_API_VERSION", "1.2"),
			PrivateKeyPath: getEnv("POYNT_PRIVATE_KEY_PATH", "poynt/private-key"),
			Timeout:        getEnvAsDuration("POYNT_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			SecretPath:            getEnv("WEBHOOK_SECRET_PATH", "poynt/webhook-secret"),
			PreviousSecretVersion: getEnv("WEBHOOK_PREVIOUS_SECRET_VERSION", ""),
			MaxBodyBytes:          int64(getEnvAsInt("WEBHOOK_MAX_BODY_BYTES", 1<<20)),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:       getEnv("KAFKA_TOPIC", "poynt-sync.events"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", "poynt-sync-service"),
			MaxAttempts: getEnvAsInt("KAFKA_MAX_ATTEMPTS", 3),
		},
		Secrets: SecretsConfig{
			Backend:        getEnv("SECRET_MANAGER", "local"),
			AWSRegion:      getEnv("AWS_REGION", ""),
			AWSProfile:     getEnv("AWS_PROFILE", ""),
			AWSEndpoint:    getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:   getEnv("VAULT_ADDR", ""),
			VaultAuth:      getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:     getEnv("VAULT_TOKEN", ""),
			VaultRole:      getEnv("VAULT_K8S_ROLE", ""),
			VaultMountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultNamespace: getEnv("VAULT_NAMESPACE", ""),
			LocalPath:      getEnv("LOCAL_SECRETS_PATH", "./secrets"),
			CacheTTL:       getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
		},
		Dedup: DedupConfig{
			TTL: getEnvAsDuration("DEDUP_TTL", 24*time.Hour),
		},
		Sync: SyncConfig{
			ResyncInterval: getEnvAsDuration("RESYNC_INTERVAL", 5*time.Minute),
			ResyncBatch:    getEnvAsInt("RESYNC_BATCH", 50),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("WEBHOOK_RATE_LIMIT_RPS", 50),
			Burst:             getEnvAsInt("WEBHOOK_RATE_LIMIT_BURST", 100),
			TrustForwardedFor: getEnvAsBool("TRUST_FORWARDED_FOR", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			MetricsPort:   getEnv("METRICS_PORT", "9090"),
			HealthTimeout: getEnvAsDuration("HEALTH_CHECK_TIMEOUT", 2*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every failing field
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// URL returns the pgx connection URL
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
