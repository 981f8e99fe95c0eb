package configuration

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverMinIO = "minio"
	StorageDriverS3    = "s3"
)

type Config struct {
	Database    DatabaseConfig
	Storage     StorageConfig
	Upload      UploadConfig
	Server      ServerConfig
	Tracing     TracingConfig
	NATSURL     string
	KeycloakUrl string
	CLAMAVURL   string

	// KeycloakClient, when set, must match the token's azp claim.
	KeycloakClient string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// ShardURLs overrides the single connection when set.
	ShardURLs []string
}

type StorageConfig struct {
	Driver     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	Region     string
	UseSSL     bool
	PublicBase string
	PublicRead bool
	PresignTTL time.Duration
}

type UploadConfig struct {
	TransferTimeout time.Duration
	Concurrency     int
	MaxFileSize     int64
}

type ServerConfig struct {
	Port string
	Mode string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// Load reads the configuration from the environment, after loading a .env
// file if one is present in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "5432"),
			User:      getEnv("DB_USER", "assetuser"),
			Password:  getEnv("DB_PASSWORD", "assetpassword"),
			DBName:    getEnv("DB_NAME", "ugc_assets"),
			SSLMode:   getEnv("DB_SSL_MODE", "disable"),
			ShardURLs: getEnvList("DB_SHARD_URLS"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverMinIO)),
			Endpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName: getEnv("STORAGE_BUCKET", "user-templates"),
			Region:     getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:     getEnvBool("STORAGE_USE_SSL", false),
			PublicBase: strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
			PublicRead: getEnvBool("STORAGE_PUBLIC_READ", true),
			PresignTTL: getEnvDuration("STORAGE_PRESIGN_TTL", 2*time.Hour),
		},
		Upload: UploadConfig{
			TransferTimeout: getEnvDuration("UPLOAD_TRANSFER_TIMEOUT", 10*time.Minute),
			Concurrency:     getEnvInt("UPLOAD_CONCURRENCY", 1),
			MaxFileSize:     int64(getEnvInt("UPLOAD_MAX_FILE_MB", 200)) << 20,
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("APP_MODE", "debug"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("DD_TRACE_ENABLED", false),
			ServiceName: getEnv("DD_SERVICE", "asset-service"),
		},
		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		CLAMAVURL:   getEnv("CLAMAV_URL", ""),
		KeycloakUrl: getEnv("KEYCLOAK_URL", ""),

		KeycloakClient: getEnv("KEYCLOAK_CLIENT_ID", ""),
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageDriverMinIO, StorageDriverS3:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.BucketName == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}
	if c.Upload.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("upload concurrency must be at least 1, got %d", c.Upload.Concurrency))
	}
	if c.Upload.TransferTimeout <= 0 {
		errs = append(errs, errors.New("upload transfer timeout must be positive"))
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("upload max file size must be positive"))
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// Connections returns one DSN per shard.
func (c *DatabaseConfig) Connections() []string {
	if len(c.ShardURLs) > 0 {
		return c.ShardURLs
	}
	return []string{c.ConnectionString()}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
