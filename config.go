package launchbase

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Configuration defaults
const (
	DefaultRegion        = "us-east-1"
	DefaultTablePrefix   = "launchbase_"
	DefaultProbeTimeout  = 5 * time.Second
	DefaultProvisionWait = 60 * time.Second

	IDSourceDynamo = "dynamodb"
	IDSourceRedis  = "redis"

	DefaultFilePermissions = 0644
	DefaultDirPermissions  = 0755
)

// Config is the process configuration read from the environment.
type Config struct {
	AWS          AWSConfig
	Tables       TableConfig
	Redis        RedisConfig
	Log          LogConfig
	ProbeTimeout time.Duration

	// IDSource picks the durable id sequence: "dynamodb" or "redis".
	IDSource string

	// Seed controls whether the ephemeral backend loads the demo dataset.
	Seed bool
	// SeedSnapshot is a blob URI whose latest snapshot replaces the demo dataset.
	SeedSnapshot string
	// SnapshotKey is a hex encoded AES-256 key for snapshot encryption.
	SnapshotKey string

	GCSCredentialsFile string
}

// AWSConfig holds credentials and endpoints for the durable backend.
type AWSConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	DynamoEndpoint  string
	S3Endpoint      string
}

// HasCredentials reports whether any durable credential is configured.
func (c AWSConfig) HasCredentials() bool {
	return c.AccessKeyID != "" || c.SecretAccessKey != ""
}

// TableConfig controls table naming and provisioning.
type TableConfig struct {
	Prefix        string
	ProvisionWait time.Duration
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Environment string
	Level       string
}

// DefaultConfig returns a configuration that resolves to the ephemeral backend.
func DefaultConfig() Config {
	return Config{
		AWS: AWSConfig{Region: DefaultRegion},
		Tables: TableConfig{
			Prefix:        DefaultTablePrefix,
			ProvisionWait: DefaultProvisionWait,
		},
		Redis:        RedisConfig{Addr: DefaultRedisAddr},
		Log:          LogConfig{Environment: "development", Level: "info"},
		ProbeTimeout: DefaultProbeTimeout,
		IDSource:     IDSourceDynamo,
		Seed:         true,
	}
}

// LoadConfig reads optional .env files and then the process environment.
// Missing .env files are not an error.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	cfg := ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromEnv builds a Config from environment variables without validation.
func ConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		AWS: AWSConfig{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:          getEnv("AWS_REGION", d.AWS.Region),
			DynamoEndpoint:  os.Getenv("DYNAMODB_ENDPOINT"),
			S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		},
		Tables: TableConfig{
			Prefix:        getEnv("LAUNCHBASE_TABLE_PREFIX", d.Tables.Prefix),
			ProvisionWait: getEnvAsDuration("LAUNCHBASE_PROVISION_WAIT", d.Tables.ProvisionWait),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", d.Redis.Addr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Environment: getEnv("APP_ENV", d.Log.Environment),
			Level:       getEnv("LOG_LEVEL", d.Log.Level),
		},
		ProbeTimeout:       getEnvAsDuration("LAUNCHBASE_PROBE_TIMEOUT", d.ProbeTimeout),
		IDSource:           strings.ToLower(getEnv("LAUNCHBASE_ID_SOURCE", d.IDSource)),
		Seed:               getEnvAsBool("LAUNCHBASE_SEED", d.Seed),
		SeedSnapshot:       os.Getenv("LAUNCHBASE_SEED_SNAPSHOT"),
		SnapshotKey:        os.Getenv("LAUNCHBASE_SNAPSHOT_KEY"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
	}
}

// Validate checks if the Config is valid
func (c Config) Validate() error {
	if c.AWS.Region == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "AWS_REGION",
			"reason": "region is required",
		})
	}
	if c.ProbeTimeout <= 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "LAUNCHBASE_PROBE_TIMEOUT",
			"value":  c.ProbeTimeout,
			"reason": "must be positive",
		})
	}
	if c.Tables.ProvisionWait <= 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "LAUNCHBASE_PROVISION_WAIT",
			"value":  c.Tables.ProvisionWait,
			"reason": "must be positive",
		})
	}
	if c.IDSource != IDSourceDynamo && c.IDSource != IDSourceRedis {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "LAUNCHBASE_ID_SOURCE",
			"value":  c.IDSource,
			"reason": "must be dynamodb or redis",
		})
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "LOG_LEVEL",
			"value":  c.Log.Level,
			"reason": err.Error(),
		})
	}
	if c.SnapshotKey != "" {
		if _, err := c.snapshotKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) snapshotKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.SnapshotKey)
	if err != nil || len(key) != 32 {
		return nil, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "LAUNCHBASE_SNAPSHOT_KEY",
			"reason": "must be 64 hex characters (AES-256)",
		})
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
