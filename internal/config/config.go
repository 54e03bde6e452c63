package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	APIKey  string        `env:"RASGO_API_KEY"`
	APIURL  string        `env:"RASGO_API_URL" envDefault:"https://api.rasgoml.com"`
	AppURL  string        `env:"RASGO_APP_URL" envDefault:"https://app.rasgoml.com"`
	Timeout time.Duration `env:"RASGO_TIMEOUT" envDefault:"30s"`

	// TrackingDB is a sqlite file path or a postgres url. Empty disables
	// local usage tracking.
	TrackingDB string `env:"RASGO_TRACKING_DB"`

	Warehouse WarehouseConfig
	Stage     StageConfig
}

// WarehouseConfig overrides the warehouse credentials normally fetched from
// the user profile. Dialect and DSN together bypass the profile entirely.
type WarehouseConfig struct {
	Dialect        string `env:"RASGO_WAREHOUSE_DIALECT" envDefault:"snowflake"`
	DSN            string `env:"RASGO_WAREHOUSE_DSN"`
	Username       string `env:"RASGO_WAREHOUSE_USER"`
	Password       string `env:"RASGO_WAREHOUSE_PASSWORD"`
	Account        string `env:"RASGO_WAREHOUSE_ACCOUNT"`
	Database       string `env:"RASGO_WAREHOUSE_DATABASE"`
	Schema         string `env:"RASGO_WAREHOUSE_SCHEMA"`
	Warehouse      string `env:"RASGO_WAREHOUSE_NAME"`
	Role           string `env:"RASGO_WAREHOUSE_ROLE"`
	RolePrefix     string `env:"RASGO_WAREHOUSE_ROLE_PREFIX"`
	WriteBatchSize int    `env:"RASGO_WRITE_BATCH_SIZE" envDefault:"1000"`
}

// StageConfig configures the object store used for bulk loads. With no bucket
// configured writes fall back to batched inserts.
type StageConfig struct {
	Bucket            string `env:"RASGO_STAGE_BUCKET"`
	Dir               string `env:"RASGO_STAGE_DIR"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	ChunkRows         int    `env:"RASGO_STAGE_CHUNK_ROWS" envDefault:"100000"`
	UploadWorkers     int    `env:"RASGO_STAGE_WORKERS" envDefault:"4"`
}

// LoadConfig reads the config from the environment, after loading envFile if
// one is given.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading env file '%s': %w", envFile, err)
		}
	} else if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file from working directory")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Stage.S3EndpointURL != "" && (cfg.Stage.S3AccessKeyID == "" || cfg.Stage.S3SecretAccessKey == "") {
		slog.Warn("S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing")
	}

	return &cfg, nil
}
