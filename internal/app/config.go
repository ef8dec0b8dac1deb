package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/employee-directory/internal/data/db"
	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime/bus"
	"github.com/yungbote/employee-directory/internal/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
)

// Duration reads "15s"-style strings from YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	d.Duration = dd
	return nil
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_allowed_origins"`
}

type StoreConfig struct {
	Driver      string                `yaml:"driver"`
	SQLitePath  string                `yaml:"sqlite_path"`
	AutoMigrate bool                  `yaml:"auto_migrate"`
	Postgres    db.PostgresConfig     `yaml:"postgres"`
	DynamoDB    employee.DynamoConfig `yaml:"dynamodb"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	LogMode string                   `yaml:"log_mode"`
	HTTP    HTTPConfig               `yaml:"http"`
	Store   StoreConfig              `yaml:"store"`
	Redis   bus.RedisConfig          `yaml:"redis"`
	Metrics MetricsConfig            `yaml:"metrics"`
	Otel    observability.OtelConfig `yaml:"otel"`
}

func defaultConfig() Config {
	return Config{
		LogMode: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration{Duration: 15 * time.Second},
		},
		Store: StoreConfig{
			Driver:      DriverSQLite,
			SQLitePath:  "./SqliteDB.db",
			AutoMigrate: true,
			Postgres: db.PostgresConfig{
				Host: "localhost",
				Port: "5432",
				User: "postgres",
				Name: "directory",
			},
			DynamoDB: employee.DynamoConfig{Table: "employees"},
		},
		Redis:   bus.RedisConfig{Channel: "employees"},
		Metrics: MetricsConfig{Enabled: true},
		Otel: observability.OtelConfig{
			ServiceName: "employee-directory",
			SampleRatio: 0.1,
		},
	}
}

// LoadConfig layers defaults, then the YAML file named by
// DIRECTORY_CONFIG_PATH (or ./config/directory.yaml when present), then
// environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()

	path := strings.TrimSpace(os.Getenv("DIRECTORY_CONFIG_PATH"))
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "directory.yaml")
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		if log != nil {
			log.Info("Loading config file", "path", path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg, log)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos surface at startup.
func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF and leaves the defaults alone.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, log *logger.Logger) {
	cfg.LogMode = utils.GetEnv("LOG_MODE", cfg.LogMode, log)

	cfg.HTTP.Addr = utils.GetEnv("HTTP_ADDR", cfg.HTTP.Addr, log)
	cfg.HTTP.ShutdownTimeout.Duration = utils.GetEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout.Duration, log)
	if origins := splitList(utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)); len(origins) > 0 {
		cfg.HTTP.CORSOrigins = origins
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(utils.GetEnv("STORE_DRIVER", cfg.Store.Driver, log)))
	cfg.Store.SQLitePath = utils.GetEnv("SQLITE_PATH", cfg.Store.SQLitePath, log)
	cfg.Store.AutoMigrate = utils.GetEnvAsBool("STORE_AUTO_MIGRATE", cfg.Store.AutoMigrate, log)
	cfg.Store.Postgres.Host = utils.GetEnv("POSTGRES_HOST", cfg.Store.Postgres.Host, log)
	cfg.Store.Postgres.Port = utils.GetEnv("POSTGRES_PORT", cfg.Store.Postgres.Port, log)
	cfg.Store.Postgres.User = utils.GetEnv("POSTGRES_USER", cfg.Store.Postgres.User, log)
	cfg.Store.Postgres.Password = utils.GetEnv("POSTGRES_PASSWORD", cfg.Store.Postgres.Password, log)
	cfg.Store.Postgres.Name = utils.GetEnv("POSTGRES_NAME", cfg.Store.Postgres.Name, log)
	cfg.Store.DynamoDB.Table = utils.GetEnv("DYNAMODB_TABLE", cfg.Store.DynamoDB.Table, log)
	cfg.Store.DynamoDB.Endpoint = utils.GetEnv("DYNAMODB_ENDPOINT", cfg.Store.DynamoDB.Endpoint, log)
	cfg.Store.DynamoDB.Region = utils.GetEnv("AWS_REGION", cfg.Store.DynamoDB.Region, log)

	cfg.Redis.Addr = utils.GetEnv("REDIS_ADDR", cfg.Redis.Addr, log)
	cfg.Redis.Channel = utils.GetEnv("REDIS_CHANNEL", cfg.Redis.Channel, log)

	cfg.Metrics.Enabled = utils.GetEnvAsBool("METRICS_ENABLED", cfg.Metrics.Enabled, log)

	cfg.Otel.Enabled = utils.GetEnvAsBool("OTEL_ENABLED", cfg.Otel.Enabled, log)
	cfg.Otel.Endpoint = utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint, log)
	cfg.Otel.Insecure = utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure, log)
	cfg.Otel.SampleRatio = utils.GetEnvAsFloat("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio, log)
	if headers := observability.ParseHeaders(utils.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log)); headers != nil {
		cfg.Otel.Headers = headers
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout.Duration <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.Postgres.Host) == "" || strings.TrimSpace(c.Store.Postgres.Name) == "" {
			errs = append(errs, errors.New("store.postgres host and name are required for the postgres driver"))
		}
	case DriverDynamoDB:
		if strings.TrimSpace(c.Store.DynamoDB.Table) == "" {
			errs = append(errs, errors.New("store.dynamodb.table is required for the dynamodb driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel.sample_ratio %v outside [0,1]", c.Otel.SampleRatio))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
