package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/fanfiq.yaml"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	CountStrategyExact    = "exact"
	CountStrategyEstimate = "estimate"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseDriver            string        `koanf:"database_driver" default:"sqlite"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	DatabaseURL               string        `koanf:"database_url"`

	RedisAddrs    []string `koanf:"redis_addrs"`
	RedisDB       int      `koanf:"redis_db"`
	RedisPassword string   `koanf:"redis_password"`
	RedisUsername string   `koanf:"redis_username"`

	SearchCacheEnabled  bool          `koanf:"search_cache_enabled"`
	SearchCacheTTL      time.Duration `koanf:"search_cache_ttl" default:"5m"`
	SearchCountStrategy string        `koanf:"search_count_strategy" default:"exact"`

	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"3689"`

	WorkerMaxAttempts  int           `koanf:"worker_max_attempts" default:"5"`
	WorkerPollInterval time.Duration `koanf:"worker_poll_interval" default:"5s"`
	WorkerProcesses    int           `koanf:"worker_processes" default:"2"`

	Hostname string `koanf:"-"`
}

// New loads the config file named by CONFIG_FILE (if it exists) and then
// overlays environment variables on top of it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileEnv)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	err := k.Load(env.Provider("", ".", strings.ToLower), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for unit tests: in-memory SQLite, no
// cache, localhost binding.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.Hostname = "test"
	return cfg
}

func (cfg *Config) validate() error {
	var missing []string

	switch cfg.DatabaseDriver {
	case DriverSQLite:
		if cfg.DatabaseFilePath == "" {
			missing = append(missing, "DatabaseFilePath")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DatabaseURL")
		}
	default:
		return errors.Errorf("unsupported database_driver %q", cfg.DatabaseDriver)
	}

	if cfg.SearchCacheEnabled && len(cfg.RedisAddrs) == 0 {
		missing = append(missing, "RedisAddrs")
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, field := range missing {
			key := configKey(field)
			names = append(names, fmt.Sprintf("%s (%s)", strings.ToUpper(key), key))
		}
		return errors.Errorf("missing required config: %s", strings.Join(names, ", "))
	}

	switch cfg.SearchCountStrategy {
	case CountStrategyExact, CountStrategyEstimate:
	default:
		return errors.Errorf("search_count_strategy must be %q or %q", CountStrategyExact, CountStrategyEstimate)
	}

	return nil
}

// configKey returns the koanf key of the named Config field, falling back to
// its snake-cased name.
func configKey(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if ok {
		if tag := f.Tag.Get("koanf"); tag != "" && tag != "-" {
			return tag
		}
	}
	return toSnakeCase(field)
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
