/*
Package config loads process configuration from the environment.

VARIABLES (prefix DRMAA_):
  DRMAA_STORE_PATH          store file (default: drmaa2.db)
  DRMAA_LOCK_TIMEOUT        lock-wait timeout per connection (default: 30s)
  DRMAA_JOURNAL_MODE        SQLite journal mode (default: WAL)
  DRMAA_PORT                admin API port (default: 8080)
  DRMAA_LOG_LEVEL           trace, debug, info, warn, error (default: info)
  DRMAA_SETUP_ON_START      create missing tables at startup (default: true)
  DRMAA_RETRY_INITIAL       first completion-retry pause (default: 100ms)
  DRMAA_RETRY_MAX_INTERVAL  longest completion-retry pause (default: 2s)
  DRMAA_RETRY_MAX_ELAPSED   give up after this long, 0 never (default: 10m)
  DRMAA_RETRY_MAX_ATTEMPTS  give up after this many attempts, 0 no cap

Command-line flags in cmd/server override the environment.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"

	"github.com/warp/drmaa-store/store/sqlite"
)

const envPrefix = "DRMAA"

// Config is the process configuration.
type Config struct {
	StorePath    string        `envconfig:"STORE_PATH" default:"drmaa2.db"`
	LockTimeout  time.Duration `envconfig:"LOCK_TIMEOUT" default:"30s"`
	JournalMode  string        `envconfig:"JOURNAL_MODE" default:"WAL"`
	Port         int           `envconfig:"PORT" default:"8080"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	SetupOnStart bool          `envconfig:"SETUP_ON_START" default:"true"`

	RetryInitial     time.Duration `envconfig:"RETRY_INITIAL" default:"100ms"`
	RetryMaxInterval time.Duration `envconfig:"RETRY_MAX_INTERVAL" default:"2s"`
	RetryMaxElapsed  time.Duration `envconfig:"RETRY_MAX_ELAPSED" default:"10m"`
	RetryMaxAttempts uint64        `envconfig:"RETRY_MAX_ATTEMPTS" default:"0"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return nil, err
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return nil, fmt.Errorf("%s_LOG_LEVEL: unknown level %q", envPrefix, c.LogLevel)
	}
	return &c, nil
}

// Logger returns the root logger at the configured level.
func (c *Config) Logger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "drmaa-store",
		Level:  hclog.LevelFromString(c.LogLevel),
		Output: os.Stderr,
	})
}

// RetryPolicy returns the completion-write retry policy.
func (c *Config) RetryPolicy() sqlite.RetryPolicy {
	p := sqlite.DefaultRetryPolicy()
	p.InitialInterval = c.RetryInitial
	p.MaxInterval = c.RetryMaxInterval
	p.MaxElapsedTime = c.RetryMaxElapsed
	p.MaxAttempts = c.RetryMaxAttempts
	return p
}

// StoreOptions returns the store options for this configuration.
func (c *Config) StoreOptions(logger hclog.Logger) []sqlite.Option {
	return []sqlite.Option{
		sqlite.WithLogger(logger),
		sqlite.WithLockTimeout(c.LockTimeout),
		sqlite.WithJournalMode(c.JournalMode),
		sqlite.WithRetryPolicy(c.RetryPolicy()),
	}
}
