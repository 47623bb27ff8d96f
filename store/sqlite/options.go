package sqlite

import (
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	driverName = "sqlite3"

	// DefaultLockTimeout is how long a connection waits on another writer's
	// lock before the statement fails with a busy error.
	DefaultLockTimeout = 30 * time.Second

	// DefaultJournalMode lets readers proceed while a writer holds the lock.
	DefaultJournalMode = "WAL"
)

type options struct {
	logger      hclog.Logger
	lockTimeout time.Duration
	journalMode string
	driver      string
	retry       RetryPolicy
}

// Option configures a Store.
type Option func(*options)

func getDefaultOptions() options {
	return options{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "drmaa-store",
			Level:  hclog.Warn,
			Output: os.Stderr,
		}),
		lockTimeout: DefaultLockTimeout,
		journalMode: DefaultJournalMode,
		driver:      driverName,
		retry:       DefaultRetryPolicy(),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithLogger sets the logger. Statements are logged at debug level and
// driver errors at error level.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLockTimeout sets the lock-wait timeout of every connection.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithJournalMode sets the SQLite journal mode ("WAL", "DELETE", ...).
// An empty mode leaves the file's current mode alone.
func WithJournalMode(mode string) Option {
	return func(o *options) {
		o.journalMode = mode
	}
}

// WithRetryPolicy sets the retry policy of the completion write.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithDriver opens connections through another registered database/sql
// driver, passing the store path as its DSN.
func WithDriver(name string) Option {
	return func(o *options) {
		if name != "" {
			o.driver = name
		}
	}
}
