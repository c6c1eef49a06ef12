package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kotas/myqueue/common"
)

type AppConfigs struct {
	Env           string
	LogLevel      string
	QueueName     string        // Name of the queue table used by the benchmark
	LockTimeout   time.Duration // How long a claimed message stays invisible to other consumers
	DBConfig      DBConfig
	MetricsConfig MetricsConfig
	JobsIntervals JobsIntervals
	Benchmark     BenchmarkConfig
}

type DBConfig struct {
	Driver          string
	DSN             string // Empty means the default SQLite file for the current OS
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeoutMs   int64 // SQLite only: how long a writer waits for the database lock
	PingTimeout     time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Addr    string // Address of the ops server exposing /metrics and /healthcheck, empty disables it
}

type JobsIntervals struct {
	QueueDepthMetricsMs int64 // Interval for refreshing the queue depth gauge
}

type BenchmarkConfig struct {
	Messages      int
	Producers     int
	Consumers     int
	PayloadPrefix string
	KeepTable     bool // Skip dropping the queue table once the benchmark is done
}

func NewAppConfig() *AppConfigs {
	return &AppConfigs{
		Env:         common.LocalEnv,
		LogLevel:    "info",
		QueueName:   "test_queue",
		LockTimeout: common.DefaultLockTimeout, // 10s
		DBConfig: DBConfig{
			Driver:          common.SQLiteDriver,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeoutMs:   5 * 1000, // 5 seconds
			PingTimeout:     5 * time.Second,
		},
		MetricsConfig: MetricsConfig{
			Enabled: false,
			Addr:    "",
		},
		JobsIntervals: JobsIntervals{
			QueueDepthMetricsMs: 15 * 1000, // 15 seconds
		},
		Benchmark: BenchmarkConfig{
			Messages:      1000,
			Producers:     1,
			Consumers:     1,
			PayloadPrefix: "message",
		},
	}
}

// LoadFromEnv overrides the defaults with MYQUEUE_* environment variables.
func (ac *AppConfigs) LoadFromEnv() error {
	ac.Env = getEnv("MYQUEUE_ENV", ac.Env)
	ac.LogLevel = getEnv("MYQUEUE_LOG_LEVEL", ac.LogLevel)
	ac.QueueName = getEnv("MYQUEUE_QUEUE_NAME", ac.QueueName)
	ac.DBConfig.Driver = getEnv("MYQUEUE_DB_DRIVER", ac.DBConfig.Driver)
	ac.DBConfig.DSN = getEnv("MYQUEUE_DB_DSN", ac.DBConfig.DSN)
	ac.MetricsConfig.Addr = getEnv("MYQUEUE_METRICS_ADDR", ac.MetricsConfig.Addr)
	ac.Benchmark.PayloadPrefix = getEnv("MYQUEUE_BENCH_PAYLOAD_PREFIX", ac.Benchmark.PayloadPrefix)

	var err error
	if ac.LockTimeout, err = getEnvAsDuration("MYQUEUE_LOCK_TIMEOUT", ac.LockTimeout); err != nil {
		return err
	}
	if ac.DBConfig.MaxOpenConns, err = getEnvAsInt("MYQUEUE_DB_MAX_OPEN_CONNS", ac.DBConfig.MaxOpenConns); err != nil {
		return err
	}
	if ac.MetricsConfig.Enabled, err = getEnvAsBool("MYQUEUE_METRICS_ENABLED", ac.MetricsConfig.Enabled); err != nil {
		return err
	}
	if ac.Benchmark.Messages, err = getEnvAsInt("MYQUEUE_BENCH_MESSAGES", ac.Benchmark.Messages); err != nil {
		return err
	}
	if ac.Benchmark.Producers, err = getEnvAsInt("MYQUEUE_BENCH_PRODUCERS", ac.Benchmark.Producers); err != nil {
		return err
	}
	if ac.Benchmark.Consumers, err = getEnvAsInt("MYQUEUE_BENCH_CONSUMERS", ac.Benchmark.Consumers); err != nil {
		return err
	}
	return nil
}

func (ac *AppConfigs) Validate() error {
	if !common.SupportedEnvs[ac.Env] {
		return fmt.Errorf("unsupported env: %q", ac.Env)
	}
	if !common.SupportedDrivers[ac.DBConfig.Driver] {
		return fmt.Errorf("unsupported db driver: %q", ac.DBConfig.Driver)
	}
	if ac.DBConfig.Driver != common.SQLiteDriver && ac.DBConfig.DSN == "" {
		return fmt.Errorf("dsn is required for the %s driver", ac.DBConfig.Driver)
	}
	if err := common.ValidateQueueName(ac.QueueName); err != nil {
		return fmt.Errorf("queue name %q: %w", ac.QueueName, err)
	}
	if ac.LockTimeout < common.MinLockTimeout {
		return fmt.Errorf("lock timeout must be at least %s, got %s", common.MinLockTimeout, ac.LockTimeout)
	}
	if ac.Benchmark.Messages <= 0 {
		return fmt.Errorf("invalid benchmark messages count: %d", ac.Benchmark.Messages)
	}
	if ac.Benchmark.Producers <= 0 || ac.Benchmark.Consumers <= 0 {
		return fmt.Errorf("producers and consumers must be positive, got %d and %d", ac.Benchmark.Producers, ac.Benchmark.Consumers)
	}
	return nil
}

func getEnv(name, defaultVal string) string {
	if value, exists := os.LookupEnv(name); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(name)
	if !exists || value == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return i, nil
}

func getEnvAsBool(name string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(name)
	if !exists || value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

// duration values are parsed with time.ParseDuration, e.g. "10s" or "500ms"
func getEnvAsDuration(name string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(name)
	if !exists || value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
