package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kotas/myqueue/api"
	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/configs"
	"github.com/kotas/myqueue/db"
	jobsmetrics "github.com/kotas/myqueue/jobs/metrics"
	"github.com/kotas/myqueue/metrics"
	"github.com/kotas/myqueue/services"
	"github.com/kotas/myqueue/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Benchmarks the queue: recreates the queue table, pushes N messages, pops N messages,
// prints the throughput and drops the table.
func main() {
	os.Exit(run())
}

// run returns the process exit code, so every deferred cleanup happens before exiting.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfigs, err := loadConfigs()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configs")
		return 2
	}
	setupLogger(appConfigs)

	if appConfigs.DBConfig.Driver == common.SQLiteDriver && appConfigs.DBConfig.DSN == "" {
		dbPath, err := utils.GetOrCreateDefaultDBPath()
		if err != nil {
			log.Error().Err(err).Msg("failed to get or create default database path")
			return 1
		}
		appConfigs.DBConfig.DSN = dbPath
	}

	if err := db.RunMigrations(&appConfigs.DBConfig); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		return 1
	}

	repo, err := db.NewRepo(&appConfigs.DBConfig)
	if err != nil {
		log.Error().Err(err).Str("driver", appConfigs.DBConfig.Driver).Msg("failed to create queue repository")
		return 1
	}
	defer repo.Close()

	metricsService := metrics.NewMetricsService(appConfigs.MetricsConfig.Enabled, prometheus.DefaultRegisterer)
	queuesService := services.NewQueuesService(repo)

	if appConfigs.MetricsConfig.Enabled {
		queuesDepthMetricsJob := jobsmetrics.NewQueuesDepthMetricsJob(metricsService, queuesService, appConfigs.JobsIntervals.QueueDepthMetricsMs)
		defer queuesDepthMetricsJob.Close()
	}
	if appConfigs.MetricsConfig.Addr != "" {
		opsServer := startOpsServer(appConfigs.MetricsConfig.Addr, services.NewMonitoringService(repo))
		defer opsServer.Shutdown(context.Background())
	}

	if err := runBenchmark(ctx, appConfigs, queuesService, repo, metricsService); err != nil {
		log.Error().Err(err).Msg("benchmark failed")
		return 1
	}
	return 0
}

func runBenchmark(ctx context.Context, appConfigs *configs.AppConfigs, queuesService *services.QueuesService, storage services.Storage, metricsService metrics.Service) error {
	queueName := appConfigs.QueueName

	if !appConfigs.Benchmark.KeepTable {
		defer func() {
			// the run context may be cancelled by now
			if err := queuesService.DropQueue(context.Background(), queueName); err != nil {
				log.Error().Err(err).Str("queue", queueName).Msg("failed to drop queue")
			}
		}()
	}
	if err := queuesService.RecreateQueue(ctx, queueName); err != nil {
		return err
	}

	queue, err := services.NewMessageQueue(storage, queueName, appConfigs.LockTimeout, metricsService)
	if err != nil {
		return err
	}
	benchmarkService, err := services.NewBenchmarkService(queue, appConfigs.Benchmark)
	if err != nil {
		return err
	}

	pushResult, err := benchmarkService.BenchmarkPush(ctx)
	if err != nil {
		return err
	}
	popResult, err := benchmarkService.BenchmarkPop(ctx)
	if err != nil {
		return err
	}

	services.PrintBenchmarkResults(os.Stdout, benchmarkService.RunId(), []services.BenchmarkResult{pushResult, popResult}, appConfigs.Benchmark.Messages)
	return nil
}

// loadConfigs applies defaults, then env variables, then command line flags.
func loadConfigs() (*configs.AppConfigs, error) {
	appConfigs := configs.NewAppConfig()
	if err := appConfigs.LoadFromEnv(); err != nil {
		return nil, err
	}

	flag.StringVar(&appConfigs.Env, "env", appConfigs.Env, "Environment: local or pro")
	flag.StringVar(&appConfigs.LogLevel, "log-level", appConfigs.LogLevel, "Log level")
	flag.StringVar(&appConfigs.DBConfig.Driver, "driver", appConfigs.DBConfig.Driver, "Database driver: sqlite, postgres or mysql")
	flag.StringVar(&appConfigs.DBConfig.DSN, "dsn", appConfigs.DBConfig.DSN, "Database DSN, or the database file path for sqlite")
	flag.StringVar(&appConfigs.QueueName, "queue", appConfigs.QueueName, "Name of the queue table")
	flag.DurationVar(&appConfigs.LockTimeout, "lock-timeout", appConfigs.LockTimeout, "How long a claimed message stays invisible")
	flag.IntVar(&appConfigs.Benchmark.Messages, "messages", appConfigs.Benchmark.Messages, "Number of messages to push and pop")
	flag.IntVar(&appConfigs.Benchmark.Producers, "producers", appConfigs.Benchmark.Producers, "Number of concurrent producers")
	flag.IntVar(&appConfigs.Benchmark.Consumers, "consumers", appConfigs.Benchmark.Consumers, "Number of concurrent consumers")
	flag.BoolVar(&appConfigs.Benchmark.KeepTable, "keep-table", appConfigs.Benchmark.KeepTable, "Keep the queue table after the benchmark")
	flag.BoolVar(&appConfigs.MetricsConfig.Enabled, "metrics", appConfigs.MetricsConfig.Enabled, "Enable Prometheus metrics")
	flag.StringVar(&appConfigs.MetricsConfig.Addr, "metrics-addr", appConfigs.MetricsConfig.Addr, "Address to serve /metrics and /healthcheck on")
	flag.Parse()

	if err := appConfigs.Validate(); err != nil {
		return nil, err
	}
	return appConfigs, nil
}

func setupLogger(appConfigs *configs.AppConfigs) {
	level, err := zerolog.ParseLevel(appConfigs.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("level", appConfigs.LogLevel).Msg("unknown log level, falling back to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if appConfigs.Env == common.LocalEnv {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func startOpsServer(addr string, monitoringService *services.MonitoringService) *http.Server {
	opsRouter := api.NewRouter(monitoringService, prometheus.DefaultGatherer)

	opsServer := &http.Server{
		Addr:              addr,
		Handler:           opsRouter.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := opsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("ops server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("ops server listening")
	return opsServer
}
