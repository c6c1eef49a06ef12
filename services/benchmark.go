package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/configs"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// BenchmarkService drives bulk pushes followed by bulk pops through the public MessageQueue API.
type BenchmarkService struct {
	queue  *MessageQueue
	config configs.BenchmarkConfig
	runId  string
}

type BenchmarkResult struct {
	Name      string
	Attempts  int
	Succeeded int64
	Empty     int64
	Failed    int64
	Elapsed   time.Duration
}

// QPS is the number of attempted operations per second.
func (br BenchmarkResult) QPS() float64 {
	if br.Elapsed <= 0 {
		return 0
	}
	return float64(br.Attempts) / br.Elapsed.Seconds()
}

// SPQ is the average number of seconds a single operation took.
func (br BenchmarkResult) SPQ() float64 {
	if br.Attempts == 0 {
		return 0
	}
	return br.Elapsed.Seconds() / float64(br.Attempts)
}

func NewBenchmarkService(queue *MessageQueue, config configs.BenchmarkConfig) (*BenchmarkService, error) {
	runId, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate benchmark run id: %w", err)
	}

	return &BenchmarkService{
		queue:  queue,
		config: config,
		runId:  runId.String(),
	}, nil
}

func (bs *BenchmarkService) RunId() string {
	return bs.runId
}

// BenchmarkPush pushes config.Messages payloads "<prefix><i>" split across config.Producers goroutines.
// Failed pushes are counted, not retried. An error is returned only if ctx is done.
func (bs *BenchmarkService) BenchmarkPush(ctx context.Context) (BenchmarkResult, error) {
	var succeeded, failed atomic.Int64

	elapsed, err := bs.run(ctx, bs.config.Producers, func(ctx context.Context, i int) {
		payload := fmt.Sprintf("%s%d", bs.config.PayloadPrefix, i)
		if err := bs.queue.Push(ctx, []byte(payload)); err != nil {
			failed.Add(1)
			return
		}
		succeeded.Add(1)
	})

	result := BenchmarkResult{
		Name:      "push",
		Attempts:  bs.config.Messages,
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Elapsed:   elapsed,
	}
	bs.logResult(result)
	return result, err
}

// BenchmarkPop makes config.Messages pop attempts split across config.Consumers goroutines.
func (bs *BenchmarkService) BenchmarkPop(ctx context.Context) (BenchmarkResult, error) {
	var succeeded, empty, failed atomic.Int64

	elapsed, err := bs.run(ctx, bs.config.Consumers, func(ctx context.Context, i int) {
		_, err := bs.queue.Pop(ctx)
		switch {
		case err == nil:
			succeeded.Add(1)
		case errors.Is(err, common.ErrEmptyQueue):
			empty.Add(1)
		default:
			failed.Add(1)
		}
	})

	result := BenchmarkResult{
		Name:      "pop",
		Attempts:  bs.config.Messages,
		Succeeded: succeeded.Load(),
		Empty:     empty.Load(),
		Failed:    failed.Load(),
		Elapsed:   elapsed,
	}
	bs.logResult(result)
	return result, err
}

// run calls op for every message index, worker k taking the indexes i where i % workers == k.
func (bs *BenchmarkService) run(ctx context.Context, workers int, op func(ctx context.Context, i int)) (time.Duration, error) {
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < workers; k++ {
		k := k
		g.Go(func() error {
			for i := k; i < bs.config.Messages; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				op(gctx, i)
			}
			return nil
		})
	}
	err := g.Wait()
	return time.Since(start), err
}

func (bs *BenchmarkService) logResult(result BenchmarkResult) {
	log.Info().
		Str("run_id", bs.runId).
		Str("queue", bs.queue.Name()).
		Str("operation", result.Name).
		Int("attempts", result.Attempts).
		Int64("succeeded", result.Succeeded).
		Int64("empty", result.Empty).
		Int64("failed", result.Failed).
		Dur("elapsed", result.Elapsed).
		Msg("benchmark finished")
}

// PrintBenchmarkResults writes the results in a human readable form.
func PrintBenchmarkResults(w io.Writer, runId string, results []BenchmarkResult, num int) {
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Benchmark result by %d messages\n", num)
	fmt.Fprintf(w, "Run: %s\n", runId)
	for _, result := range results {
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, result.Name)
		fmt.Fprintf(w, "  Total: %f sec.\n", result.Elapsed.Seconds())
		fmt.Fprintf(w, "  QPS:   %f query/sec.\n", result.QPS())
		fmt.Fprintf(w, "  SPQ:   %f sec/query.\n", result.SPQ())
		fmt.Fprintf(w, "  OK:    %d\n", result.Succeeded)
		if result.Empty > 0 {
			fmt.Fprintf(w, "  Empty: %d\n", result.Empty)
		}
		if result.Failed > 0 {
			fmt.Fprintf(w, "  Fail:  %d\n", result.Failed)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 40))
}
