package metrics

import (
	"context"
	"time"

	"github.com/kotas/myqueue/metrics"
	"github.com/kotas/myqueue/services"

	"github.com/rs/zerolog/log"
)

type QueuesDepthMetricsJob struct {
	ticker *time.Ticker
	done   chan struct{}
}

func NewQueuesDepthMetricsJob(metricsService metrics.Service, queuesService *services.QueuesService, intervalMs int64) *QueuesDepthMetricsJob {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	done := make(chan struct{})

	go func() {
		knownQueues := make(map[string]bool)
		for {
			select {
			case <-ticker.C:
				ctx, cancelFunc := context.WithTimeout(context.Background(), time.Duration(intervalMs)*time.Millisecond)
				knownQueues = refreshQueuesDepth(ctx, metricsService, queuesService, knownQueues)
				cancelFunc()
			case <-done:
				return
			}
		}
	}()

	return &QueuesDepthMetricsJob{
		ticker: ticker,
		done:   done,
	}
}

// refreshQueuesDepth sets the depth of every registered queue and removes the gauge of queues
// that were known at the previous tick but are gone now. It returns the queues seen at this tick.
func refreshQueuesDepth(ctx context.Context, metricsService metrics.Service, queuesService *services.QueuesService, knownQueues map[string]bool) map[string]bool {
	queuesStats, err := queuesService.GetQueuesStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch queues stats by QueuesDepthMetricsJob")
		return knownQueues
	}

	seenQueues := make(map[string]bool, len(queuesStats))
	for _, qs := range queuesStats {
		metricsService.SetQueueDepth(qs.Name, qs.TotalMessages)
		seenQueues[qs.Name] = true
	}
	for queueName := range knownQueues {
		if !seenQueues[queueName] {
			metricsService.DeleteQueueDepth(queueName)
		}
	}
	return seenQueues
}

func (j *QueuesDepthMetricsJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
