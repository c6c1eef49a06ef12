package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	PushOperation = "push"
	PopOperation  = "pop"
)

type Service interface {
	IncMessagesPushedTotalBy(count int64, queueName string)
	IncMessagesPoppedTotalBy(count int64, queueName string)
	IncPushFailuresTotalBy(count int64, queueName string)
	IncEmptyPopsTotalBy(count int64, queueName string)
	IncClaimFailuresTotalBy(count int64, queueName string)
	IncPartialDeliveriesTotalBy(count int64, queueName string, phase string)
	ObserveOperationDuration(operation string, queueName string, seconds float64)
	SetQueueDepth(queueName string, depth int64)
	DeleteQueueDepth(queueName string)
}

// NewMetricsService returns the no-op implementation if metrics are disabled.
// The Prometheus collectors are registered within the provided registerer.
func NewMetricsService(metricsEnabled bool, registerer prometheus.Registerer) Service {
	if metricsEnabled {
		return newPrometheusMetricsService(registerer)
	}
	return newNoopMetricsService()
}
