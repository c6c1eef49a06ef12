package metrics

type NoopMetricsService struct {
}

func newNoopMetricsService() *NoopMetricsService {
	return &NoopMetricsService{}
}

func (nms *NoopMetricsService) IncMessagesPushedTotalBy(count int64, queueName string) {
	// no-op
}

func (nms *NoopMetricsService) IncMessagesPoppedTotalBy(count int64, queueName string) {
	// no-op
}

func (nms *NoopMetricsService) IncPushFailuresTotalBy(count int64, queueName string) {
	// no-op
}

func (nms *NoopMetricsService) IncEmptyPopsTotalBy(count int64, queueName string) {
	// no-op
}

func (nms *NoopMetricsService) IncClaimFailuresTotalBy(count int64, queueName string) {
	// no-op
}

func (nms *NoopMetricsService) IncPartialDeliveriesTotalBy(count int64, queueName string, phase string) {
	// no-op
}

func (nms *NoopMetricsService) ObserveOperationDuration(operation string, queueName string, seconds float64) {
	// no-op
}

func (nms *NoopMetricsService) SetQueueDepth(queueName string, depth int64) {
	// no-op
}

func (nms *NoopMetricsService) DeleteQueueDepth(queueName string) {
	// no-op
}
