package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type PrometheusMetricsService struct {
	messagesPushedTotal      *prometheus.CounterVec
	messagesPoppedTotal      *prometheus.CounterVec
	pushFailuresTotal        *prometheus.CounterVec
	emptyPopsTotal           *prometheus.CounterVec
	claimFailuresTotal       *prometheus.CounterVec
	partialDeliveriesTotal   *prometheus.CounterVec
	operationDurationSeconds *prometheus.HistogramVec
	queueDepth               *prometheus.GaugeVec
}

func newPrometheusMetricsService(registerer prometheus.Registerer) *PrometheusMetricsService {
	srv := &PrometheusMetricsService{
		messagesPushedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_messages_pushed_total",
				Help: "Total number of messages pushed to the queue by producers",
			},
			[]string{"queue_name"},
		),

		messagesPoppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_messages_popped_total",
				Help: "Total number of messages delivered to consumers, i.e. claimed, fetched and deleted",
			},
			[]string{"queue_name"},
		),

		pushFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_push_failures_total",
				Help: "Total number of pushes that failed to insert a message",
			},
			[]string{"queue_name"},
		),

		emptyPopsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_empty_pops_total",
				Help: "Total number of pops that found no visible message",
			},
			[]string{"queue_name"},
		),

		claimFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_claim_failures_total",
				Help: "Total number of pops that failed to execute the claim statement",
			},
			[]string{"queue_name"},
		),

		// phase is either "fetch" or "delete": the message was claimed, but not delivered,
		// so it will be redelivered once its lock expires.
		partialDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myqueue_partial_deliveries_total",
				Help: "Total number of claimed messages left locked because a later pop phase failed",
			},
			[]string{"queue_name", "phase"},
		),

		operationDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "myqueue_operation_duration_seconds",
				Help:    "Duration of push and pop operations, including all backend round trips",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "queue_name"},
		),

		queueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "myqueue_queue_depth",
				Help: "Current number of rows in the queue table, locked messages included",
			},
			[]string{"queue_name"},
		),
	}

	registerer.MustRegister(
		srv.messagesPushedTotal,
		srv.messagesPoppedTotal,
		srv.pushFailuresTotal,
		srv.emptyPopsTotal,
		srv.claimFailuresTotal,
		srv.partialDeliveriesTotal,
		srv.operationDurationSeconds,
		srv.queueDepth,
	)

	return srv
}

func (pms *PrometheusMetricsService) IncMessagesPushedTotalBy(count int64, queueName string) {
	pms.messagesPushedTotal.WithLabelValues(queueName).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncMessagesPoppedTotalBy(count int64, queueName string) {
	pms.messagesPoppedTotal.WithLabelValues(queueName).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncPushFailuresTotalBy(count int64, queueName string) {
	pms.pushFailuresTotal.WithLabelValues(queueName).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncEmptyPopsTotalBy(count int64, queueName string) {
	pms.emptyPopsTotal.WithLabelValues(queueName).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncClaimFailuresTotalBy(count int64, queueName string) {
	pms.claimFailuresTotal.WithLabelValues(queueName).Add(float64(count))
}

func (pms *PrometheusMetricsService) IncPartialDeliveriesTotalBy(count int64, queueName string, phase string) {
	pms.partialDeliveriesTotal.WithLabelValues(queueName, phase).Add(float64(count))
}

func (pms *PrometheusMetricsService) ObserveOperationDuration(operation string, queueName string, seconds float64) {
	pms.operationDurationSeconds.WithLabelValues(operation, queueName).Observe(seconds)
}

func (pms *PrometheusMetricsService) SetQueueDepth(queueName string, depth int64) {
	pms.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

func (pms *PrometheusMetricsService) DeleteQueueDepth(queueName string) {
	pms.queueDepth.DeleteLabelValues(queueName)
}
