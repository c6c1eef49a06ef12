package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsService_Disabled(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := NewMetricsService(false, registry)

	require.IsType(t, &NoopMetricsService{}, srv)
	srv.IncMessagesPushedTotalBy(1, "test_queue")

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Empty(t, families)
}

func TestPrometheusMetricsService(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := NewMetricsService(true, registry)
	pms, ok := srv.(*PrometheusMetricsService)
	require.True(t, ok)

	srv.IncMessagesPushedTotalBy(3, "test_queue")
	srv.IncMessagesPoppedTotalBy(2, "test_queue")
	srv.IncPushFailuresTotalBy(1, "test_queue")
	srv.IncEmptyPopsTotalBy(4, "test_queue")
	srv.IncClaimFailuresTotalBy(1, "test_queue")
	srv.IncPartialDeliveriesTotalBy(1, "test_queue", "delete")
	srv.ObserveOperationDuration(PopOperation, "test_queue", 0.01)
	srv.ObserveOperationDuration(PopOperation, "test_queue", 0.02)
	srv.SetQueueDepth("test_queue", 7)
	srv.SetQueueDepth("test_queue", 5)

	require.Equal(t, 3.0, testutil.ToFloat64(pms.messagesPushedTotal.WithLabelValues("test_queue")))
	require.Equal(t, 2.0, testutil.ToFloat64(pms.messagesPoppedTotal.WithLabelValues("test_queue")))
	require.Equal(t, 1.0, testutil.ToFloat64(pms.pushFailuresTotal.WithLabelValues("test_queue")))
	require.Equal(t, 4.0, testutil.ToFloat64(pms.emptyPopsTotal.WithLabelValues("test_queue")))
	require.Equal(t, 1.0, testutil.ToFloat64(pms.claimFailuresTotal.WithLabelValues("test_queue")))
	require.Equal(t, 1.0, testutil.ToFloat64(pms.partialDeliveriesTotal.WithLabelValues("test_queue", "delete")))
	require.Equal(t, 0.0, testutil.ToFloat64(pms.partialDeliveriesTotal.WithLabelValues("test_queue", "fetch")))
	require.Equal(t, 5.0, testutil.ToFloat64(pms.queueDepth.WithLabelValues("test_queue")))
	require.Equal(t, 1, testutil.CollectAndCount(pms.operationDurationSeconds))

	count, err := testutil.GatherAndCount(registry, "myqueue_messages_pushed_total", "myqueue_queue_depth")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestPrometheusMetricsService_DeleteQueueDepth(t *testing.T) {
	pms := newPrometheusMetricsService(prometheus.NewRegistry())

	pms.SetQueueDepth("emails", 2)
	pms.SetQueueDepth("orders", 3)
	pms.DeleteQueueDepth("emails")
	pms.DeleteQueueDepth("unknown")

	require.Equal(t, 1, testutil.CollectAndCount(pms.queueDepth))
	require.Equal(t, 3.0, testutil.ToFloat64(pms.queueDepth.WithLabelValues("orders")))
}

func TestPrometheusMetricsService_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetricsService(true, registry)

	require.Panics(t, func() {
		NewMetricsService(true, registry)
	})
}
