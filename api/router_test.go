package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kotas/myqueue/configs"
	"github.com/kotas/myqueue/db"
	"github.com/kotas/myqueue/metrics"
	"github.com/kotas/myqueue/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *db.QueueRepo, metrics.Service) {
	dbConfig := configs.NewAppConfig().DBConfig
	dbConfig.DSN = filepath.Join(t.TempDir(), "myqueue.db")
	repo, err := db.NewRepo(&dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	registry := prometheus.NewRegistry()
	metricsService := metrics.NewMetricsService(true, registry)

	router := NewRouter(services.NewMonitoringService(repo), registry)
	server := httptest.NewServer(router.NewRouter())
	t.Cleanup(server.Close)
	return server, repo, metricsService
}

func TestHealthcheck(t *testing.T) {
	server, repo, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthcheck")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, repo.Close())

	resp, err = http.Get(server.URL + "/healthcheck")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _, metricsService := newTestServer(t)
	metricsService.IncMessagesPushedTotalBy(3, "test_queue")

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	require.Contains(t, body, `myqueue_messages_pushed_total{queue_name="test_queue"} 3`)
}

func TestUnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/healthcheck", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(server.URL + "/queues")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return sb.String()
}
