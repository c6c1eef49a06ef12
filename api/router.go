package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kotas/myqueue/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthcheckTimeout = 2 * time.Second

// Router serves the operational endpoints of a process using the queue. Messages never travel over HTTP.
type Router struct {
	monitoringService *services.MonitoringService
	gatherer          prometheus.Gatherer
}

func NewRouter(monitoringService *services.MonitoringService, gatherer prometheus.Gatherer) *Router {
	return &Router{
		monitoringService: monitoringService,
		gatherer:          gatherer,
	}
}

func (ar *Router) NewRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestLogger)

	router.Get("/healthcheck", ar.healthcheck)
	router.Handle("/metrics", promhttp.HandlerFor(ar.gatherer, promhttp.HandlerOpts{}))

	return router
}

func (ar *Router) healthcheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancelFunc := context.WithTimeout(req.Context(), healthcheckTimeout)
	defer cancelFunc()

	if !ar.monitoringService.IsHealthy(ctx) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
