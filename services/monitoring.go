package services

import (
	"context"

	"github.com/kotas/myqueue/db"
)

type MonitoringService struct {
	repo *db.QueueRepo
}

func NewMonitoringService(repo *db.QueueRepo) *MonitoringService {
	return &MonitoringService{
		repo: repo,
	}
}

func (ms *MonitoringService) IsHealthy(ctx context.Context) bool {
	err := ms.repo.Ping(ctx)
	return err == nil
}
