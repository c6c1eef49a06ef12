package services

import (
	"context"

	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/db"
)

type QueuesService struct {
	queueRepo *db.QueueRepo
}

func NewQueuesService(queueRepo *db.QueueRepo) *QueuesService {
	return &QueuesService{
		queueRepo: queueRepo,
	}
}

// CreateQueue is idempotent: an existing queue table is kept as is, messages included.
func (qs *QueuesService) CreateQueue(ctx context.Context, queueName string) error {
	return qs.queueRepo.CreateQueue(ctx, queueName)
}

// RecreateQueue drops the queue table with all its messages and creates an empty one.
func (qs *QueuesService) RecreateQueue(ctx context.Context, queueName string) error {
	if err := qs.queueRepo.DropQueue(ctx, queueName); err != nil {
		return err
	}
	return qs.queueRepo.CreateQueue(ctx, queueName)
}

func (qs *QueuesService) DropQueue(ctx context.Context, queueName string) error {
	return qs.queueRepo.DropQueue(ctx, queueName)
}

func (qs *QueuesService) QueueExists(ctx context.Context, queueName string) (bool, error) {
	queueMeta, err := qs.queueRepo.SelectQueue(ctx, queueName)
	if err != nil {
		return false, err
	}
	return queueMeta != nil, nil
}

func (qs *QueuesService) GetQueueStats(ctx context.Context, queueName string) (*common.QueueStats, error) {
	queueMeta, err := qs.queueRepo.SelectQueue(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if queueMeta == nil {
		return nil, common.ErrNotFoundQueue
	}

	count, err := qs.queueRepo.CountMessages(ctx, queueName)
	if err != nil {
		return nil, err
	}

	return &common.QueueStats{
		Name:          queueMeta.Name,
		TotalMessages: count,
		CreatedAt:     queueMeta.CreatedAt,
	}, nil
}

func (qs *QueuesService) GetQueuesStats(ctx context.Context) ([]common.QueueStats, error) {
	queues, err := qs.queueRepo.SelectAllQueues(ctx)
	if err != nil {
		return nil, err
	}

	queuesStats := make([]common.QueueStats, 0, len(queues))
	for _, q := range queues {
		count, err := qs.queueRepo.CountMessages(ctx, q.Name)
		if err != nil {
			return nil, err
		}
		queuesStats = append(queuesStats, common.QueueStats{
			Name:          q.Name,
			TotalMessages: count,
			CreatedAt:     q.CreatedAt,
		})
	}
	return queuesStats, nil
}
