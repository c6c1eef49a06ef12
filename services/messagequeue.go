package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/metrics"
	"github.com/rs/zerolog/log"
)

// Storage is what MessageQueue needs from the backend. Each method must be a single atomic backend operation.
type Storage interface {
	// InsertMessage appends a visible message with a backend-assigned id.
	InsertMessage(ctx context.Context, queueName string, data []byte) error

	// ClaimMessage locks the visible message with the smallest id until now + lockTimeout and returns its id,
	// or common.ErrEmptyQueue if there is no visible message.
	ClaimMessage(ctx context.Context, queueName string, lockTimeout time.Duration) (int64, error)

	// SelectMessageData returns the payload, or common.ErrNotFoundMessage if there is no such message.
	SelectMessageData(ctx context.Context, queueName string, messageId int64) ([]byte, error)

	// DeleteMessage removes the message, deleting a missing message is a no-op.
	DeleteMessage(ctx context.Context, queueName string, messageId int64) error
}

// MessageQueue is a stateless facade over one queue table, safe for concurrent use.
//
// Pop is claim, fetch and delete as three separate round trips. Only the claim is atomic with respect
// to other consumers: if the fetch or the delete fails, the message stays locked and becomes visible
// again once the lock expires, so delivery is at-least-once.
type MessageQueue struct {
	storage        Storage
	queueName      string
	lockTimeout    time.Duration
	metricsService metrics.Service
}

// NewMessageQueue uses common.DefaultLockTimeout if lockTimeout is not positive.
// A positive lockTimeout below common.MinLockTimeout is rejected, as it would not lock anything.
func NewMessageQueue(storage Storage, queueName string, lockTimeout time.Duration, metricsService metrics.Service) (*MessageQueue, error) {
	if err := common.ValidateQueueName(queueName); err != nil {
		return nil, err
	}
	if lockTimeout <= 0 {
		lockTimeout = common.DefaultLockTimeout
	}
	if lockTimeout < common.MinLockTimeout {
		return nil, common.ErrInvalidLockTimeout.Wrap(fmt.Errorf("%s is below %s", lockTimeout, common.MinLockTimeout))
	}
	if metricsService == nil {
		metricsService = metrics.NewMetricsService(false, nil)
	}

	return &MessageQueue{
		storage:        storage,
		queueName:      queueName,
		lockTimeout:    lockTimeout,
		metricsService: metricsService,
	}, nil
}

func (mq *MessageQueue) Name() string {
	return mq.queueName
}

// Push appends data to the end of the queue. No retries are made on failure.
func (mq *MessageQueue) Push(ctx context.Context, data []byte) error {
	start := time.Now()
	defer mq.observe(metrics.PushOperation, start)

	if err := mq.storage.InsertMessage(ctx, mq.queueName, data); err != nil {
		mq.metricsService.IncPushFailuresTotalBy(1, mq.queueName)
		return err
	}
	mq.metricsService.IncMessagesPushedTotalBy(1, mq.queueName)
	return nil
}

// Pop removes the oldest visible message from the queue and returns its data.
//
// Errors:
//   - common.ErrEmptyQueue: no visible message at the moment of the call
//   - common.ErrBackend: the claim failed, nothing was locked
//   - common.ErrPartialDelivery: a message was claimed but could not be fetched or deleted,
//     it will be redelivered once its lock expires
func (mq *MessageQueue) Pop(ctx context.Context) ([]byte, error) {
	start := time.Now()
	defer mq.observe(metrics.PopOperation, start)

	// 1. claim: the only step consumers compete on
	messageId, err := mq.storage.ClaimMessage(ctx, mq.queueName, mq.lockTimeout)
	if err != nil {
		if errors.Is(err, common.ErrEmptyQueue) {
			mq.metricsService.IncEmptyPopsTotalBy(1, mq.queueName)
		} else {
			mq.metricsService.IncClaimFailuresTotalBy(1, mq.queueName)
		}
		return nil, err
	}

	// 2. fetch: the message stays locked if this fails
	data, err := mq.storage.SelectMessageData(ctx, mq.queueName, messageId)
	if err != nil {
		return nil, mq.partialDelivery(messageId, common.FetchPhase, err)
	}

	// 3. delete: the fetched data must not be handed out unless the message is gone from the queue
	if err := mq.storage.DeleteMessage(ctx, mq.queueName, messageId); err != nil {
		return nil, mq.partialDelivery(messageId, common.DeletePhase, err)
	}

	mq.metricsService.IncMessagesPoppedTotalBy(1, mq.queueName)
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (mq *MessageQueue) partialDelivery(messageId int64, phase string, err error) error {
	log.Warn().Err(err).
		Str("queue", mq.queueName).
		Int64("message_id", messageId).
		Str("phase", phase).
		Dur("lock_timeout", mq.lockTimeout).
		Msg("message claimed but not delivered, it will be redelivered once the lock expires")
	mq.metricsService.IncPartialDeliveriesTotalBy(1, mq.queueName, phase)
	return common.ErrPartialDelivery.Wrap(err)
}

func (mq *MessageQueue) observe(operation string, start time.Time) {
	mq.metricsService.ObserveOperationDuration(operation, mq.queueName, time.Since(start).Seconds())
}
