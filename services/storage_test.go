package services

import (
	"context"
	"sync"
	"time"

	"github.com/kotas/myqueue/common"
)

type fakeMessage struct {
	id          int64
	lockedUntil time.Time
	data        []byte
}

// fakeStorage is an in-memory Storage with a manual clock and injectable failures.
type fakeStorage struct {
	mu       sync.Mutex
	now      time.Time
	nextId   int64
	messages []*fakeMessage

	insertErr error
	claimErr  error
	selectErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (fs *fakeStorage) InsertMessage(ctx context.Context, queueName string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.insertErr != nil {
		return fs.insertErr
	}
	fs.nextId++
	fs.messages = append(fs.messages, &fakeMessage{
		id:   fs.nextId,
		data: append([]byte(nil), data...),
	})
	return nil
}

func (fs *fakeStorage) ClaimMessage(ctx context.Context, queueName string, lockTimeout time.Duration) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.claimErr != nil {
		return 0, fs.claimErr
	}
	for _, m := range fs.messages {
		if !m.lockedUntil.After(fs.now) {
			m.lockedUntil = fs.now.Add(lockTimeout)
			return m.id, nil
		}
	}
	return 0, common.ErrEmptyQueue
}

func (fs *fakeStorage) SelectMessageData(ctx context.Context, queueName string, messageId int64) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.selectErr != nil {
		return nil, fs.selectErr
	}
	for _, m := range fs.messages {
		if m.id == messageId {
			return append([]byte(nil), m.data...), nil
		}
	}
	return nil, common.ErrNotFoundMessage
}

func (fs *fakeStorage) DeleteMessage(ctx context.Context, queueName string, messageId int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.deleteErr != nil {
		return fs.deleteErr
	}
	for i, m := range fs.messages {
		if m.id == messageId {
			fs.messages = append(fs.messages[:i], fs.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (fs *fakeStorage) advance(d time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.now = fs.now.Add(d)
}

func (fs *fakeStorage) setErrors(insertErr, claimErr, selectErr, deleteErr error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.insertErr, fs.claimErr, fs.selectErr, fs.deleteErr = insertErr, claimErr, selectErr, deleteErr
}

func (fs *fakeStorage) len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.messages)
}

func (fs *fakeStorage) lockedUntil(messageId int64) time.Time {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, m := range fs.messages {
		if m.id == messageId {
			return m.lockedUntil
		}
	}
	return time.Time{}
}

// recordingMetricsService counts calls per metric name.
type recordingMetricsService struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newRecordingMetricsService() *recordingMetricsService {
	return &recordingMetricsService{counts: make(map[string]int64)}
}

func (rms *recordingMetricsService) add(name string, count int64) {
	rms.mu.Lock()
	defer rms.mu.Unlock()
	rms.counts[name] += count
}

func (rms *recordingMetricsService) get(name string) int64 {
	rms.mu.Lock()
	defer rms.mu.Unlock()
	return rms.counts[name]
}

func (rms *recordingMetricsService) IncMessagesPushedTotalBy(count int64, queueName string) {
	rms.add("pushed", count)
}

func (rms *recordingMetricsService) IncMessagesPoppedTotalBy(count int64, queueName string) {
	rms.add("popped", count)
}

func (rms *recordingMetricsService) IncPushFailuresTotalBy(count int64, queueName string) {
	rms.add("push_failures", count)
}

func (rms *recordingMetricsService) IncEmptyPopsTotalBy(count int64, queueName string) {
	rms.add("empty", count)
}

func (rms *recordingMetricsService) IncClaimFailuresTotalBy(count int64, queueName string) {
	rms.add("claim_failures", count)
}

func (rms *recordingMetricsService) IncPartialDeliveriesTotalBy(count int64, queueName string, phase string) {
	rms.add("partial_"+phase, count)
}

func (rms *recordingMetricsService) ObserveOperationDuration(operation string, queueName string, seconds float64) {
	rms.add("observed_"+operation, 1)
}

func (rms *recordingMetricsService) SetQueueDepth(queueName string, depth int64) {
	rms.add("depth", depth)
}

func (rms *recordingMetricsService) DeleteQueueDepth(queueName string) {
	rms.add("depth_deleted", 1)
}
