package common

const (
	ErrCodeEmptyQueue         = "queue.empty"
	ErrCodeInvalidQueueName   = "queue.name.invalid"
	ErrCodeInvalidLockTimeout = "queue.lock_timeout.invalid"
	ErrCodeNotFoundQueue      = "not_found.queue"
	ErrCodeNotFoundMessage    = "not_found.message"
	ErrCodePartialDelivery    = "message.partial_delivery"
	ErrCodeBackend            = "backend"
)

var (
	ErrEmptyQueue         = QueueError{Code: ErrCodeEmptyQueue}
	ErrInvalidQueueName   = QueueError{Code: ErrCodeInvalidQueueName}
	ErrInvalidLockTimeout = QueueError{Code: ErrCodeInvalidLockTimeout}
	ErrNotFoundQueue      = QueueError{Code: ErrCodeNotFoundQueue}
	ErrNotFoundMessage    = QueueError{Code: ErrCodeNotFoundMessage}
	ErrPartialDelivery    = QueueError{Code: ErrCodePartialDelivery}
	ErrBackend            = QueueError{Code: ErrCodeBackend}
)

// QueueError is matched by Code, so a wrapped instance still satisfies errors.Is against the bare sentinel.
type QueueError struct {
	Code string
	Err  error
}

func (qe QueueError) Error() string {
	if qe.Err == nil {
		return qe.Code
	}
	return qe.Code + ": " + qe.Err.Error()
}

func (qe QueueError) Unwrap() error {
	return qe.Err
}

func (qe QueueError) Is(target error) bool {
	t, ok := target.(QueueError)
	return ok && t.Code == qe.Code
}

// Wrap returns a copy of the sentinel carrying err as its cause.
func (qe QueueError) Wrap(err error) QueueError {
	return QueueError{Code: qe.Code, Err: err}
}
