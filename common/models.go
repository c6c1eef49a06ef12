package common

// QueueStats represents queue statistics for metrics and benchmark reports
type QueueStats struct {
	Name          string
	TotalMessages int64
	CreatedAt     int64
}
