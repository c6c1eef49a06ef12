package db

type QueueMetadata struct {
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}
