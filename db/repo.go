package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/configs"
	"github.com/rs/zerolog/log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// QueueRepo is the storage backend of the queues. It keeps no state besides the connection pool,
// every mutation it issues is a single statement (or, for MySQL claims, a single short transaction).
type QueueRepo struct {
	db      *sqlx.DB
	dialect dialect
}

func NewRepo(dbConfig *configs.DBConfig) (*QueueRepo, error) {
	d, err := dialectFor(dbConfig.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := DataSourceName(dbConfig)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancelFunc := context.WithTimeout(context.Background(), dbConfig.PingTimeout)
	defer cancelFunc()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &QueueRepo{
		db:      db,
		dialect: d,
	}, nil
}

// DataSourceName returns the DSN to open. For SQLite the configured DSN is either the database file path
// or a "file:" URI, the busy timeout is added to the latter unless it sets one.
// In-memory SQLite databases are rejected: every pooled connection would get its own empty database.
func DataSourceName(dbConfig *configs.DBConfig) (string, error) {
	if dbConfig.Driver != common.SQLiteDriver {
		return dbConfig.DSN, nil
	}

	dsn := dbConfig.DSN
	if dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:") {
		return "", fmt.Errorf("unsupported sqlite dsn %q: a database file is required", dsn)
	}

	busyTimeout := fmt.Sprintf("_pragma=busy_timeout(%d)", dbConfig.BusyTimeoutMs)
	if strings.HasPrefix(dsn, "file:") {
		if strings.Contains(dsn, "busy_timeout") {
			return dsn, nil
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + busyTimeout, nil
	}
	return fmt.Sprintf("file:%s?%s&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dsn, busyTimeout), nil
}

func (qr *QueueRepo) InsertMessage(ctx context.Context, queueName string, data []byte) error {
	if err := common.ValidateQueueName(queueName); err != nil {
		return err
	}
	if data == nil {
		// the column is NOT NULL, and database/sql sends a nil slice as NULL
		data = []byte{}
	}

	_, err := qr.db.ExecContext(ctx, qr.dialect.query(qr.db, qr.dialect.insert, queueName), data)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to insert new message")
		return common.ErrBackend.Wrap(err)
	}
	return nil
}

// ClaimMessage locks the oldest visible message for lockTimeout and returns its id.
// common.ErrEmptyQueue is returned if no message is visible at the moment.
func (qr *QueueRepo) ClaimMessage(ctx context.Context, queueName string, lockTimeout time.Duration) (int64, error) {
	if err := common.ValidateQueueName(queueName); err != nil {
		return 0, err
	}

	var id int64
	var err error
	if qr.dialect.claim != "" {
		err = qr.db.GetContext(ctx, &id, qr.dialect.query(qr.db, qr.dialect.claim, queueName),
			lockTimeoutMillis(lockTimeout), // SET locked_until = now + ?
		)
	} else {
		err = qr.inTx(ctx, func(tx *sqlx.Tx) error {
			if innerErr := tx.GetContext(ctx, &id, qr.dialect.query(qr.db, qr.dialect.claimSelect, queueName)); innerErr != nil {
				return innerErr
			}
			_, innerErr := tx.ExecContext(ctx, qr.dialect.query(qr.db, qr.dialect.claimUpdate, queueName),
				lockTimeoutMicros(lockTimeout), // SET locked_until = now + INTERVAL ? MICROSECOND
				id,                             // WHERE id = ?
			)
			return innerErr
		})
	}

	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrEmptyQueue
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to claim message")
		return 0, common.ErrBackend.Wrap(err)
	}
	return id, nil
}

// lockTimeoutMillis rounds up, so a positive timeout always moves locked_until past now.
func lockTimeoutMillis(lockTimeout time.Duration) int64 {
	return int64((lockTimeout + time.Millisecond - 1) / time.Millisecond)
}

func lockTimeoutMicros(lockTimeout time.Duration) int64 {
	return int64((lockTimeout + time.Microsecond - 1) / time.Microsecond)
}

func (qr *QueueRepo) SelectMessageData(ctx context.Context, queueName string, messageId int64) ([]byte, error) {
	if err := common.ValidateQueueName(queueName); err != nil {
		return nil, err
	}

	var data []byte
	err := qr.db.GetContext(ctx, &data, qr.dialect.query(qr.db, qr.dialect.selectData, queueName), messageId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFoundMessage
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Int64("message_id", messageId).Msg("failed to select message data")
		return nil, common.ErrBackend.Wrap(err)
	}
	return data, nil
}

// DeleteMessage removes the message. Deleting a message that no longer exists is not an error.
func (qr *QueueRepo) DeleteMessage(ctx context.Context, queueName string, messageId int64) error {
	if err := common.ValidateQueueName(queueName); err != nil {
		return err
	}

	result, err := qr.db.ExecContext(ctx, qr.dialect.query(qr.db, qr.dialect.delete, queueName), messageId)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Int64("message_id", messageId).Msg("failed to delete message")
		return common.ErrBackend.Wrap(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to get rows affected after delete")
		return common.ErrBackend.Wrap(err)
	}

	if rowsAffected == 0 {
		log.Warn().Str("queue", queueName).Int64("message_id", messageId).Msg("no rows deleted, message was either deleted already or does not exist")
	}
	return nil
}

func (qr *QueueRepo) CountMessages(ctx context.Context, queueName string) (int64, error) {
	if err := common.ValidateQueueName(queueName); err != nil {
		return 0, err
	}

	var count int64
	err := qr.db.GetContext(ctx, &count, qr.dialect.query(qr.db, qr.dialect.count, queueName))
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to count messages")
		return 0, common.ErrBackend.Wrap(err)
	}
	return count, nil
}

// CreateQueue creates the queue table if it doesn't exist yet and records it in the registry.
func (qr *QueueRepo) CreateQueue(ctx context.Context, queueName string) error {
	if err := common.ValidateQueueName(queueName); err != nil {
		return err
	}

	if _, err := qr.db.ExecContext(ctx, qr.dialect.query(qr.db, qr.dialect.createTable, queueName)); err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to create queue table")
		return common.ErrBackend.Wrap(err)
	}

	_, err := qr.db.ExecContext(ctx, qr.db.Rebind(qr.dialect.registerQueue),
		queueName,              // name
		time.Now().UnixMilli(), // created_at
	)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to register queue")
		return common.ErrBackend.Wrap(err)
	}
	return nil
}

// DropQueue drops the queue table together with all its messages, locked ones included.
func (qr *QueueRepo) DropQueue(ctx context.Context, queueName string) error {
	if err := common.ValidateQueueName(queueName); err != nil {
		return err
	}

	// unregister first: a registered queue without a table would break stats for every queue
	if _, err := qr.db.ExecContext(ctx, qr.db.Rebind(qr.dialect.unregisterQueue), queueName); err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to unregister queue")
		return common.ErrBackend.Wrap(err)
	}

	if _, err := qr.db.ExecContext(ctx, qr.dialect.query(qr.db, qr.dialect.dropTable, queueName)); err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to drop queue table")
		return common.ErrBackend.Wrap(err)
	}
	return nil
}

// SelectQueue returns nil if the queue is not registered.
func (qr *QueueRepo) SelectQueue(ctx context.Context, queueName string) (*QueueMetadata, error) {
	var queue QueueMetadata
	err := qr.db.GetContext(ctx, &queue, qr.db.Rebind(qr.dialect.selectQueue), queueName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("failed to select queue")
		return nil, common.ErrBackend.Wrap(err)
	}
	return &queue, nil
}

func (qr *QueueRepo) SelectAllQueues(ctx context.Context) ([]QueueMetadata, error) {
	var queues []QueueMetadata
	if err := qr.db.SelectContext(ctx, &queues, qr.db.Rebind(qr.dialect.selectQueues)); err != nil {
		log.Error().Err(err).Msg("failed to select queues")
		return nil, common.ErrBackend.Wrap(err)
	}
	return queues, nil
}

func (qr *QueueRepo) Ping(ctx context.Context) error {
	return qr.db.PingContext(ctx)
}

func (qr *QueueRepo) Close() error {
	return qr.db.Close()
}

func (qr *QueueRepo) inTx(ctx context.Context, cb func(*sqlx.Tx) error) (err error) {
	tx, beginErr := qr.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("cannot start tx: %w", beginErr)
	}

	defer func() {
		if rec := recover(); rec != nil {
			_ = rollback(tx, nil)
			panic(rec)
		}
	}()

	if err = cb(tx); err != nil {
		return rollback(tx, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("cannot commit tx: %w", commitErr)
	}
	return nil
}

func rollback(tx *sqlx.Tx, err error) error {
	if rollbackErr := tx.Rollback(); rollbackErr != nil {
		return fmt.Errorf("cannot roll back tx after error (tx error: %v), original error: %w", rollbackErr, err)
	}
	return err
}
