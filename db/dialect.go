package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kotas/myqueue/common"
)

func init() {
	// sqlx doesn't know the modernc driver name, queries are written with "?" anyway
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// dialect keeps every statement the repo issues for one backend.
// Queue tables are referenced as %[1]s, bindvars are written as "?" and rebound for the driver.
type dialect struct {
	name       string
	driverName string
	quote      func(string) string

	createTable string
	dropTable   string
	insert      string
	claim       string // single statement returning the claimed id, empty when claimSelect is used
	claimSelect string // SELECT ... FOR UPDATE SKIP LOCKED, run in a tx together with claimUpdate
	claimUpdate string
	selectData  string
	delete      string
	count       string

	registerQueue   string
	unregisterQueue string
	selectQueue     string
	selectQueues    string
}

// sqlite: locked_until is unix milliseconds of the database clock.
// AUTOINCREMENT keeps ids from being reused after the newest row is deleted.
var sqliteDialect = dialect{
	name:       common.SQLiteDriver,
	driverName: "sqlite",
	quote:      func(s string) string { return `"` + s + `"` },

	createTable: `
		CREATE TABLE IF NOT EXISTS %[1]s (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			locked_until INTEGER NOT NULL DEFAULT 0,
			data         BLOB    NOT NULL
		);`,
	dropTable: `DROP TABLE IF EXISTS %[1]s;`,
	insert:    `INSERT INTO %[1]s (data) VALUES (?);`,
	claim: `
		UPDATE %[1]s
		SET locked_until = CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER) + ?
		WHERE id = (
			SELECT id
			FROM %[1]s
			WHERE locked_until <= CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER)
			ORDER BY id ASC
			LIMIT 1
		)
		RETURNING id;`,
	selectData: `SELECT data FROM %[1]s WHERE id = ?;`,
	delete:     `DELETE FROM %[1]s WHERE id = ?;`,
	count:      `SELECT COUNT(*) FROM %[1]s;`,

	registerQueue:   `INSERT OR IGNORE INTO myqueue_queues (name, created_at) VALUES (?, ?);`,
	unregisterQueue: `DELETE FROM myqueue_queues WHERE name = ?;`,
	selectQueue:     `SELECT name, created_at FROM myqueue_queues WHERE name = ?;`,
	selectQueues:    `SELECT name, created_at FROM myqueue_queues ORDER BY name;`,
}

// postgres: '-infinity' is the earliest representable timestamp.
// SKIP LOCKED lets concurrent claimants pass over a row another claimant is updating.
var postgresDialect = dialect{
	name:       common.PostgresDriver,
	driverName: "pgx",
	quote:      func(s string) string { return `"` + s + `"` },

	createTable: `
		CREATE TABLE IF NOT EXISTS %[1]s (
			id           BIGSERIAL   PRIMARY KEY,
			locked_until TIMESTAMPTZ NOT NULL DEFAULT '-infinity',
			data         BYTEA       NOT NULL
		);`,
	dropTable: `DROP TABLE IF EXISTS %[1]s;`,
	insert:    `INSERT INTO %[1]s (data) VALUES (?);`,
	claim: `
		UPDATE %[1]s
		SET locked_until = clock_timestamp() + (?::bigint * interval '1 millisecond')
		WHERE id = (
			SELECT id
			FROM %[1]s
			WHERE locked_until <= clock_timestamp()
			ORDER BY id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id;`,
	selectData: `SELECT data FROM %[1]s WHERE id = ?;`,
	delete:     `DELETE FROM %[1]s WHERE id = ?;`,
	count:      `SELECT COUNT(*) FROM %[1]s;`,

	registerQueue:   `INSERT INTO myqueue_queues (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING;`,
	unregisterQueue: `DELETE FROM myqueue_queues WHERE name = ?;`,
	selectQueue:     `SELECT name, created_at FROM myqueue_queues WHERE name = ?;`,
	selectQueues:    `SELECT name, created_at FROM myqueue_queues ORDER BY name;`,
}

// mysql: UTC_TIMESTAMP keeps the comparison independent from the session time zone.
// '1000-01-01' is the earliest DATETIME.
var mysqlDialect = dialect{
	name:       common.MySQLDriver,
	driverName: "mysql",
	quote:      func(s string) string { return "`" + s + "`" },

	createTable: `
		CREATE TABLE IF NOT EXISTS %[1]s (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			locked_until DATETIME(3)     NOT NULL DEFAULT '1000-01-01 00:00:00.000',
			data         LONGBLOB        NOT NULL,
			PRIMARY KEY (id)
		) ENGINE=InnoDB;`,
	dropTable: `DROP TABLE IF EXISTS %[1]s;`,
	insert:    `INSERT INTO %[1]s (data) VALUES (?);`,
	claimSelect: `
		SELECT id
		FROM %[1]s
		WHERE locked_until <= UTC_TIMESTAMP(3)
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED;`,
	claimUpdate: `UPDATE %[1]s SET locked_until = UTC_TIMESTAMP(3) + INTERVAL ? MICROSECOND WHERE id = ?;`,
	selectData:  `SELECT data FROM %[1]s WHERE id = ?;`,
	delete:      `DELETE FROM %[1]s WHERE id = ?;`,
	count:       `SELECT COUNT(*) FROM %[1]s;`,

	registerQueue:   `INSERT IGNORE INTO myqueue_queues (name, created_at) VALUES (?, ?);`,
	unregisterQueue: `DELETE FROM myqueue_queues WHERE name = ?;`,
	selectQueue:     `SELECT name, created_at FROM myqueue_queues WHERE name = ?;`,
	selectQueues:    `SELECT name, created_at FROM myqueue_queues ORDER BY name;`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case common.SQLiteDriver:
		return sqliteDialect, nil
	case common.PostgresDriver:
		return postgresDialect, nil
	case common.MySQLDriver:
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported db driver: %q", driver)
	}
}

// query renders a statement for the given queue table and rebinds it for the driver.
func (d dialect) query(db *sqlx.DB, template string, queueName string) string {
	return db.Rebind(fmt.Sprintf(template, d.quote(queueName)))
}
