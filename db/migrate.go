package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	mysqlmigrate "github.com/golang-migrate/migrate/v4/database/mysql"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/kotas/myqueue/common"
	"github.com/kotas/myqueue/configs"
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations creates the queues registry. Queue tables themselves are created by QueueRepo.CreateQueue,
// as their names are only known at runtime.
func RunMigrations(dbConfig *configs.DBConfig) error {
	d, err := dialectFor(dbConfig.Driver)
	if err != nil {
		return err
	}

	// migrate closes the instance it was given, so it gets its own pool
	dsn, err := DataSourceName(dbConfig)
	if err != nil {
		return err
	}
	sqlDB, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}

	var dbDriver database.Driver
	switch d.name {
	case common.SQLiteDriver:
		dbDriver, err = sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{})
	case common.PostgresDriver:
		dbDriver, err = pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	case common.MySQLDriver:
		dbDriver, err = mysqlmigrate.WithInstance(sqlDB, &mysqlmigrate.Config{})
	}
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+d.name)
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("open migrations source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, d.name, dbDriver)
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("driver", d.name).Msg("no migrations to run")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Str("driver", d.name).Msg("migrations applied successfully")
	return nil
}
