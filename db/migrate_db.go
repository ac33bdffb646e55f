package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"go.uber.org/zap"
)

const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// migrateLogger adapts the sugared logger to migrate.Logger.
type migrateLogger struct {
	*zap.SugaredLogger
	verbose bool
}

func (ml migrateLogger) Verbose() bool {
	return ml.verbose
}

func (ml migrateLogger) Printf(format string, v ...interface{}) {
	ml.Infof(format, v...)
}

// PerformDbMigration applies (up) or rolls back one step (down) of the SQL
// migrations found at pathToMigrationFiles, a migrate source URL such as
// "file://db/migrations".
func PerformDbMigration(databaseConn *sql.DB, log *zap.SugaredLogger, pathToMigrationFiles string, direction string) error {
	log.Infow("starting proposal export service db migration", "direction", direction)

	driver, err := postgres.WithInstance(databaseConn, &postgres.Config{})
	if err != nil {
		log.Errorw("unable to get postgres driver from database connection", "error", err)
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(pathToMigrationFiles, "postgres", driver)
	if err != nil {
		log.Errorw("unable to initialize database migration util", "error", err)
		return err
	}

	m.Log = migrateLogger{SugaredLogger: log, verbose: log.Desugar().Core().Enabled(zap.DebugLevel)}

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("invalid migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("db migration resulted in no changes")
	} else if err != nil {
		log.Errorw("db migration resulted in an error", "error", err)
		return err
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Infow("db migration finished", "version", version, "dirty", dirty)
	}
	return nil
}
