package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const connectAttempts = 10

// Open connects to Postgres, retrying while the database is still starting up.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	for i := 0; i < connectAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			log.Info("connected to database")
			return db, nil
		}
		log.Warn("waiting for database", zap.Int("attempt", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}
	db.Close()
	return nil, errors.Wrapf(err, "database unreachable after %d attempts", connectAttempts)
}

// MigrateUp applies all pending migrations from source.
func MigrateUp(source, dsn string, log *zap.Logger) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return errors.Wrap(err, "migration init failed")
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migration up failed")
	}
	log.Info("migrations applied", zap.String("source", source))
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(source, dsn string, steps int, log *zap.Logger) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return errors.Wrap(err, "migration init failed")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migration down failed")
	}
	log.Info("migrations rolled back", zap.Int("steps", steps))
	return nil
}
