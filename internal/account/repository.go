package account

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// tables holding per-user rows; user_data goes last.
var tables = []string{
	"analysis",
	"doctor_appointments",
	"instrumental_examinations",
	"recommendations",
	"user_data",
}

type Repository interface {
	// Purge deletes every row of the user in one transaction and returns the
	// keys of the examination files that were referenced.
	Purge(ctx context.Context, telegramID int64) ([]string, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Purge(ctx context.Context, telegramID int64) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT file_path FROM instrumental_examinations
		WHERE telegram_id = $1 AND file_path IS NOT NULL AND file_path <> ''`, telegramID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list examination files")
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan examination file")
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate examination files")
	}

	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t+` WHERE telegram_id = $1`, telegramID); err != nil {
			return nil, errors.Wrapf(err, "failed to delete from %s", t)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit purge")
	}
	return keys, nil
}
