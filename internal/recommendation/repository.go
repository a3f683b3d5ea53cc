package recommendation

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type Repository interface {
	Add(ctx context.Context, r *Recommendation) error
	// Replace drops the user's recommendations in r.Category and stores r.
	Replace(ctx context.Context, r *Recommendation) error
	Categories(ctx context.Context, telegramID int64) ([]string, error)
	ByCategory(ctx context.Context, telegramID int64, category string) ([]Recommendation, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const insertQuery = `INSERT INTO recommendations (telegram_id, category, text)
	VALUES ($1, $2, $3) RETURNING id, created_at`

func (r *postgresRepo) Add(ctx context.Context, rec *Recommendation) error {
	err := r.db.QueryRowContext(ctx, insertQuery, rec.TelegramID, rec.Category, rec.Text).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert recommendation")
	}
	return nil
}

func (r *postgresRepo) Replace(ctx context.Context, rec *Recommendation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE telegram_id = $1 AND category = $2`,
		rec.TelegramID, rec.Category); err != nil {
		return errors.Wrap(err, "failed to delete recommendations")
	}
	if err := tx.QueryRowContext(ctx, insertQuery, rec.TelegramID, rec.Category, rec.Text).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to insert recommendation")
	}
	return errors.Wrap(tx.Commit(), "failed to commit recommendation")
}

// Categories are ordered by their first recommendation.
func (r *postgresRepo) Categories(ctx context.Context, telegramID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category FROM recommendations
		WHERE telegram_id = $1 GROUP BY category ORDER BY MIN(created_at), category`, telegramID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recommendation categories")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrap(err, "failed to scan category")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate categories")
}

func (r *postgresRepo) ByCategory(ctx context.Context, telegramID int64, category string) ([]Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, telegram_id, category, text, created_at
		FROM recommendations WHERE telegram_id = $1 AND category = $2
		ORDER BY created_at, id`, telegramID, category)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recommendations")
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(&rec.ID, &rec.TelegramID, &rec.Category, &rec.Text, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan recommendation")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate recommendations")
}
