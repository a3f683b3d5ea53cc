package examination

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type Repository interface {
	Add(ctx context.Context, e *Examination) error
	Get(ctx context.Context, telegramID, id int64) (*Examination, error)
	List(ctx context.Context, telegramID int64) ([]Examination, error)
	Update(ctx context.Context, e *Examination) (bool, error)
	Delete(ctx context.Context, telegramID, id int64) (bool, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const columns = `id, telegram_id, name, examination_date, COALESCE(description, ''), COALESCE(file_path, ''), created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExamination(row scanner) (*Examination, error) {
	var e Examination
	if err := row.Scan(&e.ID, &e.TelegramID, &e.Name, &e.Date, &e.Description, &e.FileKey, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *postgresRepo) Add(ctx context.Context, e *Examination) error {
	query := `INSERT INTO instrumental_examinations (telegram_id, name, examination_date, description, file_path)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, e.TelegramID, e.Name, e.Date, nullable(e.Description), nullable(e.FileKey)).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert examination")
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, telegramID, id int64) (*Examination, error) {
	e, err := scanExamination(r.db.QueryRowContext(ctx, `SELECT `+columns+`
		FROM instrumental_examinations WHERE telegram_id = $1 AND id = $2`, telegramID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get examination")
	}
	return e, nil
}

func (r *postgresRepo) List(ctx context.Context, telegramID int64) ([]Examination, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+`
		FROM instrumental_examinations WHERE telegram_id = $1
		ORDER BY examination_date DESC, id DESC`, telegramID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list examinations")
	}
	defer rows.Close()

	var out []Examination
	for rows.Next() {
		e, err := scanExamination(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan examination")
		}
		out = append(out, *e)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate examinations")
}

// Update overwrites description and file key of the user's record.
func (r *postgresRepo) Update(ctx context.Context, e *Examination) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE instrumental_examinations SET description = $3, file_path = $4
		WHERE telegram_id = $1 AND id = $2`, e.TelegramID, e.ID, nullable(e.Description), nullable(e.FileKey))
	if err != nil {
		return false, errors.Wrap(err, "failed to update examination")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func (r *postgresRepo) Delete(ctx context.Context, telegramID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM instrumental_examinations WHERE telegram_id = $1 AND id = $2`, telegramID, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete examination")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}
