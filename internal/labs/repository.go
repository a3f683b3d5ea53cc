package labs

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type Repository interface {
	// catalog
	Groups(ctx context.Context) ([]string, error)
	Names(ctx context.Context, group string) ([]string, error)
	Variants(ctx context.Context, group, name string) ([]CatalogEntry, error)
	Variant(ctx context.Context, id int64) (*CatalogEntry, error)

	// results of one user
	Add(ctx context.Context, r *Result) error
	Get(ctx context.Context, telegramID, id int64) (*Result, error)
	Delete(ctx context.Context, telegramID, id int64) (bool, error)
	Latest(ctx context.Context, telegramID int64) ([]Result, error)
	History(ctx context.Context, telegramID int64) ([]Result, error)
	Dates(ctx context.Context, telegramID int64) ([]time.Time, error)
	ByDate(ctx context.Context, telegramID int64, date time.Time) ([]Result, error)
	ResultGroups(ctx context.Context, telegramID int64) ([]string, error)
	ResultNames(ctx context.Context, telegramID int64, group string) ([]string, error)
	ByName(ctx context.Context, telegramID int64, name string) ([]Result, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const resultColumns = `id, telegram_id, name, group_name, COALESCE(units, ''), COALESCE(reference, ''), result, date, created_at`

func (r *postgresRepo) strings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepo) results(ctx context.Context, query string, args ...interface{}) ([]Result, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(
			&res.ID,
			&res.TelegramID,
			&res.Name,
			&res.Group,
			&res.Units,
			&res.Reference,
			&res.Value,
			&res.Date,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Groups(ctx context.Context) ([]string, error) {
	out, err := r.strings(ctx, `SELECT group_name FROM analyzes_mem GROUP BY group_name ORDER BY MIN(id)`)
	return out, errors.Wrap(err, "failed to list catalog groups")
}

func (r *postgresRepo) Names(ctx context.Context, group string) ([]string, error) {
	out, err := r.strings(ctx,
		`SELECT name FROM analyzes_mem WHERE group_name = $1 GROUP BY name ORDER BY MIN(id)`, group)
	return out, errors.Wrap(err, "failed to list catalog names")
}

func (r *postgresRepo) Variants(ctx context.Context, group, name string) ([]CatalogEntry, error) {
	query := `SELECT id, group_name, name, unit, COALESCE(reference_values, ''), conversion_to_standard,
		standard_unit, COALESCE(standard_reference, '')
		FROM analyzes_mem WHERE group_name = $1 AND name = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, group, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list catalog variants")
	}
	defer rows.Close()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.ID, &e.Group, &e.Name, &e.Unit, &e.Reference, &e.Factor,
			&e.StandardUnit, &e.StandardReference); err != nil {
			return nil, errors.Wrap(err, "failed to scan catalog variant")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate catalog variants")
}

func (r *postgresRepo) Variant(ctx context.Context, id int64) (*CatalogEntry, error) {
	query := `SELECT id, group_name, name, unit, COALESCE(reference_values, ''), conversion_to_standard,
		standard_unit, COALESCE(standard_reference, '')
		FROM analyzes_mem WHERE id = $1`
	var e CatalogEntry
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Group, &e.Name, &e.Unit, &e.Reference,
		&e.Factor, &e.StandardUnit, &e.StandardReference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get catalog variant")
	}
	return &e, nil
}

func (r *postgresRepo) Add(ctx context.Context, res *Result) error {
	query := `INSERT INTO analysis (telegram_id, name, group_name, units, reference, result, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		res.TelegramID, res.Name, res.Group, res.Units, res.Reference, res.Value, res.Date,
	).Scan(&res.ID, &res.CreatedAt)
	return errors.Wrap(err, "failed to insert lab result")
}

func (r *postgresRepo) Get(ctx context.Context, telegramID, id int64) (*Result, error) {
	out, err := r.results(ctx, `SELECT `+resultColumns+` FROM analysis WHERE telegram_id = $1 AND id = $2`, telegramID, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lab result")
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *postgresRepo) Delete(ctx context.Context, telegramID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analysis WHERE telegram_id = $1 AND id = $2`, telegramID, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete lab result")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// Latest returns the most recent result per analysis name.
func (r *postgresRepo) Latest(ctx context.Context, telegramID int64) ([]Result, error) {
	out, err := r.results(ctx, `SELECT DISTINCT ON (name) `+resultColumns+`
		FROM analysis WHERE telegram_id = $1
		ORDER BY name, date DESC, id DESC`, telegramID)
	return out, errors.Wrap(err, "failed to list latest lab results")
}

// History returns every result ordered by name, newest first within a name.
func (r *postgresRepo) History(ctx context.Context, telegramID int64) ([]Result, error) {
	out, err := r.results(ctx, `SELECT `+resultColumns+`
		FROM analysis WHERE telegram_id = $1
		ORDER BY name, date DESC, id DESC`, telegramID)
	return out, errors.Wrap(err, "failed to list lab history")
}

func (r *postgresRepo) Dates(ctx context.Context, telegramID int64) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT date FROM analysis WHERE telegram_id = $1 ORDER BY date DESC`, telegramID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lab dates")
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, errors.Wrap(err, "failed to scan lab date")
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate lab dates")
}

func (r *postgresRepo) ByDate(ctx context.Context, telegramID int64, date time.Time) ([]Result, error) {
	out, err := r.results(ctx, `SELECT `+resultColumns+`
		FROM analysis WHERE telegram_id = $1 AND date = $2
		ORDER BY group_name, name, id`, telegramID, date)
	return out, errors.Wrap(err, "failed to list lab results by date")
}

func (r *postgresRepo) ResultGroups(ctx context.Context, telegramID int64) ([]string, error) {
	out, err := r.strings(ctx,
		`SELECT DISTINCT group_name FROM analysis WHERE telegram_id = $1 ORDER BY group_name`, telegramID)
	return out, errors.Wrap(err, "failed to list lab groups")
}

func (r *postgresRepo) ResultNames(ctx context.Context, telegramID int64, group string) ([]string, error) {
	out, err := r.strings(ctx,
		`SELECT DISTINCT name FROM analysis WHERE telegram_id = $1 AND group_name = $2 ORDER BY name`,
		telegramID, group)
	return out, errors.Wrap(err, "failed to list lab names")
}

func (r *postgresRepo) ByName(ctx context.Context, telegramID int64, name string) ([]Result, error) {
	out, err := r.results(ctx, `SELECT `+resultColumns+`
		FROM analysis WHERE telegram_id = $1 AND name = $2
		ORDER BY date DESC, id DESC`, telegramID, name)
	return out, errors.Wrap(err, "failed to list lab results by name")
}
