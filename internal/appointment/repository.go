package appointment

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type Repository interface {
	Add(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, telegramID, id int64) (*Appointment, error)
	Doctors(ctx context.Context, telegramID int64) ([]string, error)
	ByDoctor(ctx context.Context, telegramID int64, doctor string) ([]Appointment, error)
	UpdateText(ctx context.Context, telegramID, id int64, text string) (bool, error)
	Delete(ctx context.Context, telegramID, id int64) (bool, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

const columns = `id, telegram_id, appointment_date, doctor, recommendation, created_at`

func (r *postgresRepo) Add(ctx context.Context, a *Appointment) error {
	query := `INSERT INTO doctor_appointments (telegram_id, appointment_date, doctor, recommendation)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, a.TelegramID, a.Date, a.Doctor, a.Text).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert appointment")
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, telegramID, id int64) (*Appointment, error) {
	var a Appointment
	err := r.db.QueryRowContext(ctx, `SELECT `+columns+`
		FROM doctor_appointments WHERE telegram_id = $1 AND id = $2`, telegramID, id).
		Scan(&a.ID, &a.TelegramID, &a.Date, &a.Doctor, &a.Text, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get appointment")
	}
	return &a, nil
}

func (r *postgresRepo) Doctors(ctx context.Context, telegramID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT doctor FROM doctor_appointments
		WHERE telegram_id = $1 ORDER BY doctor`, telegramID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list doctors")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, errors.Wrap(err, "failed to scan doctor")
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate doctors")
}

func (r *postgresRepo) ByDoctor(ctx context.Context, telegramID int64, doctor string) ([]Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+`
		FROM doctor_appointments WHERE telegram_id = $1 AND doctor = $2
		ORDER BY appointment_date DESC, id DESC`, telegramID, doctor)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.TelegramID, &a.Date, &a.Doctor, &a.Text, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan appointment")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate appointments")
}

func (r *postgresRepo) UpdateText(ctx context.Context, telegramID, id int64, text string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE doctor_appointments SET recommendation = $3
		WHERE telegram_id = $1 AND id = $2`, telegramID, id, text)
	return affected(res, err, "failed to update appointment")
}

func (r *postgresRepo) Delete(ctx context.Context, telegramID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM doctor_appointments WHERE telegram_id = $1 AND id = $2`, telegramID, id)
	return affected(res, err, "failed to delete appointment")
}

func affected(res sql.Result, err error, msg string) (bool, error) {
	if err != nil {
		return false, errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}
