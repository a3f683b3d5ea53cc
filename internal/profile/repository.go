package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

type Repository interface {
	Get(ctx context.Context, telegramID int64) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	UpdateField(ctx context.Context, telegramID int64, field Field, value interface{}) error
	Delete(ctx context.Context, telegramID int64) (bool, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Get(ctx context.Context, telegramID int64) (*Profile, error) {
	query := `SELECT telegram_id, username, full_name, goal, sport, height, weight, smoking, alcohol,
		diseases, heredity, symptoms, created_at, updated_at
		FROM user_data WHERE telegram_id = $1`

	var (
		p                               Profile
		username, fullName, goal, sport sql.NullString
		smoking, alcohol, diseases      sql.NullString
		heredity, symptoms              sql.NullString
		height, weight                  sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(
		&p.TelegramID,
		&username,
		&fullName,
		&goal,
		&sport,
		&height,
		&weight,
		&smoking,
		&alcohol,
		&diseases,
		&heredity,
		&symptoms,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get profile")
	}

	p.Username = username.String
	p.FullName = fullName.String
	p.Goal = goal.String
	p.Sport = sport.String
	p.Smoking = smoking.String
	p.Alcohol = alcohol.String
	p.Diseases = diseases.String
	p.Heredity = heredity.String
	p.Symptoms = symptoms.String
	if height.Valid {
		p.Height = &height.Float64
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	return &p, nil
}

// Upsert stores the whole questionnaire; entering data again overwrites it.
func (r *postgresRepo) Upsert(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO user_data (telegram_id, username, full_name, goal, sport, height, weight,
			smoking, alcohol, diseases, heredity, symptoms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = $2,
			full_name = $3,
			goal = $4,
			sport = $5,
			height = $6,
			weight = $7,
			smoking = $8,
			alcohol = $9,
			diseases = $10,
			heredity = $11,
			symptoms = $12,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		p.TelegramID, p.Username, p.FullName, p.Goal, p.Sport, p.Height, p.Weight,
		p.Smoking, p.Alcohol, p.Diseases, p.Heredity, p.Symptoms)
	if err != nil {
		return errors.Wrap(err, "failed to upsert profile")
	}
	return nil
}

func (r *postgresRepo) UpdateField(ctx context.Context, telegramID int64, field Field, value interface{}) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("unknown profile field %q", field)
	}

	query := `UPDATE user_data SET ` + column + ` = $1, updated_at = NOW() WHERE telegram_id = $2`
	res, err := r.db.ExecContext(ctx, query, value, telegramID)
	if err != nil {
		return errors.Wrapf(err, "failed to update profile %s", column)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, telegramID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_data WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete profile")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}
