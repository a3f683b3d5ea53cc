package labs

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

var resultCols = []string{"id", "telegram_id", "name", "group_name", "units", "reference", "result", "date", "created_at"}

func TestRepository_Variant(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM analyzes_mem WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_name", "name", "unit", "reference_values",
			"conversion_to_standard", "standard_unit", "standard_reference"}).
			AddRow(int64(2), "Биохимия", "Глюкоза", "мг/дл", "70-99", 0.0555, "ммоль/л", "3.9-5.5"))

	e, err := repo.Variant(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0555, e.Factor)
	assert.Equal(t, "ммоль/л", e.StandardUnit)

	mock.ExpectQuery("FROM analyzes_mem").WillReturnError(sql.ErrNoRows)
	_, err = repo.Variant(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Add(t *testing.T) {
	repo, mock := newMock(t)
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
	created := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO analysis")).
		WithArgs(int64(7), "Глюкоза", "Биохимия", "ммоль/л", "3.9-5.5", 5.55, date).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	r := &Result{TelegramID: 7, Name: "Глюкоза", Group: "Биохимия", Units: "ммоль/л", Reference: "3.9-5.5", Value: 5.55, Date: date}
	require.NoError(t, repo.Add(context.Background(), r))
	assert.Equal(t, int64(11), r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LatestScopedByUser(t *testing.T) {
	repo, mock := newMock(t)
	date := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (name)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(resultCols).
			AddRow(int64(1), int64(7), "Гемоглобин", "Общий анализ крови", "г/л", "120-160", 140.0, date, date).
			AddRow(int64(3), int64(7), "Глюкоза", "Биохимия", "ммоль/л", "3.9-5.5", 6.1, date, date))

	out, err := repo.Latest(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, InRange, out[0].Status())
	assert.Equal(t, OutOfRange, out[1].Status())
}

func TestRepository_GetAndDeleteScoped(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM analysis WHERE telegram_id = $1 AND id = $2")).
		WithArgs(int64(7), int64(9)).
		WillReturnRows(sqlmock.NewRows(resultCols))
	_, err := repo.Get(context.Background(), 7, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM analysis WHERE telegram_id = $1 AND id = $2")).
		WithArgs(int64(7), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err := repo.Delete(context.Background(), 7, 9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Groups(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT group_name FROM analyzes_mem")).
		WillReturnRows(sqlmock.NewRows([]string{"group_name"}).AddRow("Общий анализ крови").AddRow("Биохимия"))

	groups, err := repo.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Общий анализ крови", "Биохимия"}, groups)
}
