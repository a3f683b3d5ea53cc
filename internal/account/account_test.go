package account

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/platform/telegram/telegramtest"
	"medcard-bot/internal/session"
)

type fakeRepo struct {
	purged []int64
	keys   []string
	err    error
}

func (f *fakeRepo) Purge(_ context.Context, telegramID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.purged = append(f.purged, telegramID)
	return f.keys, nil
}

type fakeFiles struct {
	removed []string
}

func (f *fakeFiles) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	if key == "broken.pdf" {
		return errors.New("permission denied")
	}
	return nil
}

type fixture struct {
	router *telegram.Router
	rec    *telegramtest.Recorder
	repo   *fakeRepo
	files  *fakeFiles
}

func newFixture() *fixture {
	rec := telegramtest.NewRecorder()
	repo := &fakeRepo{keys: []string{"mri.pdf", "broken.pdf"}}
	files := &fakeFiles{}
	r := telegram.NewRouter(rec, session.NewMemoryStore(), zap.NewNop())
	RegisterRoutes(r, NewHandler(NewService(repo, files, zap.NewNop())))
	return &fixture{router: r, rec: rec, repo: repo, files: files}
}

func (f *fixture) send(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, f.router.Handle(context.Background(), telegramtest.Text(1, text)))
}

func TestDeleteAll_RequiresExactPhrase(t *testing.T) {
	for _, answer := range []string{"да", "ПОДТВЕРЖДАЮ!", "подтверждаю всё", ""} {
		f := newFixture()
		f.send(t, menu.DeleteAll)
		assert.Contains(t, f.rec.LastText(), "<b>ПОДТВЕРЖДАЮ</b>")

		f.send(t, answer)
		assert.Equal(t, "🚫 Удаление отменено.", f.rec.LastText(), "answer %q", answer)
		assert.Empty(t, f.repo.purged)

		// the flow is over, the phrase alone does nothing now
		f.send(t, ConfirmPhrase)
		assert.Empty(t, f.repo.purged)
	}
}

func TestDeleteAll_Confirmed(t *testing.T) {
	for _, answer := range []string{"ПОДТВЕРЖДАЮ", "подтверждаю", "  Подтверждаю "} {
		f := newFixture()
		f.send(t, menu.DeleteAll)
		f.send(t, answer)

		assert.Equal(t, "🔍 Все ваши данные были успешно удалены.", f.rec.LastText())
		assert.Equal(t, []int64{1}, f.repo.purged)
		assert.Equal(t, []string{"mri.pdf", "broken.pdf"}, f.files.removed)
	}
}

func TestDeleteAll_MenuLabelAbandons(t *testing.T) {
	f := newFixture()
	f.send(t, menu.DeleteAll)
	f.send(t, menu.DeleteAll)
	f.send(t, "подтверждаю")
	assert.Equal(t, []int64{1}, f.repo.purged)
}

func TestDeleteAll_StorageFailureKeepsPrompt(t *testing.T) {
	f := newFixture()
	f.repo.err = errors.New("connection refused")
	f.send(t, menu.DeleteAll)

	err := f.router.Handle(context.Background(), telegramtest.Text(1, ConfirmPhrase))
	assert.Error(t, err)
	assert.Equal(t, telegram.FailureText, f.rec.LastText())

	f.repo.err = nil
	f.send(t, ConfirmPhrase)
	assert.Equal(t, []int64{1}, f.repo.purged)
}

func TestRepository_PurgeInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM instrumental_examinations")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("mri.pdf"))
	for _, table := range tables {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table + " WHERE telegram_id = $1")).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	keys, err := NewRepository(db).Purge(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"mri.pdf"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PurgeRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT file_path").WillReturnRows(sqlmock.NewRows([]string{"file_path"}))
	mock.ExpectExec("DELETE FROM analysis").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM doctor_appointments").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err = NewRepository(db).Purge(context.Background(), 7)
	assert.ErrorContains(t, err, "failed to delete from doctor_appointments")
	assert.NoError(t, mock.ExpectationsWereMet())
}
