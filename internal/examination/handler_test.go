package examination

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/platform/telegram/telegramtest"
	"medcard-bot/internal/session"
)

type fixture struct {
	router *telegram.Router
	rec    *telegramtest.Recorder
	repo   *memRepo
	store  *LocalStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	rec := telegramtest.NewRecorder()
	repo := &memRepo{}

	r := telegram.NewRouter(rec, session.NewMemoryStore(), zap.NewNop())
	RegisterRoutes(r, NewHandler(NewService(repo, store, zap.NewNop())))
	return &fixture{router: r, rec: rec, repo: repo, store: store}
}

func (f *fixture) send(t *testing.T, upd telegram.Update) {
	t.Helper()
	require.NoError(t, f.router.Handle(context.Background(), upd))
}

func (f *fixture) press(t *testing.T, label string) {
	t.Helper()
	data, ok := telegramtest.ButtonData(f.rec.Last().Keyboard, label)
	require.True(t, ok, "button %q not found in %q", label, f.rec.LastText())
	f.send(t, telegramtest.Callback(1, data))
}

func (f *fixture) addWithFile(t *testing.T) {
	t.Helper()
	f.rec.Files["file-1"] = []byte("%PDF-1.4")

	f.send(t, telegramtest.Text(1, menu.ExaminationsAdd))
	f.send(t, telegramtest.Text(1, "МРТ колена"))
	f.send(t, telegramtest.Text(1, "01.02.2024"))
	f.send(t, telegramtest.Text(1, "Без патологий"))
	f.send(t, telegramtest.File(1, "file-1", "mri.pdf", 8))
}

func TestAddWithFile(t *testing.T) {
	f := newFixture(t)

	f.send(t, telegramtest.Text(1, menu.ExaminationsAdd))
	assert.Equal(t, "🩻 Введите название обследования:", f.rec.LastText())
	f.send(t, telegramtest.Text(1, "МРТ колена"))
	f.send(t, telegramtest.Text(1, "1 февраля"))
	assert.Equal(t, "📅 Введите дату обследования (в формате ДД.ММ.ГГГГ):", f.rec.LastText())
	f.send(t, telegramtest.Text(1, "01.02.2024"))
	f.send(t, telegramtest.Text(1, "Без патологий"))

	f.send(t, telegramtest.Text(1, "вот файл"))
	assert.Contains(t, f.rec.Texts()[len(f.rec.Texts())-2], "отправьте файл документом")

	f.send(t, telegramtest.File(1, "huge", "big.zip", form.MaxFileSize+1))
	assert.Contains(t, f.rec.Texts()[len(f.rec.Texts())-2], "Файл слишком большой")
	assert.Empty(t, f.repo.items)

	f.rec.Files["file-1"] = []byte("%PDF-1.4")
	f.send(t, telegramtest.File(1, "file-1", "mri.pdf", 8))
	assert.Equal(t, "✅ Обследование успешно добавлено.", f.rec.LastText())

	require.Len(t, f.repo.items, 1)
	e := f.repo.items[0]
	assert.Equal(t, "МРТ колена", e.Name)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), e.Date)
	assert.Equal(t, "Без патологий", e.Description)
	assert.Equal(t, "mri.pdf", e.FileKey)

	data, err := f.store.Load(context.Background(), "mri.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestAddSkipFile(t *testing.T) {
	f := newFixture(t)

	f.send(t, telegramtest.Text(1, menu.ExaminationsAdd))
	f.send(t, telegramtest.Text(1, "ЭКГ"))
	f.send(t, telegramtest.Text(1, "10.03.2024"))
	f.send(t, telegramtest.Text(1, "Синусовый ритм"))
	f.send(t, telegramtest.Text(1, "/skip"))

	require.Len(t, f.repo.items, 1)
	assert.Empty(t, f.repo.items[0].FileKey)
}

func TestViewAndDownload(t *testing.T) {
	f := newFixture(t)
	f.send(t, telegramtest.Text(1, menu.ExaminationsView))
	assert.Equal(t, "❗ Пока нет доступных обследований.", f.rec.LastText())

	f.addWithFile(t)
	f.send(t, telegramtest.Text(1, menu.ExaminationsView))
	f.press(t, "МРТ колена (01.02.2024)")
	assert.Equal(t, "🔍 <b>МРТ колена</b>\n📅 Дата: 01.02.2024\n📝 Описание: Без патологий", f.rec.LastText())

	f.press(t, "📎 Скачать файл")
	require.Len(t, f.rec.Documents, 1)
	assert.Equal(t, "mri.pdf", f.rec.Documents[0].Name)
	assert.Equal(t, "%PDF-1.4", string(f.rec.Documents[0].Data))

	// someone else's record
	f.send(t, telegramtest.Callback(2, cbDownload+"1"))
	require.Len(t, f.rec.Documents, 1)
	assert.Equal(t, "❗ Файл не найден в базе.", f.rec.Answers[len(f.rec.Answers)-1].Text)
}

func TestEditKeepsSkippedValues(t *testing.T) {
	f := newFixture(t)
	f.addWithFile(t)

	f.send(t, telegramtest.Text(1, menu.ExaminationsEdit))
	f.press(t, "МРТ колена (01.02.2024)")
	assert.Contains(t, f.rec.LastText(), "📝 Текущее описание:\n\nБез патологий")

	f.send(t, telegramtest.Text(1, "/skip"))
	assert.Equal(t, "📎 Прикрепите новый файл или отправьте /skip, чтобы оставить старый.", f.rec.LastText())
	f.send(t, telegramtest.Text(1, "/skip"))
	assert.Equal(t, "✅ Обследование успешно обновлено.", f.rec.LastText())
	assert.Equal(t, "Без патологий", f.repo.items[0].Description)
	assert.Equal(t, "mri.pdf", f.repo.items[0].FileKey)

	f.rec.Files["file-2"] = []byte("v2")
	f.send(t, telegramtest.Text(1, menu.ExaminationsEdit))
	f.press(t, "МРТ колена (01.02.2024)")
	f.send(t, telegramtest.Text(1, "Небольшой выпот"))
	f.send(t, telegramtest.File(1, "file-2", "mri.pdf", 2))
	assert.Equal(t, "Небольшой выпот", f.repo.items[0].Description)
	assert.Equal(t, "mri_1.pdf", f.repo.items[0].FileKey)

	_, err := f.store.Load(context.Background(), "mri.pdf")
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.addWithFile(t)

	f.send(t, telegramtest.Text(1, menu.ExaminationsDelete))
	f.press(t, "МРТ колена (01.02.2024)")
	f.press(t, "❌ Нет, отменить")
	assert.Equal(t, "❌ Удаление отменено.", f.rec.LastText())
	require.Len(t, f.repo.items, 1)

	f.send(t, telegramtest.Text(1, menu.ExaminationsDelete))
	f.press(t, "МРТ колена (01.02.2024)")
	f.press(t, "✅ Да, удалить")
	assert.Equal(t, "✅ Обследование успешно удалено.", f.rec.LastText())
	assert.Empty(t, f.repo.items)

	_, err := f.store.Load(context.Background(), "mri.pdf")
	assert.ErrorIs(t, err, ErrFileMissing)
}
