package labs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/platform/telegram/telegramtest"
	"medcard-bot/internal/session"
)

type fixture struct {
	router   *telegram.Router
	rec      *telegramtest.Recorder
	repo     *memRepo
	renderer *fakeRenderer
}

func newFixture() *fixture {
	rec := telegramtest.NewRecorder()
	repo := newMemRepo()
	renderer := &fakeRenderer{}
	now := func() time.Time { return time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC) }

	r := telegram.NewRouter(rec, session.NewMemoryStore(), zap.NewNop())
	RegisterRoutes(r, NewHandler(NewService(repo, renderer, zap.NewNop()), now))
	return &fixture{router: r, rec: rec, repo: repo, renderer: renderer}
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

func TestAddLoop(t *testing.T) {
	f := newFixture()

	f.send(t, telegramtest.Text(1, menu.LabsAdd))
	f.send(t, telegramtest.Text(1, "когда-то"))
	assert.Contains(t, f.rec.Texts()[len(f.rec.Texts())-2], "Не удалось распознать дату")

	f.send(t, telegramtest.Text(1, "вчера"))
	assert.Equal(t, "Выберите группу анализа:", f.rec.LastText())

	f.press(t, "Биохимия")
	assert.Equal(t, "Группа: Биохимия. Выберите анализ:", f.rec.LastText())
	f.press(t, "Глюкоза")
	f.press(t, "мг/дл (70-99)")
	assert.Contains(t, f.rec.LastText(), "Вы выбрали: Глюкоза, мг/дл (70-99).")

	f.send(t, telegramtest.Text(1, "-1"))
	assert.Empty(t, f.repo.results)

	f.send(t, telegramtest.Text(1, "100"))
	require.Len(t, f.repo.results, 1)
	assert.Contains(t, f.rec.LastText(), "✅ Сохранено: Глюкоза = 🔴5.55 ммоль/л.")
	assert.Equal(t, day("2024-05-12"), f.repo.results[0].Date)

	// loop continues on the same date; back returns to groups
	f.press(t, "Общий анализ крови")
	f.press(t, "⬅️ Назад")
	assert.Equal(t, "Выберите группу анализа:", f.rec.LastText())
	f.press(t, "Общий анализ крови")
	f.press(t, "Гемоглобин")
	f.press(t, "г/л (120-160)")
	f.send(t, telegramtest.Text(1, "135,5"))
	require.Len(t, f.repo.results, 2)
	assert.Equal(t, 135.5, f.repo.results[1].Value)
	assert.Equal(t, day("2024-05-12"), f.repo.results[1].Date)

	f.press(t, "✅ Закончить ввод")
	assert.Equal(t, "Ввод анализов завершён.", f.rec.LastText())
}

func seed(f *fixture) {
	ctx := context.Background()
	_ = f.repo.Add(ctx, &Result{TelegramID: 1, Name: "Гемоглобин", Group: "Общий анализ крови", Units: "г/л", Reference: "120-160", Value: 110, Date: day("2024-01-10")})
	_ = f.repo.Add(ctx, &Result{TelegramID: 1, Name: "Гемоглобин", Group: "Общий анализ крови", Units: "г/л", Reference: "120-160", Value: 140, Date: day("2024-05-12")})
	_ = f.repo.Add(ctx, &Result{TelegramID: 1, Name: "Глюкоза", Group: "Биохимия", Units: "ммоль/л", Reference: "3.9-5.5", Value: 6.1, Date: day("2024-05-12")})
	_ = f.repo.Add(ctx, &Result{TelegramID: 2, Name: "Глюкоза", Group: "Биохимия", Units: "ммоль/л", Reference: "3.9-5.5", Value: 5, Date: day("2024-05-12")})
}

func TestView(t *testing.T) {
	f := newFixture()
	seed(f)

	f.send(t, telegramtest.Text(1, menu.LabsView))
	f.press(t, "Все анализы")
	f.press(t, "Сообщением")
	out := f.rec.LastText()
	assert.Contains(t, out, "🟢Гемоглобин = 140 г/л (12.05.2024)")
	assert.Contains(t, out, "🔴Глюкоза = 6.1 ммоль/л (12.05.2024)")
	assert.NotContains(t, out, "110")

	f.send(t, telegramtest.Text(1, menu.LabsView))
	f.press(t, "Все анализы")
	f.press(t, "PDF")
	require.Len(t, f.rec.Documents, 1)
	assert.Equal(t, "all_analyses.pdf", f.rec.Documents[0].Name)
	require.Len(t, f.renderer.rows, 2)
	require.NotNil(t, f.renderer.rows[0].Previous)

	f.send(t, telegramtest.Text(1, menu.LabsView))
	f.press(t, "По дате сдачи")
	f.press(t, "10.01.2024")
	assert.Contains(t, f.rec.LastText(), "Гемоглобин = 🔴110 г/л (120-160)")

	f.send(t, telegramtest.Text(1, menu.LabsView))
	f.press(t, "Динамика")
	f.press(t, "Общий анализ крови")
	f.press(t, "Гемоглобин")
	out = f.rec.LastText()
	assert.Contains(t, out, "📅 12.05.2024: 🟢140 г/л (Референс: 120-160)")
	assert.Contains(t, out, "📅 10.01.2024: 🔴110 г/л (Референс: 120-160)")
}

func TestView_Empty(t *testing.T) {
	f := newFixture()
	f.send(t, telegramtest.Text(1, menu.LabsView))
	f.press(t, "Все анализы")
	f.press(t, "Сообщением")
	assert.Equal(t, "У вас нет ни одного анализа.", f.rec.LastText())
}

func TestDelete(t *testing.T) {
	f := newFixture()
	seed(f)

	f.send(t, telegramtest.Text(1, menu.LabsDelete))
	f.press(t, "Общий анализ крови")
	f.press(t, "Гемоглобин")
	f.press(t, "10.01.2024: 110 г/л")
	assert.Equal(t, "Удалить анализ «Гемоглобин» от 10.01.2024?", f.rec.LastText())

	f.press(t, "❌ Нет")
	assert.Len(t, f.repo.results, 4)

	f.send(t, telegramtest.Text(1, menu.LabsDelete))
	f.press(t, "Общий анализ крови")
	f.press(t, "Гемоглобин")
	f.press(t, "10.01.2024: 110 г/л")
	f.press(t, "✅ Да")
	assert.Equal(t, "✅ Анализ успешно удалён.", f.rec.LastText())
	assert.Len(t, f.repo.results, 3)
}

func TestDelete_ForeignRecord(t *testing.T) {
	f := newFixture()
	seed(f)

	// record 4 belongs to user 2
	f.send(t, telegramtest.Callback(1, cbDelOK+"4"))
	assert.Equal(t, "Запись не найдена.", f.rec.LastText())
	assert.Len(t, f.repo.results, 4)
}
