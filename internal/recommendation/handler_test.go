package recommendation

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

func TestCategories(t *testing.T) {
	ctx := context.Background()
	rec := telegramtest.NewRecorder()
	repo := &memRepo{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	r := telegram.NewRouter(rec, session.NewMemoryStore(), zap.NewNop())
	RegisterRoutes(r, NewHandler(repo))

	require.NoError(t, r.Handle(ctx, telegramtest.Text(1, menu.Recommendations)))
	assert.Equal(t, "У вас пока нет рекомендаций.", rec.LastText())

	_ = repo.Add(ctx, &Recommendation{TelegramID: 1, Category: CategoryNutrition, Text: "Больше белка"})
	_ = repo.Add(ctx, &Recommendation{TelegramID: 1, Category: CategoryLabs, Text: "Пересдать <глюкозу>"})
	_ = repo.Add(ctx, &Recommendation{TelegramID: 1, Category: CategoryLabs, Text: "Проверить ферритин"})
	_ = repo.Add(ctx, &Recommendation{TelegramID: 2, Category: "Сон", Text: "чужое"})

	require.NoError(t, r.Handle(ctx, telegramtest.Text(1, menu.Recommendations)))
	assert.Equal(t, "Выберите категорию рекомендаций:", rec.LastText())
	assert.Len(t, telegramtest.InlineData(rec.Last().Keyboard), 2)

	data, ok := telegramtest.ButtonData(rec.Last().Keyboard, CategoryLabs)
	require.True(t, ok)
	require.NoError(t, r.Handle(ctx, telegramtest.Callback(1, data)))
	assert.Equal(t, "<b>📊 Рекомендации: Анализы</b>\n"+
		"\n1. Пересдать &lt;глюкозу&gt; <i>(01.05.2024)</i>"+
		"\n2. Проверить ферритин <i>(01.05.2024)</i>", rec.LastText())

	back, ok := telegramtest.ButtonData(rec.Last().Keyboard, "◀️ Назад")
	require.True(t, ok)
	require.NoError(t, r.Handle(ctx, telegramtest.Callback(1, back)))
	assert.Equal(t, "Выберите категорию рекомендаций:", rec.LastText())

	require.NoError(t, r.Handle(ctx, telegramtest.Callback(1, cbCategory+"9")))
	assert.True(t, rec.Answers[len(rec.Answers)-1].Alert)
}
