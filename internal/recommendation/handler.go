package recommendation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/platform/telegram"
)

const (
	cbCategory = "rec_cat|"
	cbBack     = "rec_back"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Recommendations, h.Categories)
	r.Callback(cbCategory, h.Category)
	r.Callback(cbBack, h.Categories)
}

func (h *Handler) Categories(ctx context.Context, c *telegram.Context) error {
	cats, err := h.repo.Categories(ctx, c.UserID())
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return c.Reply(ctx, "У вас пока нет рекомендаций.", nil)
	}
	kb := &telegram.Keyboard{}
	for i, cat := range cats {
		kb.AddRow(telegram.Button{Text: cat, Data: cbCategory + strconv.Itoa(i)})
	}
	return c.Reply(ctx, "Выберите категорию рекомендаций:", kb)
}

func (h *Handler) Category(ctx context.Context, c *telegram.Context) error {
	cats, err := h.repo.Categories(ctx, c.UserID())
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(c.Arg(cbCategory))
	if err != nil || i < 0 || i >= len(cats) {
		return c.Answer(ctx, form.StaleText, true)
	}

	recs, err := h.repo.ByCategory(ctx, c.UserID(), cats[i])
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return c.Answer(ctx, "Нет рекомендаций в этой категории.", true)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 Рекомендации: %s</b>\n", telegram.Escape(cats[i]))
	for n, rec := range recs {
		fmt.Fprintf(&b, "\n%d. %s <i>(%s)</i>", n+1, telegram.Escape(rec.Text), dateparse.Format(rec.CreatedAt))
	}
	return c.Reply(ctx, b.String(), telegram.InlineRow(telegram.Button{Text: "◀️ Назад", Data: cbBack}))
}
