package nutrition

import (
	"context"
	"errors"

	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/profile"
)

type ProfileReader interface {
	Get(ctx context.Context, telegramID int64) (*profile.Profile, error)
}

type Handler struct {
	profiles ProfileReader
}

func NewHandler(profiles ProfileReader) *Handler {
	return &Handler{profiles: profiles}
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Nutrition, h.Recommend)
}

func (h *Handler) Recommend(ctx context.Context, c *telegram.Context) error {
	p, err := h.profiles.Get(ctx, c.UserID())
	if errors.Is(err, profile.ErrNotFound) {
		return c.Reply(ctx, "❗️ Данных не найдено. Сначала заполните профиль через "+menu.Profile+".", menu.Main())
	}
	if err != nil {
		return err
	}
	if p.Weight == nil || *p.Weight <= 0 {
		return c.Reply(ctx, "⚠️ Вес не указан. Пожалуйста, обновите его в разделе "+menu.Profile+
			" → "+menu.ProfileEdit+" → Вес.", menu.Main())
	}

	m := Calculate(*p.Weight, p.Goal)
	return c.Reply(ctx, m.Summary(), menu.Main())
}
