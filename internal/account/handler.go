package account

import (
	"context"
	"strings"

	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
)

const (
	// ConfirmPhrase must be typed, in any letter case, to delete everything.
	ConfirmPhrase = "ПОДТВЕРЖДАЮ"

	stateConfirm = "account:delete"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.DeleteAll, h.Start)
	r.State(stateConfirm, h.Confirm)
}

func (h *Handler) Start(ctx context.Context, c *telegram.Context) error {
	c.Session.State = stateConfirm
	return c.Reply(ctx, "🚨 <b>ВСЕ ВАШИ ДАННЫЕ будут УДАЛЕНЫ!</b>\n\n"+
		"Чтобы подтвердить, введите: <b>"+ConfirmPhrase+"</b>\n\n"+
		"Если передумали, напишите что угодно другое.", nil)
}

func (h *Handler) Confirm(ctx context.Context, c *telegram.Context) error {
	if c.Update.Document != nil || strings.ToUpper(c.Text()) != ConfirmPhrase {
		c.Session.Reset()
		return c.Reply(ctx, "🚫 Удаление отменено.", menu.Main())
	}
	if err := h.svc.DeleteAll(ctx, c.UserID()); err != nil {
		return err
	}
	c.Session.Reset()
	return c.Reply(ctx, "🔍 Все ваши данные были успешно удалены.", menu.Main())
}
