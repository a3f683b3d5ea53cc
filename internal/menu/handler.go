package menu

import (
	"context"
	"fmt"

	"medcard-bot/internal/platform/telegram"
)

// RegisterRoutes wires /start, the back button and the fallback reply.
func RegisterRoutes(r *telegram.Router) {
	r.Command("start", Start)
	r.Text(Back, ToMain)
	r.Fallback(Fallback)
}

func Start(ctx context.Context, c *telegram.Context) error {
	name := c.Update.DisplayName()
	if name == "" {
		name = "друг"
	}
	text := fmt.Sprintf("👋 Привет, %s! Я помогу вам вести вашу медицинскую карту.\n\n"+
		"Здесь вы можете ввести свои данные, следить за анализами, получать рекомендации по питанию и многое другое. "+
		"Чтобы начать, выберите одну из опций в главном меню ниже.", telegram.Escape(name))
	return c.Reply(ctx, text, Main())
}

func ToMain(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "Главное меню:", Main())
}

// Fallback answers input that no flow is waiting for.
func Fallback(ctx context.Context, c *telegram.Context) error {
	if c.Update.IsCallback() {
		return c.Answer(ctx, "Эта кнопка больше не активна.", true)
	}
	return c.Reply(ctx, "Не понимаю команду. Выберите действие в меню ниже.", Main())
}
