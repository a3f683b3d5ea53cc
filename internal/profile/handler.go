package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/telegram"
)

const (
	stateEditPick = "profile:edit"
	stateDelete   = "profile:delete"

	editPrefix = "profile_edit|"
)

type Handler struct {
	svc   Service
	entry *form.Form
	edits map[Field]*form.Form
}

func NewHandler(svc Service) *Handler {
	entry := EntryForm()
	return &Handler{svc: svc, entry: entry, edits: EditForms(entry)}
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Profile, h.Menu)
	r.Text(menu.ProfileEnter, h.StartEntry)
	r.Text(menu.ProfileView, h.View)
	r.Text(menu.ProfileEdit, h.StartEdit)
	r.Text(menu.ProfileDelete, h.StartDelete)

	r.State(h.entry.StatePrefix(), h.Entry)
	r.Callback(h.entry.CallbackPrefix(), h.Entry)

	r.Callback(editPrefix, h.PickField)
	for field, f := range h.edits {
		r.State(f.StatePrefix(), h.editValue(field))
		r.Callback(f.CallbackPrefix(), h.editValue(field))
	}

	r.State(stateDelete, h.ConfirmDelete)
}

func (h *Handler) Menu(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "🔒 В этом разделе вы можете ввести свои данные, отредактировать их или удалить, если это необходимо.\n\n"+
		"Выберите действие, которое хотите выполнить:", menu.ProfileMenu())
}

func (h *Handler) StartEntry(ctx context.Context, c *telegram.Context) error {
	p, err := h.entry.Start(ctx, c.Session)
	if err != nil {
		return err
	}
	return form.Ask(ctx, c, p)
}

func (h *Handler) Entry(ctx context.Context, c *telegram.Context) error {
	out, err := h.entry.Handle(ctx, c.Session, form.InputOf(c.Update))
	if errors.Is(err, form.ErrNotActive) {
		return c.Answer(ctx, form.StaleText, true)
	}
	if err != nil {
		return err
	}
	if !out.Done {
		return form.Reply(ctx, c, out)
	}

	c.ClearKeyboard(ctx)
	p := FromValues(c.UserID(), username(c.Update), out.Values)
	if err := h.svc.Save(ctx, p); err != nil {
		return err
	}
	c.Session.Reset()
	return c.Reply(ctx, "Ваши данные были успешно сохранены!", menu.Main())
}

func (h *Handler) View(ctx context.Context, c *telegram.Context) error {
	p, err := h.svc.Get(ctx, c.UserID())
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Данные не найдены. Пожалуйста, сначала введите ваши данные.", menu.ProfileMenu())
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, Summary(p), menu.ProfileMenu())
}

func (h *Handler) StartEdit(ctx context.Context, c *telegram.Context) error {
	if _, err := h.svc.Get(ctx, c.UserID()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Reply(ctx, "Данные не найдены. Пожалуйста, сначала введите ваши данные.", menu.ProfileMenu())
		}
		return err
	}

	buttons := make([]telegram.Button, 0, len(Fields))
	for _, f := range Fields {
		buttons = append(buttons, telegram.Button{Text: f.Title(), Data: editPrefix + string(f)})
	}
	c.Session.State = stateEditPick
	return c.Reply(ctx, "Выберите, какое поле вы хотите отредактировать:", telegram.InlineColumn(buttons...))
}

func (h *Handler) PickField(ctx context.Context, c *telegram.Context) error {
	field := Field(c.Arg(editPrefix))
	f, ok := h.edits[field]
	if !ok || c.Session.State != stateEditPick {
		return c.Answer(ctx, form.StaleText, true)
	}
	c.ClearKeyboard(ctx)
	p, err := f.Start(ctx, c.Session)
	if err != nil {
		return err
	}
	return form.Ask(ctx, c, p)
}

func (h *Handler) editValue(field Field) telegram.HandlerFunc {
	return func(ctx context.Context, c *telegram.Context) error {
		out, err := h.edits[field].Handle(ctx, c.Session, form.InputOf(c.Update))
		if errors.Is(err, form.ErrNotActive) {
			return c.Answer(ctx, form.StaleText, true)
		}
		if err != nil {
			return err
		}
		if !out.Done {
			return form.Reply(ctx, c, out)
		}

		c.ClearKeyboard(ctx)
		value := out.Values[string(field)]
		_, err = h.svc.UpdateField(ctx, c.UserID(), field, value)
		c.Session.Reset()
		if errors.Is(err, ErrNotFound) {
			return c.Reply(ctx, "Данные не найдены. Пожалуйста, сначала введите ваши данные.", menu.ProfileMenu())
		}
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("✅ Поле «%s» успешно обновлено!", field.Title())
		if out.Values[string(field)+"_label"] != "" {
			msg = fmt.Sprintf("✅ Поле «%s» успешно обновлено на «%s»!", field.Title(), telegram.Escape(value))
		}
		return c.Reply(ctx, msg, menu.ProfileMenu())
	}
}

func (h *Handler) StartDelete(ctx context.Context, c *telegram.Context) error {
	c.Session.State = stateDelete
	return c.Reply(ctx, "⚠️ Вы уверены, что хотите полностью удалить все ваши данные?\n"+
		"Напишите строго «Да», чтобы подтвердить удаление.", telegram.ReplyColumn("⬅️ Отмена"))
}

func (h *Handler) ConfirmDelete(ctx context.Context, c *telegram.Context) error {
	confirmed := strings.ToLower(c.Text()) == "да"
	if !confirmed {
		c.Session.Reset()
		return c.Reply(ctx, "❌ Удаление отменено. Ваши данные сохранены.", menu.ProfileMenu())
	}
	if _, err := h.svc.Delete(ctx, c.UserID()); err != nil {
		return err
	}
	c.Session.Reset()
	return c.Reply(ctx, "✅ Ваши данные успешно удалены!", menu.Main())
}

func username(u telegram.Update) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FullName
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return telegram.Escape(s)
}

func number(v *float64, unit string) string {
	if v == nil {
		return "Не указан"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + " " + unit
}

// Summary renders the profile as HTML.
func Summary(p *Profile) string {
	var b strings.Builder
	b.WriteString("<b>Ваши текущие данные:</b>\n")
	fmt.Fprintf(&b, "👤 ФИО: %s\n", orDefault(p.FullName, "Не указано"))
	fmt.Fprintf(&b, "🎯 Цель: %s\n", orDefault(p.Goal, "Не указано"))
	fmt.Fprintf(&b, "🏅 Спорт: %s\n", orDefault(p.Sport, "Не указан"))
	fmt.Fprintf(&b, "📏 Рост: %s\n", number(p.Height, "см"))
	fmt.Fprintf(&b, "⚖️ Вес: %s\n", number(p.Weight, "кг"))
	fmt.Fprintf(&b, "🚬 Курение: %s\n", orDefault(p.Smoking, "Не указано"))
	fmt.Fprintf(&b, "🍷 Алкоголь: %s\n", orDefault(p.Alcohol, "Не указано"))
	fmt.Fprintf(&b, "💉 Хронические болезни: %s\n", orDefault(p.Diseases, "Не указано"))
	fmt.Fprintf(&b, "🧬 Наследственная предрасположенность: %s\n", orDefault(p.Heredity, "Не указано"))
	fmt.Fprintf(&b, "🩺 Клинические проявления: %s\n", orDefault(p.Symptoms, "Не указаны"))
	return b.String()
}
