package appointment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/platform/telegram"
)

const (
	cbNext       = "appt_next|"
	cbView       = "appt_view|"
	cbEditDoctor = "appt_edit_doc|"
	cbEdit       = "appt_edit|"
	cbDelDoctor  = "appt_del_doc|"
	cbDel        = "appt_del|"
	cbDelOK      = "appt_del_ok|"
	cbDelCancel  = "appt_del_cancel"

	// stateNext waits for the "what next" buttons after a saved record.
	stateNext = "appt:next"

	actionCancel = "cancel"
	previewRunes = 25
)

type Handler struct {
	svc  Service
	add  *form.Form
	edit *form.Form
}

func NewHandler(svc Service) *Handler {
	h := &Handler{svc: svc, add: addForm()}
	h.edit = h.add.Sub("appt_edit", "recommendation")
	h.edit.Steps[0].Prompt = "Введите новый текст назначения:"
	h.edit.Steps[0].Extras = []form.Choice{{Label: "❌ Отмена", Value: actionCancel}}
	return h
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Appointments, h.Menu)
	r.Text(menu.AppointmentsAdd, h.StartAdd)
	r.Text(menu.AppointmentsView, h.View)
	r.Text(menu.AppointmentsEdit, h.StartEdit)
	r.Text(menu.AppointmentsDelete, h.StartDelete)

	r.State(h.add.StatePrefix(), h.Add)
	r.Callback(h.add.CallbackPrefix(), h.Add)
	r.Callback(cbNext, h.Next)

	r.Callback(cbView, h.ViewDoctor)

	r.Callback(cbEditDoctor, h.EditDoctor)
	r.Callback(cbEdit, h.EditPick)
	r.State(h.edit.StatePrefix(), h.Edit)
	r.Callback(h.edit.CallbackPrefix(), h.Edit)

	r.Callback(cbDelDoctor, h.DeleteDoctor)
	r.Callback(cbDel, h.DeletePick)
	r.Callback(cbDelOK, h.DeleteConfirm)
	r.Callback(cbDelCancel, h.DeleteCancel)
}

func addForm() *form.Form {
	return &form.Form{
		Name: "appt_add",
		Steps: []form.Step{
			{Field: "date", Prompt: "Введите дату приёма в формате ДД.ММ.ГГГГ:", Validate: form.StrictDate},
			{Field: "doctor", Prompt: "Введите специальность врача:", Validate: form.Text(255)},
			{Field: "recommendation", Prompt: "Введите текст назначения от этого врача:", Validate: form.Text(4000)},
		},
	}
}

func (h *Handler) Menu(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "Выберите действие с Назначениями врачей:", menu.AppointmentsMenu())
}

func (h *Handler) StartAdd(ctx context.Context, c *telegram.Context) error {
	p, err := h.add.Start(ctx, c.Session)
	if err != nil {
		return err
	}
	return form.Ask(ctx, c, p)
}

func (h *Handler) Add(ctx context.Context, c *telegram.Context) error {
	out, err := h.add.Handle(ctx, c.Session, form.InputOf(c.Update))
	if errors.Is(err, form.ErrNotActive) {
		return c.Answer(ctx, form.StaleText, true)
	}
	if err != nil {
		return err
	}
	if !out.Done {
		return form.Reply(ctx, c, out)
	}

	date, err := time.Parse(dateparse.ISO, out.Values["date"])
	if err != nil {
		return fmt.Errorf("parse stored date: %w", err)
	}
	if _, err := h.svc.Add(ctx, c.UserID(), date, out.Values["doctor"], out.Values["recommendation"]); err != nil {
		return err
	}

	c.Session.State = stateNext
	return c.Reply(ctx, "Запись сохранена. Что дальше?", telegram.InlineRow(
		telegram.Button{Text: "➕ Ещё от этого врача", Data: cbNext + "same"},
		telegram.Button{Text: "👩‍⚕️ Другой врач", Data: cbNext + "new"},
		telegram.Button{Text: "✅ Готово", Data: cbNext + "done"},
	))
}

// Next continues the entry loop keeping the date, and the doctor for "same".
func (h *Handler) Next(ctx context.Context, c *telegram.Context) error {
	if c.Session.State != stateNext {
		return c.Answer(ctx, form.StaleText, true)
	}
	c.ClearKeyboard(ctx)

	var (
		field string
		text  string
	)
	switch c.Arg(cbNext) {
	case "same":
		field, text = "recommendation", "Введите ещё одно назначение для этого врача:"
	case "new":
		field, text = "doctor", "Введите специальность или имя следующего врача:"
	default:
		c.Session.Reset()
		return c.Reply(ctx, "✅ Все назначения сохранены.", menu.AppointmentsMenu())
	}

	p, err := h.add.Resume(ctx, c.Session, field)
	if err != nil {
		return err
	}
	p.Text = text
	return form.Ask(ctx, c, p)
}

// doctorButtons lists the user's doctors by index so long names fit into
// callback data.
func (h *Handler) doctorButtons(ctx context.Context, telegramID int64, prefix string) (*telegram.Keyboard, error) {
	doctors, err := h.svc.Doctors(ctx, telegramID)
	if err != nil || len(doctors) == 0 {
		return nil, err
	}
	kb := &telegram.Keyboard{}
	for i, d := range doctors {
		kb.AddRow(telegram.Button{Text: d, Data: prefix + strconv.Itoa(i)})
	}
	return kb, nil
}

func (h *Handler) doctor(ctx context.Context, c *telegram.Context, prefix string) (string, bool, error) {
	doctors, err := h.svc.Doctors(ctx, c.UserID())
	if err != nil {
		return "", false, err
	}
	i, err := strconv.Atoi(c.Arg(prefix))
	if err != nil || i < 0 || i >= len(doctors) {
		return "", false, nil
	}
	return doctors[i], true, nil
}

func (h *Handler) View(ctx context.Context, c *telegram.Context) error {
	kb, err := h.doctorButtons(ctx, c.UserID(), cbView)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "У вас пока нет назначений.", nil)
	}
	return c.Reply(ctx, "Выберите врача, чтобы посмотреть назначения:", kb)
}

func (h *Handler) ViewDoctor(ctx context.Context, c *telegram.Context) error {
	doctor, ok, err := h.doctor(ctx, c, cbView)
	if err != nil {
		return err
	}
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}
	list, err := h.svc.ByDoctor(ctx, c.UserID(), doctor)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return c.Reply(ctx, "Назначений от этого врача не найдено.", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Назначения от врача: <b>%s</b>\n\n", telegram.Escape(doctor))
	for _, a := range list {
		fmt.Fprintf(&b, "🗓 <b>%s</b>\n📝 %s\n\n", dateparse.Format(a.Date), telegram.Escape(a.Text))
	}
	return c.Reply(ctx, strings.TrimRight(b.String(), "\n"), nil)
}

func preview(a Appointment) string {
	text := a.Text
	if utf8.RuneCountInString(text) > previewRunes {
		text = string([]rune(text)[:previewRunes]) + "..."
	}
	return dateparse.Format(a.Date) + " " + text
}

func (h *Handler) appointmentButtons(ctx context.Context, c *telegram.Context, doctorPrefix, prefix string) (*telegram.Keyboard, bool, error) {
	doctor, ok, err := h.doctor(ctx, c, doctorPrefix)
	if err != nil || !ok {
		return nil, ok, err
	}
	list, err := h.svc.ByDoctor(ctx, c.UserID(), doctor)
	if err != nil {
		return nil, true, err
	}
	if len(list) == 0 {
		return nil, true, nil
	}
	kb := &telegram.Keyboard{}
	for _, a := range list {
		kb.AddRow(telegram.Button{Text: preview(a), Data: prefix + strconv.FormatInt(a.ID, 10)})
	}
	return kb, true, nil
}

func (h *Handler) StartEdit(ctx context.Context, c *telegram.Context) error {
	kb, err := h.doctorButtons(ctx, c.UserID(), cbEditDoctor)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "У вас пока нет назначений.", nil)
	}
	return c.Reply(ctx, "Выберите врача для редактирования назначения:", kb)
}

func (h *Handler) EditDoctor(ctx context.Context, c *telegram.Context) error {
	kb, ok, err := h.appointmentButtons(ctx, c, cbEditDoctor, cbEdit)
	if err != nil {
		return err
	}
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}
	if kb == nil {
		return c.Reply(ctx, "У этого врача нет назначений.", nil)
	}
	return c.Reply(ctx, "Выберите назначение для редактирования:", kb)
}

func (h *Handler) appointment(ctx context.Context, c *telegram.Context, arg string) (*Appointment, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	return h.svc.Get(ctx, c.UserID(), id)
}

func (h *Handler) EditPick(ctx context.Context, c *telegram.Context) error {
	a, err := h.appointment(ctx, c, c.Arg(cbEdit))
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Ошибка: назначение не найдено.", nil)
	}
	if err != nil {
		return err
	}
	c.ClearKeyboard(ctx)
	p, err := h.edit.StartWith(ctx, c.Session, map[string]string{"appt_id": strconv.FormatInt(a.ID, 10)})
	if err != nil {
		return err
	}
	return form.Ask(ctx, c, p)
}

func (h *Handler) Edit(ctx context.Context, c *telegram.Context) error {
	out, err := h.edit.Handle(ctx, c.Session, form.InputOf(c.Update))
	if errors.Is(err, form.ErrNotActive) {
		return c.Answer(ctx, form.StaleText, true)
	}
	if err != nil {
		return err
	}
	if out.Action == actionCancel {
		c.ClearKeyboard(ctx)
		c.Session.Reset()
		return c.Reply(ctx, "Редактирование отменено.", menu.AppointmentsMenu())
	}
	if !out.Done {
		return form.Reply(ctx, c, out)
	}

	c.Session.Reset()
	id, err := strconv.ParseInt(out.Values["appt_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("parse stored appointment id: %w", err)
	}
	err = h.svc.UpdateText(ctx, c.UserID(), id, out.Values["recommendation"])
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Ошибка: назначение не найдено.", menu.AppointmentsMenu())
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, "Текст назначения успешно обновлён ✅", menu.AppointmentsMenu())
}

func cancelRow() telegram.Button {
	return telegram.Button{Text: "❌ Отменить", Data: cbDelCancel}
}

func (h *Handler) StartDelete(ctx context.Context, c *telegram.Context) error {
	kb, err := h.doctorButtons(ctx, c.UserID(), cbDelDoctor)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "У вас пока нет назначений.", nil)
	}
	kb.AddRow(cancelRow())
	return c.Reply(ctx, "Выберите врача для удаления назначения:", kb)
}

func (h *Handler) DeleteDoctor(ctx context.Context, c *telegram.Context) error {
	kb, ok, err := h.appointmentButtons(ctx, c, cbDelDoctor, cbDel)
	if err != nil {
		return err
	}
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}
	if kb == nil {
		return c.Reply(ctx, "У этого врача нет назначений.", nil)
	}
	kb.AddRow(cancelRow())
	return c.Reply(ctx, "Выберите назначение для удаления:", kb)
}

func (h *Handler) DeletePick(ctx context.Context, c *telegram.Context) error {
	a, err := h.appointment(ctx, c, c.Arg(cbDel))
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Ошибка: назначение не найдено.", nil)
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, "Вы точно хотите удалить это назначение?\n"+telegram.Escape(preview(*a)), telegram.InlineRow(
		telegram.Button{Text: "✅ Да", Data: cbDelOK + strconv.FormatInt(a.ID, 10)},
		telegram.Button{Text: "❌ Нет", Data: cbDelCancel},
	))
}

func (h *Handler) DeleteConfirm(ctx context.Context, c *telegram.Context) error {
	id, err := strconv.ParseInt(c.Arg(cbDelOK), 10, 64)
	if err != nil {
		return c.Answer(ctx, form.StaleText, true)
	}
	c.ClearKeyboard(ctx)
	err = h.svc.Delete(ctx, c.UserID(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Ошибка: назначение не найдено.", nil)
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, "Назначение успешно удалено ✅", menu.AppointmentsMenu())
}

func (h *Handler) DeleteCancel(ctx context.Context, c *telegram.Context) error {
	c.ClearKeyboard(ctx)
	return c.Reply(ctx, "Операция удаления отменена.", menu.AppointmentsMenu())
}
