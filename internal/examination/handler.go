package examination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/platform/telegram"
)

const (
	cbView      = "exam_view|"
	cbDownload  = "exam_dl|"
	cbClose     = "exam_close"
	cbEdit      = "exam_edit|"
	cbDel       = "exam_del|"
	cbDelOK     = "exam_del_ok|"
	cbDelCancel = "exam_del_cancel"

	previewRunes = 150
)

type Handler struct {
	svc  Service
	add  *form.Form
	edit *form.Form
}

func NewHandler(svc Service) *Handler {
	h := &Handler{svc: svc, add: addForm()}
	h.edit = h.add.Sub("exam_edit", "description", "file")
	h.edit.Steps[0].Optional = true
	h.edit.Steps[0].PromptFunc = func(v map[string]string) string {
		current := v["old_description"]
		if current == "" {
			current = "(пусто)"
		}
		return "📝 Текущее описание:\n\n" + telegram.Escape(current) +
			"\n\nВведите новое описание или отправьте /skip, чтобы оставить без изменений."
	}
	h.edit.Steps[1].Prompt = "📎 Прикрепите новый файл или отправьте /skip, чтобы оставить старый."
	return h
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Examinations, h.Menu)
	r.Text(menu.ExaminationsAdd, h.StartAdd)
	r.Text(menu.ExaminationsView, h.View)
	r.Text(menu.ExaminationsEdit, h.StartEdit)
	r.Text(menu.ExaminationsDelete, h.StartDelete)

	r.State(h.add.StatePrefix(), h.Add)
	r.Callback(h.add.CallbackPrefix(), h.Add)
	r.State(h.edit.StatePrefix(), h.Edit)
	r.Callback(h.edit.CallbackPrefix(), h.Edit)

	r.Callback(cbView, h.Details)
	r.Callback(cbDownload, h.Download)
	r.Callback(cbClose, h.Close)
	r.Callback(cbEdit, h.EditPick)
	r.Callback(cbDel, h.DeletePick)
	r.Callback(cbDelOK, h.DeleteConfirm)
	r.Callback(cbDelCancel, h.DeleteCancel)
}

func addForm() *form.Form {
	return &form.Form{
		Name: "exam_add",
		Steps: []form.Step{
			{Field: "name", Prompt: "🩻 Введите название обследования:", Validate: form.Text(255)},
			{Field: "date", Prompt: "📅 Введите дату обследования (в формате ДД.ММ.ГГГГ):", Validate: form.StrictDate},
			{Field: "description", Prompt: "📝 Введите краткое описание обследования:", Validate: form.Text(4000)},
			{
				Field:    "file",
				Prompt:   "📎 Прикрепите файл (до 50 МБ) или нажмите /skip, если файл не нужен:",
				File:     true,
				Optional: true,
			},
		},
	}
}

func (h *Handler) Menu(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "Выберите действие с обследованиями:", menu.ExaminationsMenu())
}

func (h *Handler) StartAdd(ctx context.Context, c *telegram.Context) error {
	p, err := h.add.Start(ctx, c.Session)
	if err != nil {
		return err
	}
	return form.Ask(ctx, c, p)
}

// upload fetches the document collected by a file step, nil after /skip.
func upload(ctx context.Context, c *telegram.Context, values map[string]string) (*Upload, error) {
	fileID := values["file"]
	if fileID == "" {
		return nil, nil
	}
	data, err := c.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &Upload{Name: values["file_label"], Data: data}, nil
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
	file, err := upload(ctx, c, out.Values)
	if err != nil {
		return err
	}
	if _, err := h.svc.Add(ctx, c.UserID(), out.Values["name"], date, out.Values["description"], file); err != nil {
		return err
	}
	c.Session.Reset()
	return c.Reply(ctx, "✅ Обследование успешно добавлено.", menu.ExaminationsMenu())
}

func (h *Handler) list(ctx context.Context, c *telegram.Context, prefix string) (*telegram.Keyboard, error) {
	exams, err := h.svc.List(ctx, c.UserID())
	if err != nil || len(exams) == 0 {
		return nil, err
	}
	kb := &telegram.Keyboard{}
	for _, e := range exams {
		kb.AddRow(telegram.Button{
			Text: fmt.Sprintf("%s (%s)", e.Name, dateparse.Format(e.Date)),
			Data: prefix + strconv.FormatInt(e.ID, 10),
		})
	}
	return kb, nil
}

func (h *Handler) examination(ctx context.Context, c *telegram.Context, prefix string) (*Examination, error) {
	id, err := strconv.ParseInt(c.Arg(prefix), 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	return h.svc.Get(ctx, c.UserID(), id)
}

func (h *Handler) View(ctx context.Context, c *telegram.Context) error {
	kb, err := h.list(ctx, c, cbView)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "❗ Пока нет доступных обследований.", nil)
	}
	return c.Reply(ctx, "Выберите обследование для просмотра:", kb)
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func (h *Handler) Details(ctx context.Context, c *telegram.Context) error {
	e, err := h.examination(ctx, c, cbView)
	if errors.Is(err, ErrNotFound) {
		return c.Answer(ctx, "❗ Обследование не найдено.", true)
	}
	if err != nil {
		return err
	}

	var buttons []telegram.Button
	if e.FileKey != "" {
		buttons = append(buttons, telegram.Button{Text: "📎 Скачать файл", Data: cbDownload + strconv.FormatInt(e.ID, 10)})
	}
	buttons = append(buttons, telegram.Button{Text: "❌ Закрыть", Data: cbClose})

	text := fmt.Sprintf("🔍 <b>%s</b>\n📅 Дата: %s\n📝 Описание: %s",
		telegram.Escape(e.Name), dateparse.Format(e.Date), telegram.Escape(shorten(e.Description, previewRunes)))
	return c.Reply(ctx, text, telegram.InlineRow(buttons...))
}

func (h *Handler) Download(ctx context.Context, c *telegram.Context) error {
	id, err := strconv.ParseInt(c.Arg(cbDownload), 10, 64)
	if err != nil {
		return c.Answer(ctx, form.StaleText, true)
	}
	name, data, err := h.svc.Download(ctx, c.UserID(), id)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoFile):
		return c.Answer(ctx, "❗ Файл не найден в базе.", true)
	case errors.Is(err, ErrFileMissing):
		return c.Reply(ctx, "❗ Файл отсутствует на сервере.", nil)
	case err != nil:
		return err
	}
	if err := c.Answer(ctx, "📥 Загружаю файл...", false); err != nil {
		return err
	}
	return c.ReplyDocument(ctx, name, data)
}

func (h *Handler) Close(ctx context.Context, c *telegram.Context) error {
	c.ClearKeyboard(ctx)
	return c.Answer(ctx, "❌ Операция отменена.", false)
}

func (h *Handler) StartEdit(ctx context.Context, c *telegram.Context) error {
	kb, err := h.list(ctx, c, cbEdit)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "❗ У вас нет ни одного обследования для редактирования.", nil)
	}
	return c.Reply(ctx, "Выберите обследование для редактирования:", kb)
}

func (h *Handler) EditPick(ctx context.Context, c *telegram.Context) error {
	e, err := h.examination(ctx, c, cbEdit)
	if errors.Is(err, ErrNotFound) {
		return c.Answer(ctx, "❗ Обследование не найдено или доступ запрещён.", true)
	}
	if err != nil {
		return err
	}
	c.ClearKeyboard(ctx)
	p, err := h.edit.StartWith(ctx, c.Session, map[string]string{
		"exam_id":         strconv.FormatInt(e.ID, 10),
		"old_description": e.Description,
	})
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
	if !out.Done {
		return form.Reply(ctx, c, out)
	}

	id, err := strconv.ParseInt(out.Values["exam_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("parse stored examination id: %w", err)
	}
	var description *string
	if d := out.Values["description"]; d != "" {
		description = &d
	}
	file, err := upload(ctx, c, out.Values)
	if err != nil {
		return err
	}

	c.Session.Reset()
	err = h.svc.Update(ctx, c.UserID(), id, description, file)
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "❗ Обследование не найдено или доступ запрещён.", menu.ExaminationsMenu())
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, "✅ Обследование успешно обновлено.", menu.ExaminationsMenu())
}

func (h *Handler) StartDelete(ctx context.Context, c *telegram.Context) error {
	kb, err := h.list(ctx, c, cbDel)
	if err != nil {
		return err
	}
	if kb == nil {
		return c.Reply(ctx, "❗ У вас нет ни одного обследования для удаления.", nil)
	}
	return c.Reply(ctx, "Выберите обследование, которое хотите удалить:", kb)
}

func (h *Handler) DeletePick(ctx context.Context, c *telegram.Context) error {
	e, err := h.examination(ctx, c, cbDel)
	if errors.Is(err, ErrNotFound) {
		return c.Answer(ctx, "❗ Обследование не найдено или доступ запрещён.", true)
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, fmt.Sprintf("❗ Вы уверены, что хотите удалить обследование «%s»?", telegram.Escape(e.Name)),
		telegram.InlineRow(
			telegram.Button{Text: "✅ Да, удалить", Data: cbDelOK + strconv.FormatInt(e.ID, 10)},
			telegram.Button{Text: "❌ Нет, отменить", Data: cbDelCancel},
		))
}

func (h *Handler) DeleteConfirm(ctx context.Context, c *telegram.Context) error {
	id, err := strconv.ParseInt(c.Arg(cbDelOK), 10, 64)
	if err != nil {
		return c.Answer(ctx, form.StaleText, true)
	}
	err = h.svc.Delete(ctx, c.UserID(), id)
	if errors.Is(err, ErrNotFound) {
		return c.Answer(ctx, "❗ Обследование не найдено или доступ запрещён.", true)
	}
	if err != nil {
		return err
	}
	c.ClearKeyboard(ctx)
	return c.Reply(ctx, "✅ Обследование успешно удалено.", menu.ExaminationsMenu())
}

func (h *Handler) DeleteCancel(ctx context.Context, c *telegram.Context) error {
	c.ClearKeyboard(ctx)
	return c.Reply(ctx, "❌ Удаление отменено.", menu.ExaminationsMenu())
}
