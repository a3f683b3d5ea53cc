package labs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"medcard-bot/internal/form"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/platform/telegram"
)

const (
	cbView      = "labs_view|"
	cbAll       = "labs_all|"
	cbDate      = "labs_date|"
	cbTrendG    = "labs_tg|"
	cbTrendN    = "labs_tn|"
	cbDelGroup  = "labs_del_g|"
	cbDelName   = "labs_del_n|"
	cbDelRecord = "labs_del_r|"
	cbDelOK     = "labs_del_ok|"
	cbDelCancel = "labs_del_cancel"
	cbDelBack   = "labs_del_back"

	actionFinish = "finish"
)

type Handler struct {
	svc Service
	add *form.Form
	now func() time.Time
}

func NewHandler(svc Service, now func() time.Time) *Handler {
	h := &Handler{svc: svc, now: now}
	h.add = h.addForm()
	return h
}

func RegisterRoutes(r *telegram.Router, h *Handler) {
	r.Text(menu.Labs, h.Menu)
	r.Text(menu.LabsAdd, h.StartAdd)
	r.Text(menu.LabsView, h.ViewMenu)
	r.Text(menu.LabsDelete, h.StartDelete)

	r.State(h.add.StatePrefix(), h.Add)
	r.Callback(h.add.CallbackPrefix(), h.Add)

	r.Callback(cbView, h.ViewOption)
	r.Callback(cbAll, h.All)
	r.Callback(cbDate, h.ByDate)
	r.Callback(cbTrendG, h.TrendGroup)
	r.Callback(cbTrendN, h.TrendName)

	r.Callback(cbDelGroup, h.DeleteGroup)
	r.Callback(cbDelName, h.DeleteName)
	r.Callback(cbDelRecord, h.DeleteRecord)
	r.Callback(cbDelOK, h.DeleteConfirm)
	r.Callback(cbDelCancel, h.DeleteCancel)
	r.Callback(cbDelBack, h.StartDelete)
}

func (h *Handler) Menu(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "Выберите действие с анализами:", menu.LabsMenu())
}

func toChoices(items []string) []form.Choice {
	out := make([]form.Choice, 0, len(items))
	for _, it := range items {
		out = append(out, form.Choice{Label: it, Value: it})
	}
	return out
}

func (h *Handler) addForm() *form.Form {
	return &form.Form{
		Name: "labs_add",
		Steps: []form.Step{
			{
				Field:    "date",
				Prompt:   "Введите дату сдачи анализов (дд.мм.гггг, «сегодня», «вчера»):",
				Validate: form.NaturalDate(h.now),
			},
			{
				Field:  "group",
				Prompt: "Выберите группу анализа:",
				Options: func(ctx context.Context, _ map[string]string) ([]form.Choice, error) {
					groups, err := h.svc.Groups(ctx)
					return toChoices(groups), err
				},
				Extras: []form.Choice{{Label: "✅ Закончить ввод", Value: actionFinish}},
			},
			{
				Field: "name",
				PromptFunc: func(v map[string]string) string {
					return fmt.Sprintf("Группа: %s. Выберите анализ:", telegram.Escape(v["group"]))
				},
				Options: func(ctx context.Context, v map[string]string) ([]form.Choice, error) {
					names, err := h.svc.Names(ctx, v["group"])
					return toChoices(names), err
				},
				Back: true,
			},
			{
				Field: "variant",
				PromptFunc: func(v map[string]string) string {
					return fmt.Sprintf("Анализ: %s. Выберите единицы измерения:", telegram.Escape(v["name"]))
				},
				Options: func(ctx context.Context, v map[string]string) ([]form.Choice, error) {
					variants, err := h.svc.Variants(ctx, v["group"], v["name"])
					out := make([]form.Choice, 0, len(variants))
					for _, e := range variants {
						label := e.Unit
						if e.Reference != "" {
							label += " (" + e.Reference + ")"
						}
						out = append(out, form.Choice{Label: label, Value: strconv.FormatInt(e.ID, 10)})
					}
					return out, err
				},
				Back: true,
			},
			{
				Field: "result",
				PromptFunc: func(v map[string]string) string {
					return fmt.Sprintf("Вы выбрали: %s, %s.\nВведите результат анализа (например 5.6):",
						telegram.Escape(v["name"]), telegram.Escape(v["variant_label"]))
				},
				Validate: form.NonNegativeNumber,
				Back:     true,
			},
		},
	}
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

	if out.Action == actionFinish {
		c.ClearKeyboard(ctx)
		c.Session.Reset()
		return c.Reply(ctx, "Ввод анализов завершён.", menu.LabsMenu())
	}
	if !out.Done {
		return form.Reply(ctx, c, out)
	}

	date, err := time.Parse(dateparse.ISO, out.Values["date"])
	if err != nil {
		return fmt.Errorf("parse stored date: %w", err)
	}
	variantID, err := strconv.ParseInt(out.Values["variant"], 10, 64)
	if err != nil {
		return fmt.Errorf("parse stored variant: %w", err)
	}
	raw, err := strconv.ParseFloat(out.Values["result"], 64)
	if err != nil {
		return fmt.Errorf("parse stored result: %w", err)
	}

	res, err := h.svc.Record(ctx, c.UserID(), variantID, date, raw)
	if err != nil {
		return err
	}

	// next analysis for the same date
	p, err := h.add.Resume(ctx, c.Session, "group")
	if err != nil {
		return err
	}
	p.Text = fmt.Sprintf("✅ Сохранено: %s = %s%s %s.\nВыберите следующий анализ или закончите:",
		telegram.Escape(res.Name), res.Status().Marker(), FormatValue(res.Value), telegram.Escape(res.Units))
	return form.Ask(ctx, c, p)
}

func (h *Handler) viewOptions() *telegram.Keyboard {
	return telegram.InlineColumn(
		telegram.Button{Text: "Все анализы", Data: cbView + "all"},
		telegram.Button{Text: "По дате сдачи", Data: cbView + "date"},
		telegram.Button{Text: "Динамика", Data: cbView + "trend"},
		telegram.Button{Text: "❌ Отмена", Data: cbView + "cancel"},
	)
}

func (h *Handler) ViewMenu(ctx context.Context, c *telegram.Context) error {
	return c.Reply(ctx, "Выберите опцию отображения анализов:", h.viewOptions())
}

func (h *Handler) ViewOption(ctx context.Context, c *telegram.Context) error {
	switch c.Arg(cbView) {
	case "all":
		return c.Reply(ctx, "Как вы хотите получить все анализы?", telegram.InlineColumn(
			telegram.Button{Text: "Сообщением", Data: cbAll + "msg"},
			telegram.Button{Text: "PDF", Data: cbAll + "pdf"},
			telegram.Button{Text: "🔙 Назад", Data: cbView + "menu"},
		))

	case "date":
		dates, err := h.svc.Dates(ctx, c.UserID())
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			return c.Reply(ctx, "У вас нет ни одного анализа.", nil)
		}
		kb := &telegram.Keyboard{}
		for _, d := range dates {
			kb.AddRow(telegram.Button{Text: dateparse.Format(d), Data: cbDate + d.Format(dateparse.ISO)})
		}
		kb.AddRow(telegram.Button{Text: "🔙 Назад", Data: cbView + "menu"})
		return c.Reply(ctx, "Выберите дату сдачи:", kb)

	case "trend":
		groups, err := h.svc.ResultGroups(ctx, c.UserID())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return c.Reply(ctx, "📋 У вас ещё нет ни одного анализа.", nil)
		}
		kb := &telegram.Keyboard{}
		for i, g := range groups {
			kb.AddRow(telegram.Button{Text: g, Data: cbTrendG + strconv.Itoa(i)})
		}
		kb.AddRow(telegram.Button{Text: "❌ Отмена", Data: cbView + "cancel"})
		return c.Reply(ctx, "Выберите группу анализов для просмотра:", kb)

	case "menu":
		return h.ViewMenu(ctx, c)

	default:
		return c.Reply(ctx, "Просмотр анализов отменён.", nil)
	}
}

func (h *Handler) All(ctx context.Context, c *telegram.Context) error {
	if c.Arg(cbAll) == "pdf" {
		data, err := h.svc.Report(ctx, c.UserID())
		if err != nil {
			return err
		}
		return c.ReplyDocument(ctx, "all_analyses.pdf", data)
	}

	latest, err := h.svc.Latest(ctx, c.UserID())
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return c.Reply(ctx, "У вас нет ни одного анализа.", nil)
	}

	var b strings.Builder
	b.WriteString("<b>Последние результаты по всем анализам:</b>\n")
	for _, r := range latest {
		fmt.Fprintf(&b, "%s%s = %s %s (%s)\n", r.Status().Marker(), telegram.Escape(r.Name),
			FormatValue(r.Value), telegram.Escape(r.Units), dateparse.Format(r.Date))
	}
	return c.Reply(ctx, b.String(), nil)
}

func (h *Handler) ByDate(ctx context.Context, c *telegram.Context) error {
	date, err := time.Parse(dateparse.ISO, c.Arg(cbDate))
	if err != nil {
		return c.Answer(ctx, form.StaleText, true)
	}
	results, err := h.svc.ByDate(ctx, c.UserID(), date)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return c.Reply(ctx, "Нет записей за выбранную дату.", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Результаты анализов за %s:</b>\n", dateparse.Format(date))
	for _, r := range results {
		fmt.Fprintf(&b, "%s = %s%s %s (%s)\n", telegram.Escape(r.Name), r.Status().Marker(),
			FormatValue(r.Value), telegram.Escape(r.Units), telegram.Escape(orDash(r.Reference)))
	}
	return c.Reply(ctx, b.String(), nil)
}

// pick resolves a button index against a freshly loaded list.
func pick(items []string, arg string) (string, bool) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(items) {
		return "", false
	}
	return items[i], true
}

func (h *Handler) TrendGroup(ctx context.Context, c *telegram.Context) error {
	groups, err := h.svc.ResultGroups(ctx, c.UserID())
	if err != nil {
		return err
	}
	gi := c.Arg(cbTrendG)
	group, ok := pick(groups, gi)
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}

	names, err := h.svc.ResultNames(ctx, c.UserID(), group)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return c.Reply(ctx, "В выбранной группе у вас ещё нет ни одного анализа.", nil)
	}
	kb := &telegram.Keyboard{}
	for i, n := range names {
		kb.AddRow(telegram.Button{Text: n, Data: cbTrendN + gi + "|" + strconv.Itoa(i)})
	}
	kb.AddRow(telegram.Button{Text: "🔙 Назад", Data: cbView + "trend"})
	return c.Reply(ctx, fmt.Sprintf("Группа: %s. Выберите анализ:", telegram.Escape(group)), kb)
}

func (h *Handler) TrendName(ctx context.Context, c *telegram.Context) error {
	name, ok, err := h.resolveName(ctx, c.UserID(), c.Arg(cbTrendN))
	if err != nil {
		return err
	}
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}

	results, err := h.svc.ByName(ctx, c.UserID(), name)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return c.Reply(ctx, "У вас нет записей для этого анализа.", nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Анализы %s:</b>\n\n", telegram.Escape(name))
	for _, r := range results {
		fmt.Fprintf(&b, "📅 %s: %s%s %s (Референс: %s)\n", dateparse.Format(r.Date), r.Status().Marker(),
			FormatValue(r.Value), telegram.Escape(r.Units), telegram.Escape(orDash(r.Reference)))
	}
	return c.Reply(ctx, b.String(), nil)
}

// resolveName reads "<group index>|<name index>".
func (h *Handler) resolveName(ctx context.Context, telegramID int64, arg string) (string, bool, error) {
	gi, ni, found := strings.Cut(arg, "|")
	if !found {
		return "", false, nil
	}
	groups, err := h.svc.ResultGroups(ctx, telegramID)
	if err != nil {
		return "", false, err
	}
	group, ok := pick(groups, gi)
	if !ok {
		return "", false, nil
	}
	names, err := h.svc.ResultNames(ctx, telegramID, group)
	if err != nil {
		return "", false, err
	}
	name, ok := pick(names, ni)
	return name, ok, nil
}

func (h *Handler) StartDelete(ctx context.Context, c *telegram.Context) error {
	groups, err := h.svc.ResultGroups(ctx, c.UserID())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return c.Reply(ctx, "У вас ещё нет ни одного анализа для удаления.", nil)
	}
	kb := &telegram.Keyboard{}
	for i, g := range groups {
		kb.AddRow(telegram.Button{Text: g, Data: cbDelGroup + strconv.Itoa(i)})
	}
	kb.AddRow(telegram.Button{Text: "❌ Отмена", Data: cbDelCancel})
	return c.Reply(ctx, "Выберите группу анализа для удаления:", kb)
}

func (h *Handler) DeleteGroup(ctx context.Context, c *telegram.Context) error {
	groups, err := h.svc.ResultGroups(ctx, c.UserID())
	if err != nil {
		return err
	}
	gi := c.Arg(cbDelGroup)
	group, ok := pick(groups, gi)
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}
	names, err := h.svc.ResultNames(ctx, c.UserID(), group)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return c.Reply(ctx, "В этой группе нет анализов.", nil)
	}

	kb := &telegram.Keyboard{}
	for i, n := range names {
		kb.AddRow(telegram.Button{Text: n, Data: cbDelName + gi + "|" + strconv.Itoa(i)})
	}
	kb.AddRow(telegram.Button{Text: "◀️ Назад", Data: cbDelBack})
	return c.Reply(ctx, "Выберите название анализа:", kb)
}

func (h *Handler) DeleteName(ctx context.Context, c *telegram.Context) error {
	arg := c.Arg(cbDelName)
	name, ok, err := h.resolveName(ctx, c.UserID(), arg)
	if err != nil {
		return err
	}
	if !ok {
		return c.Answer(ctx, form.StaleText, true)
	}
	results, err := h.svc.ByName(ctx, c.UserID(), name)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return c.Reply(ctx, "Нет записей для этого анализа.", nil)
	}

	gi, _, _ := strings.Cut(arg, "|")
	kb := &telegram.Keyboard{}
	for _, r := range results {
		kb.AddRow(telegram.Button{
			Text: fmt.Sprintf("%s: %s %s", dateparse.Format(r.Date), FormatValue(r.Value), r.Units),
			Data: cbDelRecord + strconv.FormatInt(r.ID, 10),
		})
	}
	kb.AddRow(telegram.Button{Text: "◀️ Назад", Data: cbDelGroup + gi})
	return c.Reply(ctx, fmt.Sprintf("Вы выбрали «%s». Выберите запись для удаления:", telegram.Escape(name)), kb)
}

func (h *Handler) record(ctx context.Context, c *telegram.Context, arg string) (*Result, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	return h.svc.Get(ctx, c.UserID(), id)
}

func (h *Handler) DeleteRecord(ctx context.Context, c *telegram.Context) error {
	r, err := h.record(ctx, c, c.Arg(cbDelRecord))
	if errors.Is(err, ErrNotFound) {
		return c.Reply(ctx, "Запись не найдена.", nil)
	}
	if err != nil {
		return err
	}
	kb := telegram.InlineRow(
		telegram.Button{Text: "✅ Да", Data: cbDelOK + strconv.FormatInt(r.ID, 10)},
		telegram.Button{Text: "❌ Нет", Data: cbDelCancel},
	)
	return c.Reply(ctx, fmt.Sprintf("Удалить анализ «%s» от %s?", telegram.Escape(r.Name), dateparse.Format(r.Date)), kb)
}

func (h *Handler) DeleteConfirm(ctx context.Context, c *telegram.Context) error {
	id, err := strconv.ParseInt(c.Arg(cbDelOK), 10, 64)
	if err != nil {
		return c.Answer(ctx, form.StaleText, true)
	}
	c.ClearKeyboard(ctx)
	ok, err := h.svc.Delete(ctx, c.UserID(), id)
	if err != nil {
		return err
	}
	if !ok {
		return c.Reply(ctx, "Запись не найдена.", nil)
	}
	return c.Reply(ctx, "✅ Анализ успешно удалён.", menu.LabsMenu())
}

func (h *Handler) DeleteCancel(ctx context.Context, c *telegram.Context) error {
	c.ClearKeyboard(ctx)
	return c.Reply(ctx, "❌ Удаление отменено.", menu.LabsMenu())
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
