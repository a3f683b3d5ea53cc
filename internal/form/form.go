// Package form drives multi-step guided input. A Form is an ordered list of
// steps; the cursor lives in the session state as form:<name>:<index> and the
// collected answers in the session data, keyed by step field.
//
// Invalid input never touches the session: the caller gets a corrective
// message and the same prompt back.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/session"
)

const (
	SkipCommand = "/skip"
	BackLabel   = "⬅️ Назад"

	// MaxFileSize is the largest document a file step accepts.
	MaxFileSize = 50 << 20
)

var ErrNotActive = errors.New("form is not active")

const (
	msgPickButton = "Пожалуйста, выберите вариант с помощью кнопок."
	msgSendFile   = "Пожалуйста, отправьте файл документом или /skip."
	msgTooLarge   = "Файл слишком большой. Максимальный размер: 50 МБ."
	msgEmpty      = "Значение не может быть пустым."
	msgSendText   = "Пожалуйста, отправьте ответ текстом."
	msgNoOptions  = "Нет доступных вариантов."
)

type Choice struct {
	Label string
	Value string
}

type Step struct {
	Field      string
	Prompt     string
	PromptFunc func(values map[string]string) string

	// Choices or Options turn the step into a button pick. Options is
	// evaluated against the values collected so far.
	Choices []Choice
	Options func(ctx context.Context, values map[string]string) ([]Choice, error)

	// Validate normalizes free text or explains why it is rejected. The
	// error text is shown to the user.
	Validate func(text string) (string, error)

	Optional bool
	File     bool
	Back     bool

	// Extras are control buttons shown under the choices. Pressing one ends
	// up in Outcome.Action without moving the cursor.
	Extras []Choice
}

type Form struct {
	Name  string
	Steps []Step
}

type Prompt struct {
	Text     string
	Keyboard *telegram.Keyboard
}

type Input struct {
	Text     string
	Callback string
	Document *telegram.Document
}

// InputOf extracts form input from an update.
func InputOf(u telegram.Update) Input {
	return Input{Text: strings.TrimSpace(u.Text), Callback: u.CallbackData, Document: u.Document}
}

type Outcome struct {
	// Prompt is the next question, or the repeated one after Invalid.
	Prompt  *Prompt
	Invalid string
	Done    bool
	Values  map[string]string
	Action  string
	// Stale is set for buttons that belong to another step.
	Stale bool
}

func (f *Form) StatePrefix() string {
	return "form:" + f.Name + ":"
}

func (f *Form) CallbackPrefix() string {
	return "form|" + f.Name + "|"
}

// Active reports whether the session cursor points into this form.
func (f *Form) Active(s *session.Session) bool {
	_, ok := f.cursor(s)
	return ok
}

func (f *Form) cursor(s *session.Session) (int, bool) {
	if !strings.HasPrefix(s.State, f.StatePrefix()) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(s.State, f.StatePrefix()))
	if err != nil || idx < 0 || idx >= len(f.Steps) {
		return 0, false
	}
	return idx, true
}

func (f *Form) setCursor(s *session.Session, idx int) {
	s.State = f.StatePrefix() + strconv.Itoa(idx)
}

func (f *Form) index(field string) int {
	for i, st := range f.Steps {
		if st.Field == field {
			return i
		}
	}
	return -1
}

// Step returns the step collecting field.
func (f *Form) Step(field string) (*Step, bool) {
	i := f.index(field)
	if i < 0 {
		return nil, false
	}
	return &f.Steps[i], true
}

// Sub builds a form out of the named fields of f, in the given order.
func (f *Form) Sub(name string, fields ...string) *Form {
	sub := &Form{Name: name}
	for _, field := range fields {
		if st, ok := f.Step(field); ok {
			cp := *st
			cp.Back = false
			sub.Steps = append(sub.Steps, cp)
		}
	}
	return sub
}

// Start resets the session and asks the first question.
func (f *Form) Start(ctx context.Context, s *session.Session) (*Prompt, error) {
	return f.StartWith(ctx, s, nil)
}

// StartWith resets the session, seeds it with initial and asks the first question.
func (f *Form) StartWith(ctx context.Context, s *session.Session, initial map[string]string) (*Prompt, error) {
	s.Reset()
	for k, v := range initial {
		s.Set(k, v)
	}
	f.setCursor(s, 0)
	return f.render(ctx, 0, s.Data)
}

// Resume moves the cursor to field, keeping everything collected so far.
func (f *Form) Resume(ctx context.Context, s *session.Session, field string) (*Prompt, error) {
	i := f.index(field)
	if i < 0 {
		return nil, fmt.Errorf("form %s has no field %s", f.Name, field)
	}
	f.setCursor(s, i)
	return f.render(ctx, i, s.Data)
}

func (f *Form) render(ctx context.Context, idx int, values map[string]string) (*Prompt, error) {
	st := &f.Steps[idx]
	p := &Prompt{Text: st.Prompt}
	if st.PromptFunc != nil {
		p.Text = st.PromptFunc(values)
	}

	choices, err := st.choices(ctx, values)
	if err != nil {
		return nil, err
	}
	if len(choices) == 0 && (st.Choices != nil || st.Options != nil) {
		p.Text += "\n\n" + msgNoOptions
	}

	var kb telegram.Keyboard
	for i, c := range choices {
		kb.AddRow(telegram.Button{Text: c.Label, Data: f.data(idx, strconv.Itoa(i))})
	}
	for _, x := range st.Extras {
		kb.AddRow(telegram.Button{Text: x.Label, Data: f.data(idx, "x:"+x.Value)})
	}
	if st.Back && idx > 0 {
		kb.AddRow(telegram.Button{Text: BackLabel, Data: f.data(idx, "back")})
	}
	if len(kb.Inline) > 0 {
		p.Keyboard = &kb
	}
	return p, nil
}

func (f *Form) data(idx int, tail string) string {
	return f.CallbackPrefix() + strconv.Itoa(idx) + "|" + tail
}

func (st *Step) choices(ctx context.Context, values map[string]string) ([]Choice, error) {
	if st.Options != nil {
		return st.Options(ctx, values)
	}
	return st.Choices, nil
}

func (st *Step) isChoice() bool {
	return st.Choices != nil || st.Options != nil
}

// Handle feeds one answer to the pending step.
func (f *Form) Handle(ctx context.Context, s *session.Session, in Input) (Outcome, error) {
	idx, ok := f.cursor(s)
	if !ok {
		return Outcome{}, ErrNotActive
	}

	if in.Callback != "" {
		rest := strings.TrimPrefix(in.Callback, f.CallbackPrefix())
		parts := strings.SplitN(rest, "|", 2)
		if rest == in.Callback || len(parts) != 2 || parts[0] != strconv.Itoa(idx) {
			return Outcome{Stale: true}, nil
		}
		switch tail := parts[1]; {
		case tail == "back":
			if idx == 0 {
				return Outcome{Stale: true}, nil
			}
			f.setCursor(s, idx-1)
			p, err := f.render(ctx, idx-1, s.Data)
			return Outcome{Prompt: p}, err
		case strings.HasPrefix(tail, "x:"):
			return Outcome{Action: strings.TrimPrefix(tail, "x:")}, nil
		default:
			in = Input{Callback: tail}
		}
	}

	st := &f.Steps[idx]
	value, label, problem, err := st.Accept(ctx, s.Data, in)
	if err != nil {
		return Outcome{}, err
	}
	if problem != "" {
		p, err := f.render(ctx, idx, s.Data)
		return Outcome{Prompt: p, Invalid: problem}, err
	}

	s.Set(st.Field, value)
	if label != "" {
		s.Set(st.Field+"_label", label)
	}

	if idx+1 < len(f.Steps) {
		f.setCursor(s, idx+1)
		p, err := f.render(ctx, idx+1, s.Data)
		return Outcome{Prompt: p}, err
	}

	s.State = ""
	values := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		values[k] = v
	}
	return Outcome{Done: true, Values: values}, nil
}

// Accept checks one answer against the step without touching any session.
// A non-empty problem is the corrective message for the user. For choice
// steps a callback carries the choice index; typed labels also match.
func (st *Step) Accept(ctx context.Context, values map[string]string, in Input) (value, label, problem string, err error) {
	if st.File {
		return st.acceptFile(in)
	}

	if in.Document != nil {
		return "", "", msgSendText, nil
	}

	if st.Optional && in.Callback == "" && strings.EqualFold(in.Text, SkipCommand) {
		return "", "", "", nil
	}

	if st.isChoice() {
		choices, err := st.choices(ctx, values)
		if err != nil {
			return "", "", "", err
		}
		if in.Callback != "" {
			i, convErr := strconv.Atoi(in.Callback)
			if convErr != nil || i < 0 || i >= len(choices) {
				return "", "", msgPickButton, nil
			}
			return choices[i].Value, choices[i].Label, "", nil
		}
		for _, c := range choices {
			if strings.EqualFold(c.Label, in.Text) {
				return c.Value, c.Label, "", nil
			}
		}
		return "", "", msgPickButton, nil
	}

	if in.Callback != "" {
		return "", "", msgEmpty, nil
	}
	text := strings.TrimSpace(in.Text)
	if st.Validate != nil {
		v, verr := st.Validate(text)
		if verr != nil {
			return "", "", verr.Error(), nil
		}
		return v, "", "", nil
	}
	if text == "" {
		return "", "", msgEmpty, nil
	}
	return text, "", "", nil
}

func (st *Step) acceptFile(in Input) (string, string, string, error) {
	if in.Document == nil {
		if st.Optional && strings.EqualFold(in.Text, SkipCommand) {
			return "", "", "", nil
		}
		return "", "", msgSendFile, nil
	}
	if in.Document.Size > MaxFileSize {
		return "", "", msgTooLarge, nil
	}
	return in.Document.FileID, in.Document.FileName, "", nil
}
