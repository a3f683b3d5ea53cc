package form

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/session"
)

func testForm() *Form {
	return &Form{
		Name: "t",
		Steps: []Step{
			{Field: "date", Prompt: "Дата?", Validate: StrictDate},
			{Field: "goal", Prompt: "Цель?", Back: true, Choices: []Choice{
				{Label: "Похудение", Value: "loss"},
				{Label: "Набор", Value: "gain"},
			}, Extras: []Choice{{Label: "Готово", Value: "finish"}}},
			{Field: "weight", Prompt: "Вес?", Back: true, Validate: PositiveNumber},
			{Field: "note", Prompt: "Заметка?", Optional: true},
			{Field: "file", Prompt: "Файл?", File: true, Optional: true},
		},
	}
}

func TestForm_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := testForm()
	s := session.New()

	p, err := f.Start(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "Дата?", p.Text)
	assert.Equal(t, "form:t:0", s.State)

	out, err := f.Handle(ctx, s, Input{Text: "05.03.2024"})
	require.NoError(t, err)
	assert.Equal(t, "Цель?", out.Prompt.Text)
	require.NotNil(t, out.Prompt.Keyboard)
	assert.Equal(t, "form|t|1|1", out.Prompt.Keyboard.Inline[1][0].Data)

	out, err = f.Handle(ctx, s, Input{Callback: "form|t|1|1"})
	require.NoError(t, err)
	assert.Equal(t, "Вес?", out.Prompt.Text)

	out, err = f.Handle(ctx, s, Input{Text: "72,5"})
	require.NoError(t, err)
	out, err = f.Handle(ctx, s, Input{Text: "/skip"})
	require.NoError(t, err)
	assert.Equal(t, "Файл?", out.Prompt.Text)

	out, err = f.Handle(ctx, s, Input{Document: &telegram.Document{FileID: "F1", FileName: "scan.pdf", Size: 1024}})
	require.NoError(t, err)
	require.True(t, out.Done)

	assert.Equal(t, "2024-03-05", out.Values["date"])
	assert.Equal(t, "gain", out.Values["goal"])
	assert.Equal(t, "Набор", out.Values["goal_label"])
	assert.Equal(t, "72.5", out.Values["weight"])
	assert.Equal(t, "", out.Values["note"])
	assert.Equal(t, "F1", out.Values["file"])
	assert.Equal(t, "scan.pdf", out.Values["file_label"])
	assert.Empty(t, s.State)
}

func TestForm_InvalidInputLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	f := testForm()
	s := session.New()
	_, err := f.StartWith(ctx, s, map[string]string{"owner": "1"})
	require.NoError(t, err)
	_, err = f.Handle(ctx, s, Input{Text: "01.01.2024"})
	require.NoError(t, err)
	_, err = f.Handle(ctx, s, Input{Text: "похудение"})
	require.NoError(t, err)

	before := s.Clone()
	for _, bad := range []string{"abc", "-3", "0", ""} {
		out, err := f.Handle(ctx, s, Input{Text: bad})
		require.NoError(t, err)
		assert.NotEmpty(t, out.Invalid, bad)
		assert.Equal(t, "Вес?", out.Prompt.Text)
		assert.False(t, out.Done)
		assert.Equal(t, before, s, bad)
	}
}

func TestForm_ChoiceRejectsUnknownText(t *testing.T) {
	ctx := context.Background()
	f := testForm()
	s := session.New()
	_, _ = f.Start(ctx, s)
	_, _ = f.Handle(ctx, s, Input{Text: "01.01.2024"})

	out, err := f.Handle(ctx, s, Input{Text: "что-то"})
	require.NoError(t, err)
	assert.Equal(t, msgPickButton, out.Invalid)
	assert.Equal(t, "form:t:1", s.State)
}

func TestForm_BackStaleAndExtras(t *testing.T) {
	ctx := context.Background()
	f := testForm()
	s := session.New()
	_, _ = f.Start(ctx, s)
	_, _ = f.Handle(ctx, s, Input{Text: "01.01.2024"})

	out, err := f.Handle(ctx, s, Input{Callback: "form|t|1|x:finish"})
	require.NoError(t, err)
	assert.Equal(t, "finish", out.Action)
	assert.Equal(t, "form:t:1", s.State)

	out, err = f.Handle(ctx, s, Input{Callback: "form|t|0|1"})
	require.NoError(t, err)
	assert.True(t, out.Stale)

	out, err = f.Handle(ctx, s, Input{Callback: "form|t|1|back"})
	require.NoError(t, err)
	assert.Equal(t, "Дата?", out.Prompt.Text)
	assert.Equal(t, "form:t:0", s.State)
}

func TestForm_FileLimits(t *testing.T) {
	ctx := context.Background()
	f := testForm()
	s := session.New()
	s.Set("date", "2024-01-01")
	_, err := f.Resume(ctx, s, "file")
	require.NoError(t, err)

	out, err := f.Handle(ctx, s, Input{Document: &telegram.Document{FileID: "big", Size: MaxFileSize + 1}})
	require.NoError(t, err)
	assert.Equal(t, msgTooLarge, out.Invalid)

	out, err = f.Handle(ctx, s, Input{Text: "вот файл"})
	require.NoError(t, err)
	assert.Equal(t, msgSendFile, out.Invalid)
	assert.Equal(t, "2024-01-01", s.Data["date"])
}

func TestForm_DynamicOptions(t *testing.T) {
	ctx := context.Background()
	f := &Form{Name: "d", Steps: []Step{
		{Field: "group", Choices: []Choice{{Label: "ОАК", Value: "ОАК"}}},
		{Field: "name", Options: func(_ context.Context, v map[string]string) ([]Choice, error) {
			if v["group"] == "ОАК" {
				return []Choice{{Label: "Гемоглобин", Value: "12"}}, nil
			}
			return nil, nil
		}},
	}}
	s := session.New()
	_, _ = f.Start(ctx, s)
	out, err := f.Handle(ctx, s, Input{Callback: "form|d|0|0"})
	require.NoError(t, err)
	assert.Equal(t, "Гемоглобин", out.Prompt.Keyboard.Inline[0][0].Text)

	out, err = f.Handle(ctx, s, Input{Callback: "form|d|1|0"})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, "12", out.Values["name"])
	assert.Equal(t, "Гемоглобин", out.Values["name_label"])
}

func TestForm_Sub(t *testing.T) {
	f := testForm().Sub("edit_weight", "weight")
	require.Len(t, f.Steps, 1)
	assert.False(t, f.Steps[0].Back)

	s := session.New()
	_, err := f.Start(context.Background(), s)
	require.NoError(t, err)
	out, err := f.Handle(context.Background(), s, Input{Text: "80"})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, "80", out.Values["weight"])
}

func TestForm_NotActive(t *testing.T) {
	_, err := testForm().Handle(context.Background(), session.New(), Input{Text: "x"})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestValidators(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC) }

	v, err := NaturalDate(now)("вчера")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-19", v)

	_, err = NaturalDate(now)("01.01.2099")
	assert.EqualError(t, err, "Дата не может быть в будущем.")

	_, err = StrictDate("2024-05-19")
	assert.Error(t, err)

	v, err = NonNegativeNumber("0")
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	_, err = PositiveNumber("NaN")
	assert.Error(t, err)

	_, err = Text(5)("слишком длинно")
	assert.Error(t, err)
}
