package profile

import (
	"strconv"

	"medcard-bot/internal/form"
)

var (
	goalChoices = []form.Choice{
		{Label: GoalGain, Value: GoalGain},
		{Label: GoalMaintain, Value: GoalMaintain},
		{Label: GoalLoss, Value: GoalLoss},
	}
	yesNo = []form.Choice{
		{Label: "Да", Value: "Да"},
		{Label: "Нет", Value: "Нет"},
	}
)

func height(text string) (string, error) {
	v, err := form.PositiveNumber(text)
	if err != nil {
		return "", errorText("Пожалуйста, введите корректное значение роста в сантиметрах (например, 170).")
	}
	return v, nil
}

func weight(text string) (string, error) {
	v, err := form.PositiveNumber(text)
	if err != nil {
		return "", errorText("Пожалуйста, введите корректное значение веса в килограммах (например, 70).")
	}
	return v, nil
}

type errorText string

func (e errorText) Error() string { return string(e) }

// EntryForm is the ten-step questionnaire.
func EntryForm() *form.Form {
	return &form.Form{
		Name: "profile",
		Steps: []form.Step{
			{Field: string(FieldFullName), Prompt: "Введите ваше ФИО:", Validate: form.Text(255)},
			{Field: string(FieldGoal), Prompt: "Укажите вашу цель:", Choices: goalChoices},
			{Field: string(FieldSport), Prompt: "Занимаетесь ли вы каким-либо спортом? Если да, укажите вид и частоту занятий:", Validate: form.Text(1000)},
			{Field: string(FieldHeight), Prompt: "Введите ваш рост (в сантиметрах):", Validate: height},
			{Field: string(FieldWeight), Prompt: "Введите ваш вес (в килограммах):", Validate: weight},
			{Field: string(FieldSmoking), Prompt: "Курите ли вы?", Choices: yesNo},
			{Field: string(FieldAlcohol), Prompt: "Употребляете ли вы алкоголь?", Choices: yesNo},
			{Field: string(FieldDiseases), Prompt: "Есть ли у вас хронические болезни? Перечислите:", Validate: form.Text(2000)},
			{Field: string(FieldHeredity), Prompt: "Наследственная предрасположенность (перечислите, если есть):", Validate: form.Text(2000)},
			{Field: string(FieldSymptoms), Prompt: "Клинические проявления (симптомы, жалобы):", Validate: form.Text(2000)},
		},
	}
}

var editPrompts = map[Field]string{
	FieldFullName: "Введите новое ФИО:",
	FieldGoal:     "Выберите новую цель:",
	FieldSport:    "Укажите новый вид и частоту занятий спортом:",
	FieldHeight:   "Введите новый рост (в сантиметрах):",
	FieldWeight:   "Введите новый вес (в килограммах):",
	FieldSmoking:  "Курите ли вы?",
	FieldAlcohol:  "Употребляете ли вы алкоголь?",
	FieldDiseases: "Перечислите ваши хронические болезни:",
	FieldHeredity: "Укажите наследственную предрасположенность:",
	FieldSymptoms: "Опишите клинические проявления (симптомы, жалобы):",
}

// EditForms builds a one-question form per field, reusing the entry
// validation and choices.
func EditForms(entry *form.Form) map[Field]*form.Form {
	out := make(map[Field]*form.Form, len(Fields))
	for _, f := range Fields {
		sub := entry.Sub("profile_edit_"+string(f), string(f))
		sub.Steps[0].Prompt = editPrompts[f]
		out[f] = sub
	}
	return out
}

// FromValues assembles a profile from completed questionnaire answers.
func FromValues(telegramID int64, username string, v map[string]string) *Profile {
	p := &Profile{
		TelegramID: telegramID,
		Username:   username,
		FullName:   v[string(FieldFullName)],
		Goal:       v[string(FieldGoal)],
		Sport:      v[string(FieldSport)],
		Smoking:    v[string(FieldSmoking)],
		Alcohol:    v[string(FieldAlcohol)],
		Diseases:   v[string(FieldDiseases)],
		Heredity:   v[string(FieldHeredity)],
		Symptoms:   v[string(FieldSymptoms)],
	}
	if h, err := strconv.ParseFloat(v[string(FieldHeight)], 64); err == nil {
		p.Height = &h
	}
	if w, err := strconv.ParseFloat(v[string(FieldWeight)], 64); err == nil {
		p.Weight = &w
	}
	return p
}
