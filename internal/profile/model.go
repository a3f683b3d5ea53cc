package profile

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile not found")

const (
	GoalGain     = "Набор мышечной массы"
	GoalMaintain = "Поддержание формы"
	GoalLoss     = "Снижение веса"
)

// Profile is the per-user questionnaire. Numeric fields are nil when unknown.
type Profile struct {
	TelegramID int64
	Username   string
	FullName   string
	Goal       string
	Sport      string
	Height     *float64
	Weight     *float64
	Smoking    string
	Alcohol    string
	Diseases   string
	Heredity   string
	Symptoms   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Field identifies one editable questionnaire answer.
type Field string

const (
	FieldFullName Field = "fio"
	FieldGoal     Field = "goal"
	FieldSport    Field = "sport"
	FieldHeight   Field = "height"
	FieldWeight   Field = "weight"
	FieldSmoking  Field = "smoking"
	FieldAlcohol  Field = "alcohol"
	FieldDiseases Field = "chronic"
	FieldHeredity Field = "heredity"
	FieldSymptoms Field = "clinical"
)

// Fields lists the questionnaire in entry order.
var Fields = []Field{
	FieldFullName, FieldGoal, FieldSport, FieldHeight, FieldWeight,
	FieldSmoking, FieldAlcohol, FieldDiseases, FieldHeredity, FieldSymptoms,
}

var fieldTitles = map[Field]string{
	FieldFullName: "ФИО",
	FieldGoal:     "Цель",
	FieldSport:    "Спорт",
	FieldHeight:   "Рост",
	FieldWeight:   "Вес",
	FieldSmoking:  "Курение",
	FieldAlcohol:  "Алкоголь",
	FieldDiseases: "Хронические болезни",
	FieldHeredity: "Наследственность",
	FieldSymptoms: "Клинические проявления",
}

var fieldColumns = map[Field]string{
	FieldFullName: "full_name",
	FieldGoal:     "goal",
	FieldSport:    "sport",
	FieldHeight:   "height",
	FieldWeight:   "weight",
	FieldSmoking:  "smoking",
	FieldAlcohol:  "alcohol",
	FieldDiseases: "diseases",
	FieldHeredity: "heredity",
	FieldSymptoms: "symptoms",
}

func (f Field) Title() string { return fieldTitles[f] }

func (f Field) Valid() bool {
	_, ok := fieldColumns[f]
	return ok
}

func (f Field) Numeric() bool {
	return f == FieldHeight || f == FieldWeight
}
