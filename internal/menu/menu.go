// Package menu holds the reply keyboard labels shared by every flow.
package menu

import "medcard-bot/internal/platform/telegram"

const (
	Profile         = "📝 Данные пользователя"
	Nutrition       = "🍽 Рекомендации по КБЖУ"
	Labs            = "🧪 Анализы"
	Examinations    = "🩻 Обследования"
	Recommendations = "📊 Рекомендации"
	Appointments    = "💊 Назначения врачей"
	DeleteAll       = "❌ Удалить все данные"
	Back            = "⬅️ Назад"

	ProfileEnter  = "🖊 Ввести данные"
	ProfileView   = "👁️ Посмотреть текущие данные"
	ProfileEdit   = "✏️ Редактировать данные"
	ProfileDelete = "❌ Удалить данные"

	LabsAdd    = "➕ Добавить анализ"
	LabsView   = "📋 Посмотреть анализы"
	LabsDelete = "❌ Удалить анализ"

	AppointmentsAdd    = "➕ Добавить назначение"
	AppointmentsView   = "📋 Посмотреть назначения"
	AppointmentsEdit   = "✏️ Редактировать назначения"
	AppointmentsDelete = "❌ Удалить назначения"

	ExaminationsAdd    = "➕ Добавить обследование"
	ExaminationsView   = "📋 Посмотреть обследования"
	ExaminationsEdit   = "✏️ Редактировать обследования"
	ExaminationsDelete = "❌ Удалить обследования"
)

func Main() *telegram.Keyboard {
	return telegram.ReplyColumn(Profile, Nutrition, Labs, Examinations, Recommendations, Appointments, DeleteAll)
}

func ProfileMenu() *telegram.Keyboard {
	return telegram.ReplyColumn(ProfileEnter, ProfileView, ProfileEdit, ProfileDelete, Back)
}

func LabsMenu() *telegram.Keyboard {
	return telegram.ReplyColumn(LabsAdd, LabsView, LabsDelete, Back)
}

func AppointmentsMenu() *telegram.Keyboard {
	return telegram.ReplyColumn(AppointmentsAdd, AppointmentsView, AppointmentsEdit, AppointmentsDelete, Back)
}

func ExaminationsMenu() *telegram.Keyboard {
	return telegram.ReplyColumn(ExaminationsAdd, ExaminationsView, ExaminationsEdit, ExaminationsDelete, Back)
}
