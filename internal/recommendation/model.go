package recommendation

import "time"

const (
	CategoryNutrition = "Питание"
	CategoryLabs      = "Анализы"
)

type Recommendation struct {
	ID         int64
	TelegramID int64
	Category   string
	Text       string
	CreatedAt  time.Time
}
