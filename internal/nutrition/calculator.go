// Package nutrition estimates daily macronutrient targets from body weight
// and goal.
package nutrition

import (
	"fmt"
	"math"

	"medcard-bot/internal/profile"
)

// gramsPerKcal converts a daily calorie delta into monthly body mass change.
const gramsPerKcal = 1 / 7.9

type Trend int

const (
	TrendNone Trend = iota
	TrendGain
	TrendLoss
)

type Macros struct {
	Weight   float64
	Goal     string
	Proteins float64
	Fats     float64
	Carbs    float64
	Calories float64
	// BaselineCarbs are the maintenance carbohydrates the goal is compared to.
	BaselineCarbs float64
	Trend         Trend
	// MonthlyChange is the expected mass change in grams per 30 days.
	MonthlyChange float64
}

// Calculate applies the goal specific carbohydrate factor. Unknown goals are
// treated as maintenance.
func Calculate(weight float64, goal string) Macros {
	m := Macros{
		Weight:   weight,
		Goal:     goal,
		Proteins: weight * 1.5,
		Fats:     weight - 10,
	}

	switch goal {
	case profile.GoalGain:
		m.Carbs = weight * 4
		m.BaselineCarbs = weight * 3
		m.Trend = TrendGain
	case profile.GoalLoss:
		m.Carbs = weight * 1.5
		m.BaselineCarbs = weight * 3
		m.Trend = TrendLoss
	default:
		m.Carbs = weight * 3
		m.BaselineCarbs = m.Carbs
	}

	m.Calories = calories(m.Proteins, m.Fats, m.Carbs)
	if m.Trend != TrendNone {
		baseline := calories(m.Proteins, m.Fats, m.BaselineCarbs)
		m.MonthlyChange = math.Abs(m.Calories-baseline) * 30 * gramsPerKcal
	}
	return m
}

func calories(p, f, c float64) float64 {
	return p*4 + f*9 + c*4
}

func (m Macros) ChangeText() string {
	switch m.Trend {
	case TrendGain:
		return fmt.Sprintf("Прогнозируемый прирост в месяц: %d г", int(m.MonthlyChange))
	case TrendLoss:
		return fmt.Sprintf("Прогнозируемая потеря в месяц: %d г", int(m.MonthlyChange))
	}
	return "Прогнозируемых изменений в массе нет"
}

// Summary renders the recommendation as HTML. Grams and calories are
// truncated, not rounded.
func (m Macros) Summary() string {
	return fmt.Sprintf("🏋️‍♂️ <b>Рекомендации по КБЖУ</b>\n\n"+
		"📏 Ваш вес: %.1f кг\n"+
		"🎯 Цель: %s\n\n"+
		"🥩 Белки: %d г\n"+
		"🧈 Жиры: %d г\n"+
		"🍞 Углеводы: %d г\n"+
		"🔥 Калории: %d ккал\n\n"+
		"🔄 %s",
		m.Weight, goalText(m.Goal),
		int(m.Proteins), int(m.Fats), int(m.Carbs), int(m.Calories),
		m.ChangeText())
}

func goalText(goal string) string {
	if goal == "" {
		return "не указана"
	}
	return goal
}
