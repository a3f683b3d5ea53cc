package recommendation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medcard-bot/internal/labs"
	"medcard-bot/internal/nutrition"
	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/profile"
)

// Advisor writes rule based recommendations when profile or lab data changes.
// It satisfies profile.Listener and labs.Listener.
type Advisor struct {
	repo Repository
	log  *zap.Logger
}

func NewAdvisor(repo Repository, log *zap.Logger) *Advisor {
	return &Advisor{repo: repo, log: log}
}

var (
	_ profile.Listener = (*Advisor)(nil)
	_ labs.Listener    = (*Advisor)(nil)
)

// NutritionText summarizes the macro targets for the profile's weight and goal.
func NutritionText(weight float64, goal string) string {
	m := nutrition.Calculate(weight, goal)
	if goal == "" {
		goal = profile.GoalMaintain
	}
	// truncated like the КБЖУ screen
	return fmt.Sprintf("Цель «%s»: %d ккал в день, белки %d г, жиры %d г, углеводы %d г. %s.",
		goal, int(m.Calories), int(m.Proteins), int(m.Fats), int(m.Carbs), m.ChangeText())
}

// ProfileSaved keeps a single up to date nutrition entry.
func (a *Advisor) ProfileSaved(ctx context.Context, p *profile.Profile) error {
	if p.Weight == nil || *p.Weight <= 0 {
		return nil
	}
	rec := &Recommendation{
		TelegramID: p.TelegramID,
		Category:   CategoryNutrition,
		Text:       NutritionText(*p.Weight, p.Goal),
	}
	if err := a.repo.Replace(ctx, rec); err != nil {
		return fmt.Errorf("store nutrition recommendation: %w", err)
	}
	a.log.Debug("nutrition recommendation updated", zap.Int64("telegram_id", p.TelegramID))
	return nil
}

// LabText describes an out of range result, or returns "" when there is
// nothing to say.
func LabText(r *labs.Result) string {
	if r.Status() != labs.OutOfRange {
		return ""
	}
	lo, _, _ := labs.ParseRange(r.Reference)
	direction := "выше"
	if r.Value < lo {
		direction = "ниже"
	}
	return fmt.Sprintf("%s %s %s от %s: %s референса (%s). Обсудите результат с врачом.",
		r.Name, labs.FormatValue(r.Value), r.Units, dateparse.Format(r.Date), direction, r.Reference)
}

func (a *Advisor) LabResultSaved(ctx context.Context, r *labs.Result) error {
	text := LabText(r)
	if text == "" {
		return nil
	}
	rec := &Recommendation{TelegramID: r.TelegramID, Category: CategoryLabs, Text: text}
	if err := a.repo.Add(ctx, rec); err != nil {
		return fmt.Errorf("store lab recommendation: %w", err)
	}
	return nil
}
