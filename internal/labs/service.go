package labs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medcard-bot/internal/platform/dateparse"
	"medcard-bot/internal/report"
)

// Listener is notified after a result is stored.
type Listener interface {
	LabResultSaved(ctx context.Context, r *Result) error
}

type Renderer interface {
	LabTable(title string, rows []report.LabRow) ([]byte, error)
}

type Service interface {
	Groups(ctx context.Context) ([]string, error)
	Names(ctx context.Context, group string) ([]string, error)
	Variants(ctx context.Context, group, name string) ([]CatalogEntry, error)

	// Record converts raw from the chosen unit variant and stores it.
	Record(ctx context.Context, telegramID, variantID int64, date time.Time, raw float64) (*Result, error)
	Get(ctx context.Context, telegramID, id int64) (*Result, error)
	Delete(ctx context.Context, telegramID, id int64) (bool, error)

	Latest(ctx context.Context, telegramID int64) ([]Result, error)
	Dates(ctx context.Context, telegramID int64) ([]time.Time, error)
	ByDate(ctx context.Context, telegramID int64, date time.Time) ([]Result, error)
	ResultGroups(ctx context.Context, telegramID int64) ([]string, error)
	ResultNames(ctx context.Context, telegramID int64, group string) ([]string, error)
	ByName(ctx context.Context, telegramID int64, name string) ([]Result, error)

	// Report renders the last and previous result of every analysis as PDF.
	Report(ctx context.Context, telegramID int64) ([]byte, error)
}

type service struct {
	repo      Repository
	renderer  Renderer
	listeners []Listener
	log       *zap.Logger
}

func NewService(repo Repository, renderer Renderer, log *zap.Logger, listeners ...Listener) Service {
	return &service{repo: repo, renderer: renderer, listeners: listeners, log: log}
}

func (s *service) Groups(ctx context.Context) ([]string, error) {
	return s.repo.Groups(ctx)
}

func (s *service) Names(ctx context.Context, group string) ([]string, error) {
	return s.repo.Names(ctx, group)
}

func (s *service) Variants(ctx context.Context, group, name string) ([]CatalogEntry, error) {
	return s.repo.Variants(ctx, group, name)
}

func (s *service) Record(ctx context.Context, telegramID, variantID int64, date time.Time, raw float64) (*Result, error) {
	v, err := s.repo.Variant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("load unit variant %d: %w", variantID, err)
	}

	res := &Result{
		TelegramID: telegramID,
		Name:       v.Name,
		Group:      v.Group,
		Units:      v.StandardUnit,
		Reference:  v.StandardReference,
		Value:      Normalize(raw, v.Factor),
		Date:       date,
	}
	if err := s.repo.Add(ctx, res); err != nil {
		return nil, err
	}

	for _, l := range s.listeners {
		if err := l.LabResultSaved(ctx, res); err != nil {
			s.log.Warn("lab result listener failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *service) Get(ctx context.Context, telegramID, id int64) (*Result, error) {
	return s.repo.Get(ctx, telegramID, id)
}

func (s *service) Delete(ctx context.Context, telegramID, id int64) (bool, error) {
	return s.repo.Delete(ctx, telegramID, id)
}

func (s *service) Latest(ctx context.Context, telegramID int64) ([]Result, error) {
	return s.repo.Latest(ctx, telegramID)
}

func (s *service) Dates(ctx context.Context, telegramID int64) ([]time.Time, error) {
	return s.repo.Dates(ctx, telegramID)
}

func (s *service) ByDate(ctx context.Context, telegramID int64, date time.Time) ([]Result, error) {
	return s.repo.ByDate(ctx, telegramID, date)
}

func (s *service) ResultGroups(ctx context.Context, telegramID int64) ([]string, error) {
	return s.repo.ResultGroups(ctx, telegramID)
}

func (s *service) ResultNames(ctx context.Context, telegramID int64, group string) ([]string, error) {
	return s.repo.ResultNames(ctx, telegramID, group)
}

func (s *service) ByName(ctx context.Context, telegramID int64, name string) ([]Result, error) {
	return s.repo.ByName(ctx, telegramID, name)
}

func (s *service) Report(ctx context.Context, telegramID int64) ([]byte, error) {
	history, err := s.repo.History(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.renderer.LabTable("Результаты анализов", ReportRows(history))
}

// ReportRows pairs the newest and the previous result of each analysis.
// history must be ordered by name, newest first.
func ReportRows(history []Result) []report.LabRow {
	var rows []report.LabRow
	for i := 0; i < len(history); {
		j := i + 1
		for j < len(history) && history[j].Name == history[i].Name {
			j++
		}

		last := history[i]
		row := report.LabRow{
			Name:      last.Name,
			Last:      measurement(last),
			Reference: last.Reference,
			Units:     last.Units,
		}
		if j-i > 1 {
			prev := measurement(history[i+1])
			row.Previous = &prev
		}
		rows = append(rows, row)
		i = j
	}
	return rows
}

func measurement(r Result) report.Measurement {
	m := report.Measurement{Value: FormatValue(r.Value), Date: dateparse.Format(r.Date)}
	switch r.Status() {
	case InRange:
		m.Tone = report.Good
	case OutOfRange:
		m.Tone = report.Bad
	}
	return m
}
