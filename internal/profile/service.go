package profile

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Listener is notified after a questionnaire is stored or changed.
type Listener interface {
	ProfileSaved(ctx context.Context, p *Profile) error
}

type Service interface {
	Get(ctx context.Context, telegramID int64) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	UpdateField(ctx context.Context, telegramID int64, field Field, value string) (*Profile, error)
	Delete(ctx context.Context, telegramID int64) (bool, error)
}

type service struct {
	repo      Repository
	listeners []Listener
	log       *zap.Logger
}

func NewService(repo Repository, log *zap.Logger, listeners ...Listener) Service {
	return &service{repo: repo, listeners: listeners, log: log}
}

func (s *service) Get(ctx context.Context, telegramID int64) (*Profile, error) {
	return s.repo.Get(ctx, telegramID)
}

func (s *service) Save(ctx context.Context, p *Profile) error {
	if err := s.repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.notify(ctx, p)
	return nil
}

// UpdateField changes one answer. Numeric fields expect a decimal string.
func (s *service) UpdateField(ctx context.Context, telegramID int64, field Field, value string) (*Profile, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unknown profile field %q", field)
	}

	var v interface{} = value
	if field.Numeric() {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", field, err)
		}
		v = f
	}
	if err := s.repo.UpdateField(ctx, telegramID, field, v); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if field == FieldGoal || field == FieldWeight {
		s.notify(ctx, p)
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, telegramID int64) (bool, error) {
	return s.repo.Delete(ctx, telegramID)
}

// notify never fails the save: listeners produce derived data only.
func (s *service) notify(ctx context.Context, p *Profile) {
	for _, l := range s.listeners {
		if err := l.ProfileSaved(ctx, p); err != nil {
			s.log.Warn("profile listener failed", zap.Int64("telegram_id", p.TelegramID), zap.Error(err))
		}
	}
}
