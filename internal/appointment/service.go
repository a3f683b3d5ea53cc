package appointment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Service interface {
	Add(ctx context.Context, telegramID int64, date time.Time, doctor, text string) (*Appointment, error)
	Get(ctx context.Context, telegramID, id int64) (*Appointment, error)
	Doctors(ctx context.Context, telegramID int64) ([]string, error)
	ByDoctor(ctx context.Context, telegramID int64, doctor string) ([]Appointment, error)
	// UpdateText returns ErrNotFound when the record is gone or belongs to
	// someone else.
	UpdateText(ctx context.Context, telegramID, id int64, text string) error
	Delete(ctx context.Context, telegramID, id int64) error
}

type service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Add(ctx context.Context, telegramID int64, date time.Time, doctor, text string) (*Appointment, error) {
	a := &Appointment{TelegramID: telegramID, Date: date, Doctor: doctor, Text: text}
	if err := s.repo.Add(ctx, a); err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	s.log.Debug("appointment saved", zap.Int64("telegram_id", telegramID), zap.Int64("id", a.ID))
	return a, nil
}

func (s *service) Get(ctx context.Context, telegramID, id int64) (*Appointment, error) {
	return s.repo.Get(ctx, telegramID, id)
}

func (s *service) Doctors(ctx context.Context, telegramID int64) ([]string, error) {
	return s.repo.Doctors(ctx, telegramID)
}

func (s *service) ByDoctor(ctx context.Context, telegramID int64, doctor string) ([]Appointment, error) {
	return s.repo.ByDoctor(ctx, telegramID, doctor)
}

func (s *service) UpdateText(ctx context.Context, telegramID, id int64, text string) error {
	ok, err := s.repo.UpdateText(ctx, telegramID, id, text)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) Delete(ctx context.Context, telegramID, id int64) error {
	ok, err := s.repo.Delete(ctx, telegramID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
