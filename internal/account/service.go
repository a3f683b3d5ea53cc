// Package account removes everything the bot stores about a user.
package account

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FileRemover deletes stored examination files.
type FileRemover interface {
	Remove(ctx context.Context, key string) error
}

type Service interface {
	DeleteAll(ctx context.Context, telegramID int64) error
}

type service struct {
	repo  Repository
	files FileRemover
	log   *zap.Logger
}

func NewService(repo Repository, files FileRemover, log *zap.Logger) Service {
	return &service{repo: repo, files: files, log: log}
}

// DeleteAll commits the row deletion first; files are removed afterwards
// and failures there are only logged.
func (s *service) DeleteAll(ctx context.Context, telegramID int64) error {
	keys, err := s.repo.Purge(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("purge user data: %w", err)
	}
	for _, k := range keys {
		if err := s.files.Remove(ctx, k); err != nil {
			s.log.Warn("failed to remove examination file", zap.String("key", k), zap.Error(err))
		}
	}
	s.log.Info("user data deleted", zap.Int64("telegram_id", telegramID), zap.Int("files", len(keys)))
	return nil
}
