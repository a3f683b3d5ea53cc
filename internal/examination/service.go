package examination

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"
)

type Service interface {
	// Add stores the optional file first and the record second.
	Add(ctx context.Context, telegramID int64, name string, date time.Time, description string, file *Upload) (*Examination, error)
	Get(ctx context.Context, telegramID, id int64) (*Examination, error)
	List(ctx context.Context, telegramID int64) ([]Examination, error)
	// Update changes only what is given; nil keeps the current value. A
	// replaced file is removed from the store.
	Update(ctx context.Context, telegramID, id int64, description *string, file *Upload) error
	Delete(ctx context.Context, telegramID, id int64) error
	// Download returns the attached file and its display name.
	Download(ctx context.Context, telegramID, id int64) (string, []byte, error)
}

type service struct {
	repo  Repository
	files FileStore
	log   *zap.Logger
}

func NewService(repo Repository, files FileStore, log *zap.Logger) Service {
	return &service{repo: repo, files: files, log: log}
}

func (s *service) store(ctx context.Context, file *Upload) (string, error) {
	if file == nil {
		return "", nil
	}
	key, err := s.files.Save(ctx, file.Name, file.Data)
	if err != nil {
		return "", fmt.Errorf("store examination file: %w", err)
	}
	return key, nil
}

// discard removes a file that is no longer referenced. Failures only leave
// an orphan behind, so they are logged.
func (s *service) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Remove(ctx, key); err != nil {
		s.log.Warn("failed to remove examination file", zap.String("key", key), zap.Error(err))
	}
}

func (s *service) Add(ctx context.Context, telegramID int64, name string, date time.Time, description string, file *Upload) (*Examination, error) {
	key, err := s.store(ctx, file)
	if err != nil {
		return nil, err
	}
	e := &Examination{TelegramID: telegramID, Name: name, Date: date, Description: description, FileKey: key}
	if err := s.repo.Add(ctx, e); err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("save examination: %w", err)
	}
	return e, nil
}

func (s *service) Get(ctx context.Context, telegramID, id int64) (*Examination, error) {
	return s.repo.Get(ctx, telegramID, id)
}

func (s *service) List(ctx context.Context, telegramID int64) ([]Examination, error) {
	return s.repo.List(ctx, telegramID)
}

func (s *service) Update(ctx context.Context, telegramID, id int64, description *string, file *Upload) error {
	e, err := s.repo.Get(ctx, telegramID, id)
	if err != nil {
		return err
	}
	if description != nil {
		e.Description = *description
	}

	oldKey := e.FileKey
	newKey, err := s.store(ctx, file)
	if err != nil {
		return err
	}
	if newKey != "" {
		e.FileKey = newKey
	}

	ok, err := s.repo.Update(ctx, e)
	if err == nil && !ok {
		err = ErrNotFound
	}
	if err != nil {
		s.discard(ctx, newKey)
		return err
	}
	if newKey != "" {
		s.discard(ctx, oldKey)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, telegramID, id int64) error {
	e, err := s.repo.Get(ctx, telegramID, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, telegramID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.discard(ctx, e.FileKey)
	return nil
}

func (s *service) Download(ctx context.Context, telegramID, id int64) (string, []byte, error) {
	e, err := s.repo.Get(ctx, telegramID, id)
	if err != nil {
		return "", nil, err
	}
	if e.FileKey == "" {
		return "", nil, ErrNoFile
	}
	data, err := s.files.Load(ctx, e.FileKey)
	if err != nil {
		return "", nil, err
	}
	return path.Base(e.FileKey), data, nil
}
