// Package session keeps the per-conversation state of guided flows: the
// current state name and a small key/value accumulator.
package session

import "context"

type Session struct {
	State string            `json:"state"`
	Data  map[string]string `json:"data"`
}

// Store persists sessions by chat id. Get returns an empty session when
// nothing is stored.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, chatID int64, s *Session) error
	Clear(ctx context.Context, chatID int64) error
}

func New() *Session {
	return &Session{Data: map[string]string{}}
}

func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
}

// Reset drops both state and data.
func (s *Session) Reset() {
	s.State = ""
	s.Data = map[string]string{}
}

func (s *Session) Empty() bool {
	return s.State == "" && len(s.Data) == 0
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := &Session{State: s.State, Data: make(map[string]string, len(s.Data))}
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return c
}
