package bot

import (
	"context"
	"errors"
	"fmt"

	"cargocalc-bot/pkg/redis"
)

// Session is the per-chat dialog state kept in Redis. The calculation
// itself lives in the orchestrator; the session only tracks where the
// dialog is and what the user typed so far.
type Session struct {
	Step        string `json:"step"`
	ProductName string `json:"product_name,omitempty"`
}

type SessionStorage struct {
	redis *redis.Client
}

func NewSessionStorage(redisClient *redis.Client) *SessionStorage {
	return &SessionStorage{redis: redisClient}
}

func (s *SessionStorage) Get(ctx context.Context, chatID int64) (Session, error) {
	var session Session
	err := s.redis.GetSession(ctx, chatID, &session)
	if errors.Is(err, redis.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *SessionStorage) Save(ctx context.Context, chatID int64, session Session) error {
	if err := s.redis.SaveSession(ctx, chatID, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStorage) SetStep(ctx context.Context, chatID int64, step string) error {
	session, err := s.Get(ctx, chatID)
	if err != nil {
		session = Session{}
	}
	session.Step = step
	return s.Save(ctx, chatID, session)
}

func (s *SessionStorage) SetProductName(ctx context.Context, chatID int64, name string) error {
	session, err := s.Get(ctx, chatID)
	if err != nil {
		session = Session{}
	}
	session.ProductName = name
	return s.Save(ctx, chatID, session)
}

func (s *SessionStorage) Clear(ctx context.Context, chatID int64) error {
	if err := s.redis.ClearSession(ctx, chatID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
