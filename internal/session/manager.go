package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studentdesk/internal/models"
	"studentdesk/internal/repository"
	"studentdesk/internal/security"
)

const tokenBytes = 32

var ErrSessionFailed = errors.New("session failed")

// Handle is what the client holds: the raw token and when it stops being valid.
type Handle struct {
	Token     string
	ExpiresAt time.Time
}

type Manager struct {
	store repository.SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store repository.SessionStore, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Create discards priorToken's state and starts a fresh session for username.
func (m *Manager) Create(ctx context.Context, priorToken string, username string) (Handle, error) {
	if err := m.Destroy(ctx, priorToken); err != nil {
		return Handle{}, err
	}

	token, key, err := security.GenerateSessionToken(tokenBytes)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	now := m.now().UTC()
	session := models.Session{
		ID:        key,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return Handle{}, fmt.Errorf("%w: save: %v", ErrSessionFailed, err)
	}

	return Handle{Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := m.store.Delete(ctx, security.HashSessionToken(token))
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("%w: delete: %v", ErrSessionFailed, err)
	}
	return nil
}

func (m *Manager) CurrentUser(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	session, err := m.store.Get(ctx, security.HashSessionToken(token))
	if err != nil {
		return "", false
	}
	if session.Expired(m.now()) || session.Username == "" {
		return "", false
	}
	return session.Username, true
}
