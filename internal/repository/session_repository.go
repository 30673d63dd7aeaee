package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studentdesk/internal/models"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Save(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, username, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4
		)
		ON CONFLICT (id)
		DO UPDATE SET
			username = EXCLUDED.username,
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Username,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	const query = `
		SELECT id, username, created_at, expires_at
		FROM user_sessions
		WHERE id = $1 AND expires_at > NOW()
	`

	var session models.Session
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Username,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
