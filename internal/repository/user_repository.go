package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studentdesk/internal/ids"
	"studentdesk/internal/models"
)

const userColumns = `id, username, password_hash, COALESCE(external_id, ''), email, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (
			id, username, password_hash, external_id, email, created_at, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW()
		)
		RETURNING ` + userColumns

	if user.ID == "" {
		user.ID = ids.New()
	}

	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.ExternalID,
		user.Email,
	)
	created, err := scanUser(row)
	if err != nil {
		switch {
		case isUniqueViolation(err, usernameConstraint):
			return models.User{}, ErrDuplicateUsername
		case isUniqueViolation(err, externalIDConstraint):
			return models.User{}, ErrDuplicateExternalID
		}
		return models.User{}, err
	}
	return created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.findOne(ctx, query, username)
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return r.findOne(ctx, query, externalID)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username string, passwordHash []byte) error {
	const query = `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE username = $1
	`
	cmd, err := r.pool.Exec(ctx, query, username, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.ExternalID,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, err
	}
	return user, nil
}
