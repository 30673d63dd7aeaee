package repository

import (
	"context"
	"errors"
	"time"

	"studentdesk/internal/models"
	"studentdesk/internal/query"
)

var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrDuplicateStudentID  = errors.New("student id already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateExternalID = errors.New("external id already linked")
	ErrSessionNotFound     = errors.New("session not found")
)

// StudentStore persists student records. Create and Update enforce studentId uniqueness.
type StudentStore interface {
	Create(ctx context.Context, student models.Student) (models.Student, error)
	GetByID(ctx context.Context, id string) (models.Student, error)
	List(ctx context.Context, filter query.StudentFilter) ([]models.Student, error)
	Update(ctx context.Context, id string, student models.Student) (models.Student, error)
	Delete(ctx context.Context, id string) (models.Student, error)
	Count(ctx context.Context) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (models.User, error)
	UpdatePassword(ctx context.Context, username string, passwordHash []byte) error
}

// SessionStore keeps server-side session state keyed by the hashed token.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionPurger is implemented by session stores without native expiry.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
