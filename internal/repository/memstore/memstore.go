// Package memstore keeps students, users and sessions in process memory.
// It backs the "memory" storage driver for local runs and the test suites.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"studentdesk/internal/ids"
	"studentdesk/internal/models"
	"studentdesk/internal/query"
	"studentdesk/internal/repository"
)

type StudentRepository struct {
	mu       sync.RWMutex
	now      func() time.Time
	students map[string]models.Student
	order    []string
}

func NewStudentRepository() *StudentRepository {
	return &StudentRepository{
		now:      time.Now,
		students: make(map[string]models.Student),
	}
}

func (r *StudentRepository) Create(_ context.Context, student models.Student) (models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.studentIDTaken(student.StudentID, "") {
		return models.Student{}, repository.ErrDuplicateStudentID
	}
	if student.ID == "" {
		student.ID = ids.New()
	}
	now := r.now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	r.students[student.ID] = student
	r.order = append(r.order, student.ID)
	return student, nil
}

func (r *StudentRepository) GetByID(_ context.Context, id string) (models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	student, ok := r.students[id]
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}
	return student, nil
}

func (r *StudentRepository) List(_ context.Context, filter query.StudentFilter) ([]models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := make([]models.Student, 0, len(r.order))
	for _, id := range r.order {
		if s := r.students[id]; filter.Matches(s) {
			students = append(students, s)
		}
	}
	if filter.SortByName {
		sort.SliceStable(students, func(i, j int) bool {
			return students[i].Name < students[j].Name
		})
	}
	return students, nil
}

func (r *StudentRepository) Update(_ context.Context, id string, student models.Student) (models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.students[id]
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}
	if r.studentIDTaken(student.StudentID, id) {
		return models.Student{}, repository.ErrDuplicateStudentID
	}

	student.ID = id
	student.CreatedAt = existing.CreatedAt
	student.UpdatedAt = r.now().UTC()
	r.students[id] = student
	return student, nil
}

func (r *StudentRepository) Delete(_ context.Context, id string) (models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	student, ok := r.students[id]
	if !ok {
		return models.Student{}, repository.ErrStudentNotFound
	}
	delete(r.students, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return student, nil
}

func (r *StudentRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.students)), nil
}

// studentIDTaken must be called with mu held.
func (r *StudentRepository) studentIDTaken(studentID, exceptID string) bool {
	for id, s := range r.students {
		if id != exceptID && s.StudentID == studentID {
			return true
		}
	}
	return false
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

func (r *UserRepository) Create(_ context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return models.User{}, repository.ErrDuplicateUsername
	}
	if user.ExternalID != "" {
		for _, existing := range r.users {
			if existing.ExternalID == user.ExternalID {
				return models.User{}, repository.ErrDuplicateExternalID
			}
		}
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.Username] = user
	return user, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByExternalID(_ context.Context, externalID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if externalID != "" && user.ExternalID == externalID {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (r *UserRepository) UpdatePassword(_ context.Context, username string, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = append([]byte(nil), passwordHash...)
	user.UpdatedAt = time.Now().UTC()
	r.users[username] = user
	return nil
}

type SessionRepository struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]models.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		now:      time.Now,
		sessions: make(map[string]models.Session),
	}
}

// WithClock replaces the time source used for expiry checks.
func (r *SessionRepository) WithClock(now func() time.Time) *SessionRepository {
	r.now = now
	return r
}

func (r *SessionRepository) Save(_ context.Context, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok || session.Expired(r.now()) {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of stored sessions, expired ones included.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

var (
	_ repository.StudentStore  = (*StudentRepository)(nil)
	_ repository.UserStore     = (*UserRepository)(nil)
	_ repository.SessionStore  = (*SessionRepository)(nil)
	_ repository.SessionPurger = (*SessionRepository)(nil)
)
