package service

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"studentdesk/internal/config"
	"studentdesk/internal/models"
	"studentdesk/internal/query"
	"studentdesk/internal/repository"
	"studentdesk/internal/validation"
)

// StudentService validates submissions before they reach the store.
type StudentService struct {
	students repository.StudentStore
	rules    validation.Rules
	opts     query.Options
	log      zerolog.Logger
}

func NewStudentService(students repository.StudentStore, cfg config.StudentsConfig, log zerolog.Logger) *StudentService {
	return &StudentService{
		students: students,
		rules:    validation.Rules{RequireGender: cfg.RequireGender},
		opts:     query.Options{SortByName: cfg.SortByName},
		log:      log,
	}
}

func (s *StudentService) Filter(params url.Values) query.StudentFilter {
	return query.BuildFilter(params, s.opts)
}

func (s *StudentService) List(ctx context.Context, filter query.StudentFilter) ([]models.Student, error) {
	return s.students.List(ctx, filter)
}

func (s *StudentService) Get(ctx context.Context, id string) (models.Student, error) {
	return s.students.GetByID(ctx, id)
}

func (s *StudentService) Create(ctx context.Context, input models.StudentInput) (models.Student, error) {
	student, err := validation.ValidateStudent(input, s.rules)
	if err != nil {
		return models.Student{}, err
	}

	created, err := s.students.Create(ctx, student)
	if err != nil {
		return models.Student{}, err
	}
	s.log.Debug().Str("id", created.ID).Str("student_id", created.StudentID).Msg("student created")
	return created, nil
}

// Update replaces every field of the record with the validated input.
func (s *StudentService) Update(ctx context.Context, id string, input models.StudentInput) (models.Student, error) {
	student, err := validation.ValidateStudent(input, s.rules)
	if err != nil {
		return models.Student{}, err
	}
	return s.students.Update(ctx, id, student)
}

func (s *StudentService) Delete(ctx context.Context, id string) (models.Student, error) {
	deleted, err := s.students.Delete(ctx, id)
	if err != nil {
		return models.Student{}, err
	}
	s.log.Debug().Str("id", deleted.ID).Msg("student deleted")
	return deleted, nil
}

func (s *StudentService) Count(ctx context.Context) (int64, error) {
	return s.students.Count(ctx)
}
