package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studentdesk/internal/ids"
	"studentdesk/internal/models"
	"studentdesk/internal/query"
)

const studentColumns = `id, name, student_id, age, gender, major, created_at, updated_at`

type StudentRepository struct {
	pool *pgxpool.Pool
}

func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func (r *StudentRepository) Create(ctx context.Context, student models.Student) (models.Student, error) {
	const query = `
		INSERT INTO students (
			id, name, student_id, age, gender, major, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		)
		RETURNING ` + studentColumns

	if student.ID == "" {
		student.ID = ids.New()
	}

	row := r.pool.QueryRow(ctx, query,
		student.ID,
		student.Name,
		student.StudentID,
		student.Age,
		string(student.Gender),
		student.Major,
	)
	created, err := scanStudent(row)
	if err != nil {
		if isUniqueViolation(err, studentIDConstraint) {
			return models.Student{}, ErrDuplicateStudentID
		}
		return models.Student{}, err
	}
	return created, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (r *StudentRepository) List(ctx context.Context, filter query.StudentFilter) ([]models.Student, error) {
	where, args := studentWhere(filter)
	stmt := `SELECT ` + studentColumns + ` FROM students` + where
	if filter.SortByName {
		stmt += ` ORDER BY name ASC, id ASC`
	}

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (r *StudentRepository) Update(ctx context.Context, id string, student models.Student) (models.Student, error) {
	const query = `
		UPDATE students
		SET name = $2,
		    student_id = $3,
		    age = $4,
		    gender = $5,
		    major = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + studentColumns

	row := r.pool.QueryRow(ctx, query,
		id,
		student.Name,
		student.StudentID,
		student.Age,
		string(student.Gender),
		student.Major,
	)
	updated, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Student{}, ErrStudentNotFound
		}
		if isUniqueViolation(err, studentIDConstraint) {
			return models.Student{}, ErrDuplicateStudentID
		}
		return models.Student{}, err
	}
	return updated, nil
}

func (r *StudentRepository) Delete(ctx context.Context, id string) (models.Student, error) {
	const query = `DELETE FROM students WHERE id = $1 RETURNING ` + studentColumns

	deleted, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return deleted, nil
}

func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanStudent(row pgx.Row) (models.Student, error) {
	var (
		student models.Student
		gender  string
	)
	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.StudentID,
		&student.Age,
		&gender,
		&student.Major,
		&student.CreatedAt,
		&student.UpdatedAt,
	); err != nil {
		return models.Student{}, err
	}
	student.Gender = models.Gender(gender)
	return student, nil
}

// studentWhere renders filter as a WHERE clause with positional arguments.
func studentWhere(filter query.StudentFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Name != "" {
		add(`name ILIKE $%d ESCAPE '\'`, query.LikePattern(filter.Name))
	}
	if filter.Major != "" {
		add(`major ILIKE $%d ESCAPE '\'`, query.LikePattern(filter.Major))
	}
	if filter.Gender != "" {
		add(`gender = $%d`, string(filter.Gender))
	}
	if filter.MinAge != nil {
		add(`age >= $%d`, *filter.MinAge)
	}
	if filter.MaxAge != nil {
		add(`age <= $%d`, *filter.MaxAge)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
