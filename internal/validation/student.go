package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"studentdesk/internal/models"
)

type Code string

const (
	CodeMissingField     Code = "missing_field"
	CodeInvalidName      Code = "invalid_name"
	CodeInvalidStudentID Code = "invalid_student_id"
	CodeInvalidAge       Code = "invalid_age"
	CodeInvalidGender    Code = "invalid_gender"
)

const (
	MinNameLength = 2
	MaxNameLength = 50
	MinAge        = 17
	MaxAge        = 100
)

var studentIDPattern = regexp.MustCompile(`^\d{8,10}$`)

// Error is a user-correctable problem with a submission. Message is safe to show.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError reports whether err is a validation failure and returns it.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

type Rules struct {
	RequireGender bool
}

// ValidateStudent checks input rule by rule and stops at the first failure.
// On success the returned student carries trimmed strings and a numeric age.
func ValidateStudent(input models.StudentInput, rules Rules) (models.Student, error) {
	name := strings.TrimSpace(input.Name)
	studentID := strings.TrimSpace(input.StudentID)
	age := strings.TrimSpace(input.Age)
	gender := strings.TrimSpace(input.Gender)
	major := strings.TrimSpace(input.Major)

	if name == "" || studentID == "" || age == "" || major == "" || (rules.RequireGender && gender == "") {
		return models.Student{}, newError(CodeMissingField, "All fields are required!")
	}

	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return models.Student{}, newError(CodeInvalidName, "Name must be 2–50 characters")
	}

	if !studentIDPattern.MatchString(studentID) {
		return models.Student{}, newError(CodeInvalidStudentID, "Student ID must be 8–10 digits only")
	}

	ageNum, err := strconv.Atoi(age)
	if err != nil || ageNum < MinAge || ageNum > MaxAge {
		return models.Student{}, newError(CodeInvalidAge, "Age must be between 17 and 100")
	}

	if gender != "" && !models.Gender(gender).Valid() {
		return models.Student{}, newError(CodeInvalidGender, "Gender must be Male or Female")
	}

	return models.Student{
		Name:      name,
		StudentID: studentID,
		Age:       ageNum,
		Gender:    models.Gender(gender),
		Major:     major,
	}, nil
}
