package models

import "time"

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StudentID string    `json:"studentId"`
	Age       int       `json:"age"`
	Gender    Gender    `json:"gender,omitempty"`
	Major     string    `json:"major"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StudentInput is the raw, untrusted shape of a create or update submission.
type StudentInput struct {
	Name      string
	StudentID string
	Age       string
	Gender    string
	Major     string
}
