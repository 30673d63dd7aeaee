package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/models"
	"studentdesk/internal/repository"
	"studentdesk/internal/validation"
)

var filterParams = []string{"name", "major", "gender", "minAge", "maxAge", "sort"}

// studentForm is what the new and edit pages echo back into their inputs.
type studentForm struct {
	Name      string
	StudentID string
	Age       string
	Gender    string
	Major     string
}

func formFromInput(in models.StudentInput) studentForm {
	return studentForm(in)
}

func formFromStudent(s models.Student) studentForm {
	return studentForm{
		Name:      s.Name,
		StudentID: s.StudentID,
		Age:       strconv.Itoa(s.Age),
		Gender:    string(s.Gender),
		Major:     s.Major,
	}
}

func studentInputFromForm(c *gin.Context) models.StudentInput {
	return models.StudentInput{
		Name:      c.PostForm("name"),
		StudentID: c.PostForm("studentId"),
		Age:       c.PostForm("age"),
		Gender:    c.PostForm("gender"),
		Major:     c.PostForm("major"),
	}
}

func (h HandlerSet) ListStudents(c *gin.Context) {
	params := c.Request.URL.Query()
	list, err := h.students.List(c.Request.Context(), h.students.Filter(params))
	if err != nil {
		h.logger(c).Error().Err(err).Msg("list students failed")
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	echo := make(map[string]string, len(filterParams))
	for _, key := range filterParams {
		echo[key] = params.Get(key)
	}

	h.render(c, http.StatusOK, "index.html", gin.H{
		"Title":    "Students",
		"Students": list,
		"Query":    echo,
	})
}

func (h HandlerSet) NewStudentPage(c *gin.Context) {
	h.render(c, http.StatusOK, "new.html", gin.H{
		"Title":   "Add student",
		"Student": studentForm{},
	})
}

func (h HandlerSet) CreateStudent(c *gin.Context) {
	input := studentInputFromForm(c)

	_, err := h.students.Create(c.Request.Context(), input)
	if err != nil {
		status, message := h.studentFormError(c, err, "This Student ID already exists!", "Failed to create student. Please try again.")
		h.render(c, status, "new.html", gin.H{
			"Title":   "Add student",
			"Error":   message,
			"Student": formFromInput(input),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/students")
}

func (h HandlerSet) EditStudentPage(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			c.String(http.StatusNotFound, "Student not found")
			return
		}
		h.logger(c).Error().Err(err).Msg("load student failed")
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	h.render(c, http.StatusOK, "edit.html", gin.H{
		"Title":   "Edit student",
		"ID":      student.ID,
		"Student": formFromStudent(student),
	})
}

// UpdateStudent redirects to the list when the record no longer exists.
func (h HandlerSet) UpdateStudent(c *gin.Context) {
	id := c.Param("id")
	input := studentInputFromForm(c)

	_, err := h.students.Update(c.Request.Context(), id, input)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			c.Redirect(http.StatusSeeOther, "/students")
			return
		}
		status, message := h.studentFormError(c, err, "Student ID already exists!", "Update failed")
		h.render(c, status, "edit.html", gin.H{
			"Title":   "Edit student",
			"ID":      id,
			"Error":   message,
			"Student": formFromInput(input),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/students")
}

// DeleteStudent treats a missing record as already deleted.
func (h HandlerSet) DeleteStudent(c *gin.Context) {
	_, err := h.students.Delete(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, repository.ErrStudentNotFound) {
		h.logger(c).Error().Err(err).Msg("delete student failed")
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}
	c.Redirect(http.StatusSeeOther, "/students")
}

func (h HandlerSet) studentFormError(c *gin.Context, err error, duplicateMsg string, failedMsg string) (int, string) {
	if verr, ok := validation.AsError(err); ok {
		return http.StatusBadRequest, verr.Message
	}
	if errors.Is(err, repository.ErrDuplicateStudentID) {
		return http.StatusBadRequest, duplicateMsg
	}
	h.logger(c).Error().Err(err).Msg("save student failed")
	return http.StatusInternalServerError, failedMsg
}
