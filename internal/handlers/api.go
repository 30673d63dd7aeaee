package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/models"
	"studentdesk/internal/repository"
	"studentdesk/internal/service"
	"studentdesk/internal/validation"
)

// scalar accepts a JSON string or number, so {"age": 21} and {"age": "21"} bind alike.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = scalar(num.String())
	return nil
}

type studentRequest struct {
	Name      scalar `json:"name"`
	StudentID scalar `json:"studentId"`
	Age       scalar `json:"age"`
	Gender    scalar `json:"gender"`
	Major     scalar `json:"major"`
}

func (r studentRequest) input() models.StudentInput {
	return models.StudentInput{
		Name:      string(r.Name),
		StudentID: string(r.StudentID),
		Age:       string(r.Age),
		Gender:    string(r.Gender),
		Major:     string(r.Major),
	}
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (h HandlerSet) APIListStudents(c *gin.Context) {
	list, err := h.students.List(c.Request.Context(), h.students.Filter(c.Request.URL.Query()))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if list == nil {
		list = []models.Student{}
	}
	c.JSON(http.StatusOK, list)
}

func (h HandlerSet) APIGetStudent(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h HandlerSet) APICreateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	student, err := h.students.Create(c.Request.Context(), req.input())
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

func (h HandlerSet) APIUpdateStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h HandlerSet) APIDeleteStudent(c *gin.Context) {
	student, err := h.students.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h HandlerSet) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := h.auth.IssueAPIToken(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgWrongCredentials})
			return
		}
		h.apiError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.cfg.Security.JWTTTL.Seconds()),
	})
}

func (h HandlerSet) apiError(c *gin.Context, err error) {
	if verr, ok := validation.AsError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		return
	}

	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, repository.ErrDuplicateStudentID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student ID already exists"})
	default:
		h.logger(c).Error().Err(err).Str("path", c.Request.URL.Path).Msg("api request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgServerError})
	}
}
