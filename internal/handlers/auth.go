package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"studentdesk/internal/repository"
	"studentdesk/internal/service"
)

const (
	msgWrongCredentials = "Wrong username or password"
	msgLoginFailed      = "Login failed"
	msgServerError      = "Server error"
	msgUserNotFound     = "User not found"
)

func (h HandlerSet) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{
		"Title":     "Login",
		"Providers": h.providerNames(),
	})
}

func (h HandlerSet) Login(c *gin.Context) {
	username := c.PostForm("username")
	form := map[string]string{"username": username}

	user, err := h.auth.Login(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		status, message := http.StatusUnauthorized, msgWrongCredentials
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.logger(c).Error().Err(err).Msg("login lookup failed")
			status, message = http.StatusInternalServerError, msgServerError
		}
		h.render(c, status, "login.html", gin.H{
			"Title":     "Login",
			"Error":     message,
			"Form":      form,
			"Providers": h.providerNames(),
		})
		return
	}

	if err := h.startSession(c, user.Username); err != nil {
		h.logger(c).Error().Err(err).Str("username", user.Username).Msg("session start failed")
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{
			"Title":     "Login",
			"Error":     msgLoginFailed,
			"Form":      form,
			"Providers": h.providerNames(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/students")
}

func (h HandlerSet) SignupPage(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up"})
}

func (h HandlerSet) Signup(c *gin.Context) {
	username := c.PostForm("username")

	user, err := h.auth.Signup(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		status, message := http.StatusBadRequest, ""
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			message = "Username is required (max 50 characters)"
		case errors.Is(err, service.ErrPasswordTooShort):
			message = h.passwordTooShortMessage()
		case errors.Is(err, service.ErrUsernameTaken):
			message = "Username already taken"
		default:
			h.logger(c).Error().Err(err).Msg("signup failed")
			status, message = http.StatusInternalServerError, msgServerError
		}
		h.render(c, status, "signup.html", gin.H{
			"Title": "Sign up",
			"Error": message,
			"Form":  map[string]string{"username": username},
		})
		return
	}

	if err := h.startSession(c, user.Username); err != nil {
		h.logger(c).Error().Err(err).Str("username", user.Username).Msg("session start failed")
		h.render(c, http.StatusInternalServerError, "login.html", gin.H{
			"Title":     "Login",
			"Error":     msgLoginFailed,
			"Form":      map[string]string{"username": user.Username},
			"Providers": h.providerNames(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/students")
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), h.cookies.Read(c.Request)); err != nil {
		h.logger(c).Warn().Err(err).Msg("session destroy failed")
	}
	h.cookies.Clear(c.Writer)
	c.Redirect(http.StatusFound, "/login")
}

func (h HandlerSet) ForgotPasswordPage(c *gin.Context) {
	h.render(c, http.StatusOK, "forgot-password.html", gin.H{"Title": "Forgot password"})
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	user, err := h.auth.FindUser(c.Request.Context(), c.PostForm("username"))
	if err != nil {
		status, message := http.StatusNotFound, msgUserNotFound
		if !errors.Is(err, repository.ErrUserNotFound) {
			h.logger(c).Error().Err(err).Msg("forgot password lookup failed")
			status, message = http.StatusInternalServerError, msgServerError
		}
		h.render(c, status, "forgot-password.html", gin.H{
			"Title": "Forgot password",
			"Error": message,
		})
		return
	}

	h.render(c, http.StatusOK, "set-new-password.html", gin.H{
		"Title": "Set new password",
		"Form":  map[string]string{"username": user.Username},
	})
}

func (h HandlerSet) SetNewPassword(c *gin.Context) {
	username := c.PostForm("username")
	data := gin.H{
		"Title": "Set new password",
		"Form":  map[string]string{"username": username},
	}

	err := h.auth.SetPassword(c.Request.Context(), username, c.PostForm("password"), c.PostForm("confirm"))
	switch {
	case err == nil:
		h.logger(c).Info().Str("username", username).Msg("password changed")
		data["Success"] = "Password changed successfully!"
		h.render(c, http.StatusOK, "set-new-password.html", data)
		return
	case errors.Is(err, service.ErrPasswordMismatch):
		data["Error"] = "Passwords do not match"
	case errors.Is(err, service.ErrPasswordTooShort):
		data["Error"] = h.passwordTooShortMessage()
	case errors.Is(err, repository.ErrUserNotFound):
		data["Error"] = msgUserNotFound
	default:
		h.logger(c).Error().Err(err).Msg("password reset failed")
		data["Error"] = msgServerError
		h.render(c, http.StatusInternalServerError, "set-new-password.html", data)
		return
	}
	h.render(c, http.StatusBadRequest, "set-new-password.html", data)
}

func (h HandlerSet) passwordTooShortMessage() string {
	return fmt.Sprintf("Password too short (min %d chars)", h.cfg.Security.MinPasswordLength)
}
