package handlers

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"studentdesk/internal/config"
)

const (
	oauthStateCookie = "studentdesk_oauth"
	oauthStateTTL    = 600
)

var errStateMismatch = errors.New("oauth state mismatch")

// newOAuthStateStore keeps the anti-forgery state in a short-lived signed
// cookie scoped to /auth. SameSite must stay Lax so the provider's redirect
// back carries it.
func newOAuthStateStore(cfg config.SessionConfig) sessions.Store {
	key := sha256.Sum256([]byte("oauth-state:" + cfg.Secret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/auth",
		Domain:   cfg.Domain,
		MaxAge:   oauthStateTTL,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (h HandlerSet) BeginExternalLogin(c *gin.Context) {
	provider, err := h.providers.Lookup(c.Param("provider"))
	if err != nil {
		c.String(http.StatusNotFound, "Unknown login provider")
		return
	}

	state := uuid.NewString()
	sess, _ := h.oauthState.Get(c.Request, oauthStateCookie)
	sess.Values["state"] = state
	sess.Values["provider"] = provider.Name()
	if err := sess.Save(c.Request, c.Writer); err != nil {
		h.logger(c).Error().Err(err).Msg("save oauth state failed")
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

func (h HandlerSet) CompleteExternalLogin(c *gin.Context) {
	provider, err := h.providers.Lookup(c.Param("provider"))
	if err != nil {
		c.String(http.StatusNotFound, "Unknown login provider")
		return
	}

	if err := h.consumeState(c, provider.Name()); err != nil {
		h.logger(c).Warn().Err(err).Str("provider", provider.Name()).Msg("external login rejected")
		h.externalLoginFailed(c, http.StatusBadRequest)
		return
	}

	if c.Query("error") != "" || c.Query("code") == "" {
		h.externalLoginFailed(c, http.StatusUnauthorized)
		return
	}

	identity, err := provider.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger(c).Error().Err(err).Str("provider", provider.Name()).Msg("identity exchange failed")
		h.externalLoginFailed(c, http.StatusBadGateway)
		return
	}

	user, err := h.auth.LoginWithIdentity(c.Request.Context(), identity)
	if err != nil {
		h.logger(c).Error().Err(err).Str("provider", provider.Name()).Msg("identity login failed")
		h.externalLoginFailed(c, http.StatusInternalServerError)
		return
	}

	if err := h.startSession(c, user.Username); err != nil {
		h.logger(c).Error().Err(err).Str("username", user.Username).Msg("session start failed")
		h.externalLoginFailed(c, http.StatusInternalServerError)
		return
	}

	c.Redirect(http.StatusFound, "/students")
}

// consumeState checks the returned state against the cookie and expires the cookie either way.
func (h HandlerSet) consumeState(c *gin.Context, provider string) error {
	sess, err := h.oauthState.Get(c.Request, oauthStateCookie)
	if err != nil {
		return err
	}

	expected, _ := sess.Values["state"].(string)
	stored, _ := sess.Values["provider"].(string)

	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return err
	}

	if expected == "" || stored != provider || c.Query("state") != expected {
		return errStateMismatch
	}
	return nil
}

func (h HandlerSet) externalLoginFailed(c *gin.Context, status int) {
	h.render(c, status, "login.html", gin.H{
		"Title":     "Login",
		"Error":     msgLoginFailed,
		"Providers": h.providerNames(),
	})
}
