package session

import (
	"crypto/sha512"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"studentdesk/internal/config"
)

// Cookies carries the session token in a signed cookie.
type Cookies struct {
	codec *securecookie.SecureCookie
	cfg   config.SessionConfig
}

func NewCookies(cfg config.SessionConfig) *Cookies {
	hashKey := sha512.Sum512([]byte(cfg.Secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.TTL / time.Second))

	return &Cookies{codec: codec, cfg: cfg}
}

func (c *Cookies) Name() string {
	return c.cfg.CookieName
}

func (c *Cookies) Write(w http.ResponseWriter, handle Handle) error {
	encoded, err := c.codec.Encode(c.cfg.CookieName, handle.Token)
	if err != nil {
		return err
	}

	http.SetCookie(w, c.cookie(encoded, handle.ExpiresAt, int(time.Until(handle.ExpiresAt)/time.Second)))
	return nil
}

// Read returns the token carried by r, or "" when the cookie is absent or fails verification.
func (c *Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.cfg.CookieName)
	if err != nil {
		return ""
	}

	var token string
	if err := c.codec.Decode(c.cfg.CookieName, cookie.Value, &token); err != nil {
		return ""
	}
	return token
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", time.Unix(0, 0), -1))
}

func (c *Cookies) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.cfg.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   c.cfg.Secure,
		HttpOnly: c.cfg.HTTPOnly,
		SameSite: c.cfg.SameSiteMode(),
	}
}
