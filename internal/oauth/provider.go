package oauth

import (
	"context"
	"errors"

	"studentdesk/internal/config"
)

var ErrUnknownProvider = errors.New("unknown identity provider")

// Identity is the profile an external provider vouches for.
type Identity struct {
	Provider string
	ID       string
	Name     string
	Email    string
}

// ExternalID is the key under which the identity is linked to a local user.
func (i Identity) ExternalID() string {
	return i.Provider + ":" + i.ID
}

type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

type Registry map[string]Provider

func NewRegistry(cfg config.OAuthConfig) Registry {
	registry := Registry{}
	if cfg.Facebook.Enabled() {
		fb := NewFacebook(cfg.Facebook)
		registry[fb.Name()] = fb
	}
	return registry
}

func (r Registry) Lookup(name string) (Provider, error) {
	provider, ok := r[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return provider, nil
}
