package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"studentdesk/internal/config"
)

const defaultGraphURL = "https://graph.facebook.com"

type Facebook struct {
	config   *oauth2.Config
	graphURL string
}

func NewFacebook(cfg config.FacebookConfig) *Facebook {
	return &Facebook{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		graphURL: defaultGraphURL,
	}
}

// WithEndpoints points token exchange and profile lookups elsewhere.
func (f *Facebook) WithEndpoints(endpoint oauth2.Endpoint, graphURL string) *Facebook {
	f.config.Endpoint = endpoint
	f.graphURL = strings.TrimRight(graphURL, "/")
	return f
}

func (f *Facebook) Name() string {
	return "facebook"
}

func (f *Facebook) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (f *Facebook) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"/me?fields=id,name,email", nil)
	if err != nil {
		return Identity{}, err
	}

	resp, err := f.config.Client(ctx, token).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Identity{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.ID == "" {
		return Identity{}, errors.New("profile without id")
	}

	return Identity{
		Provider: f.Name(),
		ID:       profile.ID,
		Name:     strings.TrimSpace(profile.Name),
		Email:    profile.Email,
	}, nil
}
