package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"studentdesk/internal/config"
	"studentdesk/internal/models"
	"studentdesk/internal/oauth"
	"studentdesk/internal/repository"
	"studentdesk/internal/security"
)

const (
	maxUsernameLength = 50
	decoyPassword     = "studentdesk-decoy-password"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
)

type AuthService struct {
	users          repository.UserStore
	cfg            *config.AppConfig
	log            zerolog.Logger
	hashPassword   func(string) ([]byte, error)
	verifyPassword func(password string, hash []byte) (bool, error)

	decoyOnce sync.Once
	decoyHash []byte
}

func NewAuthService(users repository.UserStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:          users,
		cfg:            cfg,
		log:            log,
		hashPassword:   security.HashPassword,
		verifyPassword: security.VerifyPassword,
	}
}

// Login never tells the caller whether the username or the password was wrong.
func (s *AuthService) Login(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Unknown usernames pay for one hash comparison too.
			_, _ = s.verifyPassword(password, s.decoy())
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	if !s.VerifyPassword(user, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// decoy returns a hash made with the service's own hasher.
func (s *AuthService) decoy() []byte {
	s.decoyOnce.Do(func() {
		hash, err := s.hashPassword(decoyPassword)
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy password hash failed")
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}

func (s *AuthService) VerifyPassword(user models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	ok, err := s.verifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("username", user.Username).Msg("stored password hash unreadable")
		return false
	}
	return ok
}

func (s *AuthService) Signup(ctx context.Context, username string, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return models.User{}, ErrInvalidUsername
	}
	if err := s.checkPasswordLength(password); err != nil {
		return models.User{}, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, models.User{Username: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("username", username).Msg("user signed up")
	return user, nil
}

func (s *AuthService) FindUser(ctx context.Context, username string) (models.User, error) {
	return s.users.FindByUsername(ctx, strings.TrimSpace(username))
}

// SetPassword replaces the user's password. confirm must repeat password.
func (s *AuthService) SetPassword(ctx context.Context, username string, password string, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := s.checkPasswordLength(password); err != nil {
		return err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, strings.TrimSpace(username), hash); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Msg("password reset")
	return nil
}

// LoginWithIdentity returns the user linked to identity, creating one on first login.
func (s *AuthService) LoginWithIdentity(ctx context.Context, identity oauth.Identity) (models.User, error) {
	externalID := identity.ExternalID()

	user, err := s.users.FindByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("find user by identity: %w", err)
	}

	candidates := make([]string, 0, 2)
	if name := strings.TrimSpace(identity.Name); name != "" && utf8.RuneCountInString(name) <= maxUsernameLength {
		candidates = append(candidates, name)
	}
	candidates = append(candidates, identity.Provider+"_"+identity.ID)

	for _, username := range candidates {
		user, err = s.users.Create(ctx, models.User{
			Username:   username,
			ExternalID: externalID,
			Email:      identity.Email,
		})
		switch {
		case err == nil:
			s.log.Info().Str("username", username).Str("provider", identity.Provider).Msg("user created from identity")
			return user, nil
		case errors.Is(err, repository.ErrDuplicateUsername):
			continue
		case errors.Is(err, repository.ErrDuplicateExternalID):
			// Linked concurrently by another callback.
			return s.users.FindByExternalID(ctx, externalID)
		default:
			return models.User{}, fmt.Errorf("create user from identity: %w", err)
		}
	}
	return models.User{}, ErrUsernameTaken
}

// EnsureAdmin creates the bootstrap account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username string, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.Create(ctx, models.User{Username: username, PasswordHash: hash}); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	s.log.Info().Str("username", username).Msg("admin account created")
	return nil
}

func (s *AuthService) IssueAPIToken(ctx context.Context, username string, password string) (string, error) {
	user, err := s.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	return security.GenerateAPIToken(s.cfg.Security.JWTSecret, user.Username, s.cfg.Security.JWTTTL)
}

func (s *AuthService) ParseAPIToken(token string) (string, error) {
	claims, err := security.ParseAPIToken(token, s.cfg.Security.JWTSecret)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

func (s *AuthService) checkPasswordLength(password string) error {
	if utf8.RuneCountInString(password) < s.cfg.Security.MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
