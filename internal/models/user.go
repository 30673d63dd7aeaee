package models

import "time"

// User is a login identity. Either PasswordHash or ExternalID is set.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	ExternalID   string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
