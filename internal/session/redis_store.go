package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studentdesk/internal/models"
	"studentdesk/internal/repository"
)

const redisKeyPrefix = "session:"

type redisRecord struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisStore keeps session state in Redis and lets key expiry reclaim it.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, session models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, session.ID)
	}

	payload, err := json.Marshal(redisRecord{
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return s.client.Set(ctx, redisKeyPrefix+session.ID, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Session, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, repository.ErrSessionNotFound
		}
		return models.Session{}, err
	}

	var record redisRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}

	return models.Session{
		ID:        id,
		Username:  record.Username,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKeyPrefix+id).Err()
}

var _ repository.SessionStore = (*RedisStore)(nil)
