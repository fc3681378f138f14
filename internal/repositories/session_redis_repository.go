package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gemstore/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 3 * time.Second

// RedisSessionRepository keeps sessions in Redis; key expiry enforces the TTL.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

type redisSession struct {
	UserID    uint      `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewRedisSessionRepository builds a Redis-backed session repository.
func NewRedisSessionRepository(addr, password string) *RedisSessionRepository {
	return NewRedisSessionRepositoryWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}))
}

// NewRedisSessionRepositoryWithClient wraps an existing client.
func NewRedisSessionRepositoryWithClient(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, prefix: "gemstore"}
}

func (r *RedisSessionRepository) sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, token)
}

func (r *RedisSessionRepository) userKey(userID uint) string {
	return fmt.Sprintf("%s:user_sessions:%d", r.prefix, userID)
}

// Ping checks connectivity.
func (r *RedisSessionRepository) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close releases the client.
func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}

// Create writes the token mapping with a TTL matching the session expiry and
// indexes the token under its user.
func (r *RedisSessionRepository) Create(session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", session.ExpiresAt)
	}
	body, err := json.Marshal(redisSession{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	userKey := r.userKey(session.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.Token), body, ttl)
		pipe.SAdd(ctx, userKey, session.Token)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get resolves a token. redis.Nil means the key is absent or expired.
func (r *RedisSessionRepository) Get(token string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	raw, err := r.client.Get(ctx, r.sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &models.Session{
		Token:     token,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Delete removes a token mapping. Unknown tokens are ignored.
func (r *RedisSessionRepository) Delete(token string) error {
	session, err := r.Get(token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(token))
		pipe.SRem(ctx, r.userKey(session.UserID), token)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of userID except keep.
func (r *RedisSessionRepository) DeleteByUser(userID uint, keep string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	userKey := r.userKey(userID)
	tokens, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list sessions of user %d: %w", userID, err)
	}
	for _, token := range tokens {
		if token == keep {
			continue
		}
		if err := r.client.Del(ctx, r.sessionKey(token)).Err(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if err := r.client.SRem(ctx, userKey, token).Err(); err != nil {
			return fmt.Errorf("failed to unindex session: %w", err)
		}
	}
	return nil
}
