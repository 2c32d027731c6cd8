package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/database"
)

// DefaultKeyPrefix namespaces the session keys.
const DefaultKeyPrefix = "lms:session:"

// RedisStore keeps the session in three redis keys. Writes go through one
// MULTI/EXEC so the keys change together.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a redis-backed store. An empty prefix uses
// DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

func (r *RedisStore) keys() []string {
	return []string{r.key(KeyAccessToken), r.key(KeyRefreshToken), r.key(KeyUser)}
}

func (r *RedisStore) Get(ctx context.Context) (s domain.Session, err error) {
	ctx, end := database.TraceOp(ctx, "redis", "session.get", r.prefix)
	defer func() { end(err) }()

	vals, err := r.client.MGet(ctx, r.keys()...).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis mget session: %w", err)
	}

	s.AccessToken, _ = vals[0].(string)
	s.RefreshToken, _ = vals[1].(string)
	if raw, ok := vals[2].(string); ok && raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return domain.Session{}, fmt.Errorf("unmarshal session user: %w", err)
		}
		s.User = &u
	}
	return s, nil
}

func (r *RedisStore) Set(ctx context.Context, s domain.Session) (err error) {
	ctx, end := database.TraceOp(ctx, "redis", "session.set", r.prefix)
	defer func() { end(err) }()

	var user []byte
	if s.User != nil {
		if user, err = json.Marshal(s.User); err != nil {
			return fmt.Errorf("marshal session user: %w", err)
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.keys()...)
		if s.AccessToken != "" {
			pipe.Set(ctx, r.key(KeyAccessToken), s.AccessToken, 0)
		}
		if s.RefreshToken != "" {
			pipe.Set(ctx, r.key(KeyRefreshToken), s.RefreshToken, 0)
		}
		if user != nil {
			pipe.Set(ctx, r.key(KeyUser), user, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) (err error) {
	ctx, end := database.TraceOp(ctx, "redis", "session.clear", r.prefix)
	defer func() { end(err) }()

	if err := r.client.Del(ctx, r.keys()...).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (r *RedisStore) SetAccessToken(ctx context.Context, token string) (err error) {
	ctx, end := database.TraceOp(ctx, "redis", "session.set_access_token", r.prefix)
	defer func() { end(err) }()

	return r.updateKey(ctx, KeyAccessToken, token)
}

func (r *RedisStore) SetUser(ctx context.Context, user *domain.User) (err error) {
	ctx, end := database.TraceOp(ctx, "redis", "session.set_user", r.prefix)
	defer func() { end(err) }()

	if user == nil {
		return r.updateKey(ctx, KeyUser, nil)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}
	return r.updateKey(ctx, KeyUser, data)
}

// updateKey overwrites one key, or deletes it for a nil value, only while a
// session is present. WATCH aborts the write if a concurrent Clear wins.
func (r *RedisStore) updateKey(ctx context.Context, name string, value any) error {
	keys := r.keys()
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoSession
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if value == nil {
				pipe.Del(ctx, r.key(name))
			} else {
				pipe.Set(ctx, r.key(name), value, 0)
			}
			return nil
		})
		return err
	}, keys...)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoSession):
		return ErrNoSession
	case errors.Is(err, redis.TxFailedErr):
		return ErrNoSession
	default:
		return fmt.Errorf("redis update session %s: %w", name, err)
	}
}
