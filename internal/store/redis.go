// AngelaMos | 2026
// redis.go

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

// RedisSessions keeps sessions in redis and lets key expiry retire them.
type RedisSessions struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return core.RedisKey("session", id)
}

func (r *RedisSessions) GetSession(
	ctx context.Context,
	id string,
) (*model.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.IsExpired(r.now()) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}

	return &sess, nil
}

func (r *RedisSessions) PutSession(
	ctx context.Context,
	session *model.Session,
) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisSessions) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*RedisSessions)(nil)
