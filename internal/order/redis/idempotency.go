package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-preorder/internal/logger"
	"ms-preorder/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix    = "order_idem:"
	pendingValue = "pending"
)

// Redis remembers checkout results per idempotency key.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{
		Client: client,
		TTL:    ttl,
		Logger: log,
	}
}

// Reserve claims key for a new checkout. When the key was used before it
// returns the stored result, or nil with reserved=false while the first
// request is still running.
func (r *Redis) Reserve(ctx context.Context, key string) (*models.CreateOrderResponse, bool, error) {
	// a key can expire between SETNX and GET; claim it again once
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := r.Client.SetNX(ctx, keyPrefix+key, pendingValue, r.TTL).Result()
		if err != nil {
			return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}

		val, err := r.Client.Get(ctx, keyPrefix+key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("read idempotency key: %w", err)
		}
		if val == pendingValue {
			return nil, false, nil
		}

		var resp models.CreateOrderResponse
		if err := json.Unmarshal([]byte(val), &resp); err != nil {
			return nil, false, fmt.Errorf("decode idempotency result: %w", err)
		}
		r.Logger.Debug("REDIS", fmt.Sprintf("Replaying order %s for key %s", resp.OrderID, key))
		return &resp, false, nil
	}
	return nil, false, nil
}

// Complete stores the result of a successful checkout under key.
func (r *Redis) Complete(ctx context.Context, key string, resp *models.CreateOrderResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, keyPrefix+key, data, r.TTL).Err()
}

// Release frees key after a failed checkout so the client may retry.
func (r *Redis) Release(ctx context.Context, key string) error {
	val, err := r.Client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val != pendingValue {
		return nil
	}
	return r.Client.Del(ctx, keyPrefix+key).Err()
}
