package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "cart:"
	defaultTTL     = 12 * time.Hour
	maxTxnAttempts = 5
)

// ErrConflict is returned when the cart kept changing under a transaction.
var ErrConflict = errors.New("cart: concurrent update, retry")

// RedisStore persists one cart per browser session. Updates run inside a
// WATCH transaction so two requests mutating the same cart serialize.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a store. ttl <= 0 selects the default.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Load returns the stored cart, or an empty one when none exists.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return decode(raw)
}

// Update applies fn to the stored cart and writes it back atomically. fn may
// run more than once when another request wins the race.
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(*Cart) error) (*Cart, error) {
	k := key(sessionID)
	var result *Cart
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		var c *Cart
		switch {
		case errors.Is(err, redis.Nil):
			c = New()
		case err != nil:
			return err
		default:
			if c, err = decode(raw); err != nil {
				return err
			}
		}
		if err := fn(c); err != nil {
			return err
		}
		payload, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		if err == nil {
			result = c
		}
		return err
	}
	for i := 0; i < maxTxnAttempts; i++ {
		err := s.client.Watch(ctx, txn, k)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

// Delete drops the stored cart.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}

func decode(raw []byte) (*Cart, error) {
	c := New()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}
