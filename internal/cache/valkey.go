// Package cache keeps read-mostly data in Valkey: the event list and
// reservations by code. Every entry can be rebuilt from Postgres, so a cache
// failure is logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pierre/internal/config"
	"pierre/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	eventsKey      = "pierre:events"
	reservationKey = "pierre:reservation:"
)

type ValkeyClient struct {
	client   redis.Cmdable
	closer   func() error
	eventTTL time.Duration
	codeTTL  time.Duration
}

func NewValkeyClient(cfg config.CacheConfig) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	c := New(rdb, cfg.EventTTL, cfg.CodeTTL)
	c.closer = rdb.Close
	return c, nil
}

// New wraps an existing client; tests pass a redismock client here.
func New(client redis.Cmdable, eventTTL, codeTTL time.Duration) *ValkeyClient {
	return &ValkeyClient{client: client, eventTTL: eventTTL, codeTTL: codeTTL}
}

// Events returns the cached event list. ok is false on a miss.
func (v *ValkeyClient) Events(ctx context.Context) ([]models.Event, bool) {
	var events []models.Event
	if !v.get(ctx, eventsKey, &events) {
		return nil, false
	}
	return events, true
}

func (v *ValkeyClient) SetEvents(ctx context.Context, events []models.Event) {
	v.set(ctx, eventsKey, events, v.eventTTL)
}

func (v *ValkeyClient) InvalidateEvents(ctx context.Context) {
	v.del(ctx, eventsKey)
}

func (v *ValkeyClient) Reservation(ctx context.Context, code string) (*models.Reservation, bool) {
	var res models.Reservation
	if !v.get(ctx, reservationKey+code, &res) {
		return nil, false
	}
	return &res, true
}

func (v *ValkeyClient) SetReservation(ctx context.Context, res *models.Reservation) {
	if res == nil {
		return
	}
	v.set(ctx, reservationKey+res.Code, res, v.codeTTL)
}

func (v *ValkeyClient) InvalidateReservation(ctx context.Context, code string) {
	v.del(ctx, reservationKey+code)
}

func (v *ValkeyClient) get(ctx context.Context, key string, out any) bool {
	data, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Cache lookup failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		v.del(ctx, key)
		return false
	}
	return true
}

func (v *ValkeyClient) set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (v *ValkeyClient) del(ctx context.Context, key string) {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("Cache invalidation failed", "key", key, "error", err)
	}
}

func (v *ValkeyClient) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer()
}
