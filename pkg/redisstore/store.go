package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
)

// Client is the subset of redis.UniversalClient used by Backend.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Backend stores each snapshot as a JSON envelope under <prefix>snapshot:<id>.
// Ids come from INCR on <prefix>seq, so they are sequential across all
// entities sharing the prefix.
type Backend struct {
	client Client
	prefix string
	ttl    time.Duration
}

type Option func(*Backend)

func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithTTL expires snapshots. Expired links show up as broken chains in
// snapshot.History.
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.ttl = ttl
	}
}

func New(client Client, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	b := &Backend{client: client, prefix: "fsm:"}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewFromConfig applies the key prefix and TTL from cfg.
func NewFromConfig(client Client, cfg Config) (*Backend, error) {
	return New(client, WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL))
}

func (b *Backend) seqKey() string {
	return b.prefix + "seq"
}

func (b *Backend) snapshotKey(id string) string {
	return b.prefix + "snapshot:" + id
}

func (b *Backend) Append(ctx context.Context, s snapshot.Snapshot) (string, error) {
	n, err := b.client.Incr(ctx, b.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("redisstore: allocate id: %w", err)
	}
	s.ID = strconv.FormatInt(n, 10)

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("redisstore: encode envelope: %w", err)
	}
	if err := b.client.Set(ctx, b.snapshotKey(s.ID), data, b.ttl).Err(); err != nil {
		return "", fmt.Errorf("redisstore: write snapshot: %w", err)
	}
	return s.ID, nil
}

func (b *Backend) Get(ctx context.Context, id string) (snapshot.Snapshot, error) {
	if id == "" {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	data, err := b.client.Get(ctx, b.snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("redisstore: read snapshot: %w", err)
	}

	var s snapshot.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("redisstore: decode envelope %s: %w", id, err)
	}
	return s, nil
}
