package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

// ErrNoMirror is returned when no mirrored snapshot exists.
var ErrNoMirror = errors.New("no mirrored catalog snapshot")

// Mirror keeps a copy of the last good snapshot outside the process.
type Mirror interface {
	Save(ctx context.Context, stores []*ranking.Store) error
	Restore(ctx context.Context) ([]*ranking.Store, error)
}

// RedisMirror stores the snapshot as one JSON document under a single key.
type RedisMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisMirror creates a mirror writing to key with the given expiry.
func NewRedisMirror(client *redis.Client, key string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, key: key, ttl: ttl}
}

type mirroredSnapshot struct {
	SavedAt time.Time        `json:"savedAt"`
	Stores  []*ranking.Store `json:"stores"`
}

// Save implements Mirror.
func (m *RedisMirror) Save(ctx context.Context, stores []*ranking.Store) error {
	data, err := json.Marshal(mirroredSnapshot{SavedAt: time.Now().UTC(), Stores: stores})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := m.client.Set(ctx, m.key, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot mirror: %w", err)
	}
	return nil
}

// Restore implements Mirror.
func (m *RedisMirror) Restore(ctx context.Context) ([]*ranking.Store, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoMirror
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot mirror: %w", err)
	}

	var snap mirroredSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot mirror: %w", err)
	}
	if err := Normalize(snap.Stores); err != nil {
		return nil, err
	}
	return snap.Stores, nil
}
