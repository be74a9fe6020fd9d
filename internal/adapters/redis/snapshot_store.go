// Package redis provides Redis-based adapters for session persistence.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/identity-session/internal/domain/auth"
	"github.com/target/identity-session/internal/ports"
)

// DefaultKeyPrefix namespaces snapshot keys.
const DefaultKeyPrefix = "identity-session:"

// SnapshotStore keeps the session snapshot as JSON under a single key.
// A positive TTL lets an abandoned session age out on its own.
type SnapshotStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// SnapshotStoreOptions configures a SnapshotStore.
type SnapshotStoreOptions struct {
	Namespace string
	Prefix    string
	TTL       time.Duration
}

// NewSnapshotStore creates a Redis-backed snapshot store.
func NewSnapshotStore(client redis.UniversalClient, opts SnapshotStoreOptions) (*SnapshotStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("snapshot namespace is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SnapshotStore{
		client: client,
		key:    prefix + opts.Namespace,
		ttl:    max(opts.TTL, 0),
	}, nil
}

// Key returns the Redis key holding the snapshot.
func (s *SnapshotStore) Key() string {
	return s.key
}

func (s *SnapshotStore) Load(ctx context.Context) (domainauth.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Snapshot{}, ports.ErrNoSnapshot
		}
		return domainauth.Snapshot{}, fmt.Errorf("redis get: %w", err)
	}

	var snap domainauth.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domainauth.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap domainauth.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	// A zero ttl means no expiry.
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)
