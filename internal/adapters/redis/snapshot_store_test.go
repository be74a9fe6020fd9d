package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/identity-session/internal/domain/auth"
	"github.com/target/identity-session/internal/ports"
	"github.com/target/identity-session/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available; the client is closed on cleanup.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func sampleSnapshot() domainauth.Snapshot {
	name := "Koi Keeper"
	return domainauth.Snapshot{
		Identity: &domainauth.Identity{
			ID:          "42",
			Email:       "keeper@example.com",
			Username:    "keeper",
			Role:        domainauth.RoleFarmStaff,
			DisplayName: &name,
		},
		IsAuthenticated: true,
	}
}

func TestNewSnapshotStore_Validation(t *testing.T) {
	_, err := NewSnapshotStore(nil, SnapshotStoreOptions{Namespace: "auth-storage"})
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = NewSnapshotStore(client, SnapshotStoreOptions{})
	assert.Error(t, err)

	store, err := NewSnapshotStore(client, SnapshotStoreOptions{Namespace: "auth-storage"})
	require.NoError(t, err)
	assert.Equal(t, "identity-session:auth-storage", store.Key())
}

func TestSnapshotStore_SaveLoadClear(t *testing.T) {
	client := setupTestRedis(t)

	store, err := NewSnapshotStore(client, SnapshotStoreOptions{Namespace: "auth-storage"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ports.ErrNoSnapshot)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ports.ErrNoSnapshot)

	// Clearing twice is fine.
	require.NoError(t, store.Clear(ctx))
}

func TestSnapshotStore_TTL(t *testing.T) {
	client := setupTestRedis(t)

	store, err := NewSnapshotStore(client, SnapshotStoreOptions{Namespace: "ttl", TTL: time.Hour})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot()))
	ttl, err := client.TTL(ctx, store.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestSnapshotStore_CorruptPayload(t *testing.T) {
	client := setupTestRedis(t)

	store, err := NewSnapshotStore(client, SnapshotStoreOptions{Namespace: "corrupt"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, store.Key(), "{not json", 0).Err())
	_, err = store.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNoSnapshot)
}
