package testutil

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisAddr returns the Redis address used by tests: TEST_REDIS_ADDR, then REDIS_ADDR
// (set by CI), then the local docker-compose test port.
func TestRedisAddr() string {
	if addr := getEnvOrDefault("TEST_REDIS_ADDR", ""); addr != "" {
		return addr
	}
	return getEnvOrDefault("REDIS_ADDR", "localhost:56379")
}

// SetupTestRedis returns a client on an emptied test database (TEST_REDIS_DB, default 1).
// The client is closed when the test finishes.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	dbIndex := 1
	if v := getEnvOrDefault("TEST_REDIS_DB", ""); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			t.Fatalf("invalid TEST_REDIS_DB=%q", v)
		}
		dbIndex = i
	}

	addr := TestRedisAddr()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		closeAndLog(t, "redis client", client)
		unavailable(t, requireRedis(), "redis not available at %s: %v", addr, err)
		return nil
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Logf("warning: flush redis db %d: %v", dbIndex, err)
	}

	t.Cleanup(func() { closeAndLog(t, "redis client", client) })
	return client
}
