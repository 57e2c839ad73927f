package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const renewLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// RedisSyncGuard shares the import guard across instances: the in-flight flag is
// a lease key with an expiry, and the last sync time is a plain key.
type RedisSyncGuard struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	leaseTTL time.Duration

	mu        sync.Mutex
	token     string
	stopRenew func()
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisSyncGuard(client *redis.Client, prefix string, ttl, leaseTTL time.Duration) *RedisSyncGuard {
	return &RedisSyncGuard{client: client, prefix: prefix, ttl: ttl, leaseTTL: leaseTTL}
}

func (g *RedisSyncGuard) leaseKey() string    { return g.prefix + ":lease" }
func (g *RedisSyncGuard) lastSyncKey() string { return g.prefix + ":last_sync" }

func (g *RedisSyncGuard) Acquire(ctx context.Context, checkFresh bool, now time.Time) (string, error) {
	if checkFresh {
		last, err := g.lastSync(ctx)
		if err != nil {
			return "", err
		}
		if !last.IsZero() && now.Sub(last) < g.ttl {
			return SkipFresh, nil
		}
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.leaseKey(), token, g.leaseTTL).Result()
	if err != nil {
		return "", fmt.Errorf("acquire sync lease: %w", err)
	}
	if !ok {
		return SkipInFlight, nil
	}
	// Long imports keep the lease until Release instead of letting it lapse.
	stop := keepAlive(ctx, g.leaseTTL/3, func(ctx context.Context) (bool, error) {
		n, err := g.client.Eval(ctx, renewLeaseScript, []string{g.leaseKey()}, token, g.leaseTTL.Milliseconds()).Int64()
		return n == 1, err
	})
	g.mu.Lock()
	g.token = token
	g.stopRenew = stop
	g.mu.Unlock()
	return "", nil
}

// keepAlive calls renew every interval until stop is called or renew reports
// the lease as lost. Transient renew errors are logged and retried.
func keepAlive(ctx context.Context, interval time.Duration, renew func(context.Context) (bool, error)) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := renew(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("[IMPORT] failed to renew sync lease", "error", err)
					}
					continue
				}
				if !held {
					slog.Error("[IMPORT] sync lease lost before the run finished")
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (g *RedisSyncGuard) Release(ctx context.Context, synced bool, now time.Time) {
	g.mu.Lock()
	token := g.token
	stop := g.stopRenew
	g.token = ""
	g.stopRenew = nil
	g.mu.Unlock()
	if stop != nil {
		stop()
	}

	// The run may have been cancelled; cleanup must still reach redis.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if synced {
		if err := g.client.Set(ctx, g.lastSyncKey(), now.UnixMilli(), 0).Err(); err != nil {
			slog.Error("[IMPORT] failed to record last sync", "error", err)
		}
	}
	if err := g.client.Eval(ctx, releaseLeaseScript, []string{g.leaseKey()}, token).Err(); err != nil {
		slog.Error("[IMPORT] failed to release sync lease", "error", err)
	}
}

func (g *RedisSyncGuard) LastSync(ctx context.Context) time.Time {
	last, err := g.lastSync(ctx)
	if err != nil {
		slog.Warn("[IMPORT] failed to read last sync", "error", err)
	}
	return last
}

func (g *RedisSyncGuard) lastSync(ctx context.Context) (time.Time, error) {
	ms, err := g.client.Get(ctx, g.lastSyncKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last sync: %w", err)
	}
	return time.UnixMilli(ms), nil
}
