package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pet-health-tracker/internal/platform/clock"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "reminders:sent:"

// Deduper evita avisar dos veces el mismo item el mismo día cuando el
// checker corre varias veces por día o en varias réplicas.
type Deduper interface {
	// Claim reserva key por ttl. false si ya estaba reservada.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release libera la reserva para reintentar en la próxima corrida.
	Release(ctx context.Context, key string) error
}

func dedupKey(r Reminder) string {
	return dedupKeyPrefix + r.CareItemID + ":" + r.GeneratedFor.String()
}

// MemoryDeduper sirve para una sola réplica.
type MemoryDeduper struct {
	mu      sync.Mutex
	clock   clock.Clock
	expires map[string]time.Time
}

func NewMemoryDeduper(clk clock.Clock) *MemoryDeduper {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryDeduper{clock: clk, expires: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	for k, exp := range d.expires {
		if !now.Before(exp) {
			delete(d.expires, k)
		}
	}
	if _, taken := d.expires[key]; taken {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.expires, key)
	d.mu.Unlock()
	return nil
}

// RedisDeduper comparte las reservas entre réplicas con SET NX.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder key: %w", err)
	}
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release reminder key: %w", err)
	}
	return nil
}
