package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pet-health-tracker/internal/adapters/auth/jwtauth"
	"pet-health-tracker/internal/adapters/auth/odin"
	pg "pet-health-tracker/internal/adapters/storage/postgres"
	"pet-health-tracker/internal/config"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/ports/auth"
	"pet-health-tracker/internal/reminders"

	"github.com/redis/go-redis/v9"
)

func poolOptions(c config.DatabaseConfig) pg.PoolOptions {
	return pg.PoolOptions{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// openDB devuelve nil sin DSN: los repos quedan en memoria.
func openDB(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	if c.DSN == "" {
		log.Warn("no database dsn, using in-memory storage", nil)
		return nil, nil
	}

	db, err := pg.Open(c.DSN, poolOptions(c))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if c.EnsureSchema {
		if err := pg.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return db, nil
}

func storageName(db *sql.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}

// newVerifier devuelve nil en modo dev (header X-Debug-User-ID).
func newVerifier(c config.AuthConfig) (auth.AuthVerifier, error) {
	switch c.Mode {
	case "odin":
		client, err := odin.NewClient(odin.Config{
			BaseURL: c.Odin.BaseURL,
			APIKey:  c.Odin.APIKey,
			Timeout: c.Odin.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return odin.NewVerifier(client), nil
	case "jwt":
		v, err := jwtauth.NewVerifier(jwtauth.Config{
			Secret: c.JWT.Secret,
			Issuer: c.JWT.Issuer,
			Leeway: c.JWT.Leeway,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, nil
	}
}

type reminderSetup struct {
	Checker *reminders.Checker
	closers []func() error
}

func (r *reminderSetup) Close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			log.Warn("reminders resource close failed", map[string]any{"error": err.Error()})
		}
	}
}

// newReminders elige notifier (Kafka o log) y dedup (Redis o memoria) según config.
func newReminders(ctx context.Context, items reminders.PendingLister) (*reminderSetup, error) {
	loc, err := cfg.Reminders.Location()
	if err != nil {
		return nil, err
	}

	setup := &reminderSetup{}
	var notifier reminders.Notifier = reminders.LogNotifier{Log: log}
	if len(cfg.Kafka.Brokers) > 0 {
		kn := reminders.NewKafkaNotifier(reminders.KafkaOptions{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		notifier = kn
		setup.closers = append(setup.closers, kn.Close)
	}

	var dedup reminders.Deduper
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			setup.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		dedup = reminders.NewRedisDeduper(client)
		setup.closers = append(setup.closers, client.Close)
	}

	setup.Checker = reminders.NewChecker(items, notifier, reminders.Options{
		Interval: cfg.Reminders.Interval,
		Location: loc,
		Timeout:  cfg.Reminders.Timeout,
		Dedup:    dedup,
	}, clock.System{}, log.With(map[string]any{"module": "reminders"}))
	return setup, nil
}

func contextWithOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
