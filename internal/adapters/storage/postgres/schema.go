package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema es idempotente; se aplica al arrancar cuando hay DB_DSN.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pets (
		id            TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name          TEXT NOT NULL,
		species       TEXT NOT NULL DEFAULT '',
		breed         TEXT NOT NULL DEFAULT '',
		sex           TEXT NOT NULL DEFAULT 'unknown',
		birth_date    DATE NULL,
		microchip     TEXT NOT NULL DEFAULT '',
		notes         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pets_owner_idx ON pets (owner_user_id)`,

	`CREATE TABLE IF NOT EXISTS access_grants (
		id              TEXT PRIMARY KEY,
		pet_id          TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
		owner_user_id   TEXT NOT NULL,
		grantee_user_id TEXT NOT NULL,
		scopes          TEXT[] NOT NULL DEFAULT '{}',
		status          TEXT NOT NULL,
		expires_at      TIMESTAMPTZ NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		revoked_at      TIMESTAMPTZ NULL
	)`,
	`ALTER TABLE access_grants ADD COLUMN IF NOT EXISTS expires_at TIMESTAMPTZ NULL`,
	`CREATE INDEX IF NOT EXISTS access_grants_pet_grantee_idx ON access_grants (pet_id, grantee_user_id)`,

	`CREATE TABLE IF NOT EXISTS care_items (
		id                   TEXT PRIMARY KEY,
		pet_id               TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
		owner_user_id        TEXT NOT NULL,
		kind                 TEXT NOT NULL CHECK (kind IN ('medication', 'vaccination')),
		name                 TEXT NOT NULL,
		due_date             DATE NOT NULL,
		due_time             SMALLINT NULL CHECK (due_time BETWEEN 0 AND 1439),
		repeat               BOOLEAN NOT NULL DEFAULT FALSE,
		repeat_interval_days INTEGER NOT NULL DEFAULT 0,
		completed            BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at         TIMESTAMPTZ NULL,
		expires_at           TIMESTAMPTZ NULL,
		dosage               TEXT NOT NULL DEFAULT '',
		notes                TEXT NOT NULL DEFAULT '',
		previous_id          TEXT NULL,
		pending_successor_id TEXT NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL,
		CHECK ((repeat AND repeat_interval_days > 0) OR (NOT repeat AND repeat_interval_days = 0))
	)`,
	`CREATE INDEX IF NOT EXISTS care_items_owner_pet_due_idx ON care_items (owner_user_id, pet_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS care_items_pending_due_idx ON care_items (due_date) WHERE completed = FALSE`,

	`CREATE TABLE IF NOT EXISTS metric_records (
		id             TEXT PRIMARY KEY,
		pet_id         TEXT NOT NULL REFERENCES pets (id) ON DELETE CASCADE,
		owner_user_id  TEXT NOT NULL,
		recorded_at    TIMESTAMPTZ NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		weight_kg      DOUBLE PRECISION NULL CHECK (weight_kg > 0),
		activity_level INTEGER NULL CHECK (activity_level BETWEEN 1 AND 10),
		food_intake    TEXT NOT NULL DEFAULT '',
		sleep_hours    DOUBLE PRECISION NULL CHECK (sleep_hours BETWEEN 0 AND 24),
		behavior       TEXT NOT NULL DEFAULT '',
		notes          TEXT NOT NULL DEFAULT '',
		actor_type     TEXT NOT NULL,
		actor_id       TEXT NOT NULL,
		source         TEXT NOT NULL DEFAULT 'manual'
	)`,
	`CREATE INDEX IF NOT EXISTS metric_records_owner_pet_at_idx ON metric_records (owner_user_id, pet_id, recorded_at)`,
}

// EnsureSchema crea tablas e índices si no existen.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema (statement %d): %w", i, err)
		}
	}
	return nil
}
