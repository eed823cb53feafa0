package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerSchema holds the console's own tables. Business data lives behind
// the backend API; the ledger only records who did what and which order
// submissions were already processed.
var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		actor       TEXT        NOT NULL DEFAULT '',
		action      TEXT        NOT NULL,
		entity      TEXT        NOT NULL,
		entity_id   TEXT        NOT NULL,
		meta        JSONB       NOT NULL DEFAULT '{}'::jsonb,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_entity_idx ON audit_logs (entity, entity_id)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_occurred_idx ON audit_logs (occurred_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key        TEXT PRIMARY KEY,
		module     TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idempotency_keys_created_idx ON idempotency_keys (created_at)`,
}

// MigrateLedger creates the ledger tables when missing.
func MigrateLedger(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	for _, stmt := range ledgerSchema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate ledger: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit migration: %w", err)
	}
	return nil
}
