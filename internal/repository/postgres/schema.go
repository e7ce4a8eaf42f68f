package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                  UUID PRIMARY KEY,
	email               TEXT NOT NULL UNIQUE,
	name                TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'active',
	preferred_language  TEXT NOT NULL DEFAULT 'en',
	password_hash       TEXT NOT NULL,
	password_changed_at TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	deleted_at          TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS clinicians (
	id                  UUID PRIMARY KEY,
	email               TEXT NOT NULL UNIQUE,
	name                TEXT NOT NULL,
	license_number      TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'active',
	password_hash       TEXT NOT NULL,
	password_changed_at TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	deleted_at          TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS password_history (
	id            UUID PRIMARY KEY,
	account_type  TEXT NOT NULL,
	account_id    UUID NOT NULL,
	password_hash TEXT NOT NULL,
	salt          TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS password_history_account_idx
	ON password_history (account_type, account_id, created_at DESC);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
