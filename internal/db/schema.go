package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is the full database schema. It sticks to DDL that both SQLite and
// Postgres accept.
const schema = `
CREATE TABLE IF NOT EXISTS companies (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    company_id    TEXT NOT NULL REFERENCES companies(id),
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS tools (
    id               TEXT PRIMARY KEY,
    company_id       TEXT NOT NULL REFERENCES companies(id),
    name             TEXT NOT NULL,
    description      TEXT,
    custodian_id     TEXT REFERENCES users(id),
    custody_batch_id TEXT,
    version          INTEGER NOT NULL DEFAULT 0,
    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tools_company ON tools(company_id);

CREATE TABLE IF NOT EXISTS checklist_items (
    id         TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id),
    tool_id    TEXT NOT NULL REFERENCES tools(id),
    label      TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS location_aliases (
    id         TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id),
    alias      TEXT NOT NULL,
    location   TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_location_aliases_alias
    ON location_aliases(company_id, lower(alias));

CREATE TABLE IF NOT EXISTS transfer_batches (
    id           TEXT PRIMARY KEY,
    company_id   TEXT NOT NULL REFERENCES companies(id),
    created_by   TEXT NOT NULL REFERENCES users(id),
    from_user_id TEXT REFERENCES users(id),
    to_user_id   TEXT NOT NULL REFERENCES users(id),
    location     TEXT NOT NULL,
    stored_at    TEXT NOT NULL,
    notes        TEXT,
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'committed', 'needs_reconciliation')),
    snapshot     TEXT NOT NULL,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transfer_batches_company ON transfer_batches(company_id, status);

CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    batch_id     TEXT NOT NULL REFERENCES transfer_batches(id),
    company_id   TEXT NOT NULL REFERENCES companies(id),
    tool_id      TEXT NOT NULL REFERENCES tools(id),
    position     INTEGER NOT NULL,
    from_user_id TEXT REFERENCES users(id),
    to_user_id   TEXT NOT NULL REFERENCES users(id),
    location     TEXT NOT NULL,
    stored_at    TEXT NOT NULL,
    notes        TEXT,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_batch ON transactions(batch_id);
CREATE INDEX IF NOT EXISTS idx_transactions_tool ON transactions(tool_id);

CREATE TABLE IF NOT EXISTS condition_reports (
    id                TEXT PRIMARY KEY,
    transaction_id    TEXT NOT NULL REFERENCES transactions(id),
    tool_id           TEXT NOT NULL REFERENCES tools(id),
    checklist_item_id TEXT NOT NULL REFERENCES checklist_items(id),
    status            TEXT NOT NULL CHECK (status IN ('defect', 'needs_replacement')),
    comments          TEXT,
    created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_condition_reports_transaction ON condition_reports(transaction_id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMP NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
// Statements are executed one at a time since not every driver accepts a
// multi-statement Exec.
func EnsureSchema(ctx context.Context, d *DB) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func splitStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
