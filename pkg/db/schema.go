// Package db provides the SQLite mirror used by ledger-sync: accounts and
// transactions copied from a running ledger server, plus sync metadata.
package db

import "context"

// Schema defines the SQL statements to create database tables.
// Money columns hold decimal strings so no precision is lost. Server ids
// restart at 1 with every server process, so rows are keyed by the server
// instance id as well.
const Schema = `
-- Accounts mirrored from the ledger server.
-- deleted is set once an account disappears from the server.
CREATE TABLE IF NOT EXISTS synced_accounts (
    instance_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    kind TEXT NOT NULL,                -- CHECKING or SAVINGS
    balance TEXT NOT NULL,
    created_at TEXT NOT NULL,          -- ISO-8601 UTC
    deleted INTEGER NOT NULL DEFAULT 0,
    synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (instance_id, account_id)
);

CREATE INDEX IF NOT EXISTS idx_synced_accounts_kind
    ON synced_accounts(kind);

-- Transactions mirrored from the ledger server. Rows are never updated.
CREATE TABLE IF NOT EXISTS synced_transactions (
    instance_id TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    account_id TEXT NOT NULL,
    kind TEXT NOT NULL,                -- DEPOSIT or WITHDRAWAL
    amount TEXT NOT NULL,
    balance_after TEXT NOT NULL,       -- account balance right after the transaction
    occurred_at TEXT NOT NULL,         -- ISO-8601 UTC
    synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (instance_id, transaction_id)
);

CREATE INDEX IF NOT EXISTS idx_synced_transactions_account
    ON synced_transactions(instance_id, account_id);

-- Sync metadata table
-- Stores key-value metadata about sync operations
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	_, err := conn.ExecContext(context.Background(), Schema)
	return err
}
