package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Metadata keys written by ledger-sync.
const (
	MetadataLastSync       = "last_sync"
	MetadataServerURL      = "server_url"
	MetadataServerInstance = "server_instance"
)

// AccountRecord is a mirrored account.
type AccountRecord struct {
	InstanceID string
	AccountID  string
	Kind       string
	Balance    decimal.Decimal
	CreatedAt  string
	Deleted    bool
}

// TransactionRecord is a mirrored transaction.
type TransactionRecord struct {
	InstanceID    string
	TransactionID string
	AccountID     string
	Kind          string
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	OccurredAt    string
}

// SyncHistory manages the mirror tables.
type SyncHistory struct {
	conn *Connection
}

// NewSyncHistory creates a new SyncHistory instance.
func NewSyncHistory(conn *Connection) *SyncHistory {
	return &SyncHistory{conn: conn}
}

// UpsertAccount inserts or refreshes an account. A previously deleted
// account that reappears is marked live again.
func (s *SyncHistory) UpsertAccount(ctx context.Context, record AccountRecord) error {
	query := `
		INSERT INTO synced_accounts (instance_id, account_id, kind, balance, created_at, deleted)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(instance_id, account_id) DO UPDATE SET
			kind = excluded.kind,
			balance = excluded.balance,
			created_at = excluded.created_at,
			deleted = 0,
			synced_at = CURRENT_TIMESTAMP
	`

	_, err := s.conn.ExecContext(ctx, query,
		record.InstanceID,
		record.AccountID,
		record.Kind,
		record.Balance.String(),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", record.AccountID, err)
	}

	return nil
}

// RecordTransaction inserts a transaction unless it is already mirrored.
// It reports whether a row was inserted.
func (s *SyncHistory) RecordTransaction(ctx context.Context, record TransactionRecord) (bool, error) {
	query := `
		INSERT OR IGNORE INTO synced_transactions
			(instance_id, transaction_id, account_id, kind, amount, balance_after, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.conn.ExecContext(ctx, query,
		record.InstanceID,
		record.TransactionID,
		record.AccountID,
		record.Kind,
		record.Amount.String(),
		record.BalanceAfter.String(),
		record.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record transaction %s: %w", record.TransactionID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// SyncedTransactionIDs returns the ids of the transactions mirrored from the
// given server instance.
func (s *SyncHistory) SyncedTransactionIDs(ctx context.Context, instanceID string) (map[string]bool, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT transaction_id FROM synced_transactions WHERE instance_id = ?`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get synced transaction IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction ID: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// MarkMissingAccountsDeleted flags every live account that is not one of
// present on the given server instance as deleted, and returns how many were
// flagged. Accounts of earlier instances are always flagged.
func (s *SyncHistory) MarkMissingAccountsDeleted(ctx context.Context, instanceID string, present []string) (int64, error) {
	query := `UPDATE synced_accounts SET deleted = 1, synced_at = CURRENT_TIMESTAMP WHERE deleted = 0`
	args := make([]interface{}, 0, len(present)+1)
	if len(present) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(present)), ",")
		query += ` AND (instance_id <> ? OR account_id NOT IN (` + placeholders + `))`
		args = append(args, instanceID)
		for _, id := range present {
			args = append(args, id)
		}
	}

	var affected int64
	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark deleted accounts: %w", err)
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// ListAccounts returns mirrored accounts in the order they were first
// mirrored.
func (s *SyncHistory) ListAccounts(ctx context.Context, includeDeleted bool) ([]AccountRecord, error) {
	query := `SELECT instance_id, account_id, kind, balance, created_at, deleted FROM synced_accounts`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY rowid`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var records []AccountRecord
	for rows.Next() {
		var (
			record  AccountRecord
			balance string
		)
		if err := rows.Scan(&record.InstanceID, &record.AccountID, &record.Kind, &balance, &record.CreatedAt, &record.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if record.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("invalid balance for account %s: %w", record.AccountID, err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Stats represents mirror statistics.
type Stats struct {
	ActiveAccounts  int
	DeletedAccounts int
	Transactions    int
	SumBalances     decimal.Decimal
	SumDeposits     decimal.Decimal
	SumWithdrawals  decimal.Decimal
	LastSync        sql.NullString
}

// GetStats retrieves mirror statistics. Sums are computed in decimal, not
// by SQLite, which would round through float.
func (s *SyncHistory) GetStats(ctx context.Context) (*Stats, error) {
	stats := Stats{
		SumBalances:    decimal.Zero,
		SumDeposits:    decimal.Zero,
		SumWithdrawals: decimal.Zero,
	}

	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM synced_accounts WHERE deleted = 0`).Scan(&stats.ActiveAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get account count: %w", err)
	}

	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM synced_accounts WHERE deleted = 1`).Scan(&stats.DeletedAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get deleted account count: %w", err)
	}

	accounts, err := s.ListAccounts(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		stats.SumBalances = stats.SumBalances.Add(a.Balance)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT kind, amount FROM synced_transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, amount string
		if err := rows.Scan(&kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction amount %q: %w", amount, err)
		}
		stats.Transactions++
		switch kind {
		case "DEPOSIT":
			stats.SumDeposits = stats.SumDeposits.Add(d)
		case "WITHDRAWAL":
			stats.SumWithdrawals = stats.SumWithdrawals.Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.conn.QueryRowContext(ctx,
		`SELECT value FROM sync_metadata WHERE key = ?`, MetadataLastSync).Scan(&stats.LastSync)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (s *SyncHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (s *SyncHistory) SetMetadata(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
