package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/account-ledger/pkg/config"
	"github.com/pigeonworks-llc/account-ledger/pkg/db"
	"github.com/pigeonworks-llc/account-ledger/pkg/ledgerclient"
)

var dryRun bool

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror ledger accounts and transactions into SQLite",
	Long: `Mirror the state of a running ledger server into SQLite.

This command:
1. Fetches all accounts and transactions in one GraphQL request
2. Upserts every account, keyed by the server instance (ids restart at 1
   whenever the server restarts)
3. Filters out already mirrored transactions and records the new ones
4. Marks accounts missing on the server as deleted
5. Records the sync time

Example:
  ledger-sync sync
  ledger-sync sync --dry-run`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no database writes)")
}

func runSync(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(
		[]string{"sync", "apiUrl"},
		[]string{"sync", "dbPath"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	slog.Info("Starting sync", "api_url", cfg.Sync.APIURL, "dry_run", dryRun)

	slog.Debug("Opening database", "path", cfg.Sync.DBPath)
	conn, err := db.Open(cfg.Sync.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	syncHistory := db.NewSyncHistory(conn)
	client := ledgerclient.NewClient(ledgerclient.ClientConfig{
		APIURL:  cfg.Sync.APIURL,
		Timeout: 30 * time.Second,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := syncMirror(ctx, client, syncHistory, cfg.Sync.APIURL, dryRun, os.Stdout)
	exitOnError(err, "sync failed")

	if !dryRun {
		stats, err := syncHistory.GetStats(ctx)
		if err == nil {
			printMirrorStats(os.Stdout, stats)
		}
	}

	slog.Info("Sync completed",
		"instance", result.InstanceID,
		"server_restarted", result.ServerRestarted,
		"accounts", result.Accounts,
		"new_transactions", result.NewTransactions,
		"skipped_transactions", result.SkippedTransactions,
		"deleted_accounts", result.DeletedAccounts,
	)
}

type syncResult struct {
	InstanceID          string
	ServerRestarted     bool
	Accounts            int
	NewTransactions     int
	SkippedTransactions int
	DeletedAccounts     int64
}

// syncMirror copies one snapshot of the server into the mirror. In dry-run
// mode it only reports what would change.
func syncMirror(ctx context.Context, client *ledgerclient.Client, history *db.SyncHistory, serverURL string, dryRun bool, out io.Writer) (*syncResult, error) {
	slog.Info("Fetching snapshot from ledger server")
	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	slog.Info("Fetched snapshot", "accounts", len(snap.Accounts), "transactions", len(snap.Transactions))

	if snap.InstanceID == "" {
		return nil, fmt.Errorf("server did not report an instance id")
	}

	previous, err := history.GetMetadata(ctx, db.MetadataServerInstance)
	if err != nil {
		return nil, err
	}
	restarted := previous != "" && previous != snap.InstanceID
	if restarted {
		slog.Info("Server restarted since last sync; previous accounts will be marked deleted",
			"previous_instance", previous, "instance", snap.InstanceID)
	}

	syncedIDs, err := history.SyncedTransactionIDs(ctx, snap.InstanceID)
	if err != nil {
		return nil, err
	}

	newTxns := filterTransactions(snap.Transactions, syncedIDs)
	result := &syncResult{
		InstanceID:          snap.InstanceID,
		ServerRestarted:     restarted,
		Accounts:            len(snap.Accounts),
		NewTransactions:     len(newTxns),
		SkippedTransactions: len(snap.Transactions) - len(newTxns),
	}

	if dryRun {
		if restarted {
			fmt.Fprintf(out, "[DRY RUN] Server restarted (instance %s, was %s)\n", snap.InstanceID, previous)
		}
		fmt.Fprintf(out, "[DRY RUN] Would upsert %d accounts\n", len(snap.Accounts))
		for _, t := range newTxns {
			fmt.Fprintf(out, "[DRY RUN] %s %s %s on account %s (balance after %s)\n",
				t.OccurredAt, t.Kind, t.Amount, t.Account.ID, t.Account.Balance)
		}
		return result, nil
	}

	present := make([]string, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		if err := history.UpsertAccount(ctx, db.AccountRecord{
			InstanceID: snap.InstanceID,
			AccountID:  a.ID,
			Kind:       a.Kind,
			Balance:    a.Balance,
			CreatedAt:  a.CreatedAt,
		}); err != nil {
			return nil, err
		}
		present = append(present, a.ID)
	}

	for _, t := range newTxns {
		if _, err := history.RecordTransaction(ctx, db.TransactionRecord{
			InstanceID:    snap.InstanceID,
			TransactionID: t.ID,
			AccountID:     t.Account.ID,
			Kind:          t.Kind,
			Amount:        t.Amount,
			BalanceAfter:  t.Account.Balance,
			OccurredAt:    t.OccurredAt,
		}); err != nil {
			return nil, err
		}
	}

	result.DeletedAccounts, err = history.MarkMissingAccountsDeleted(ctx, snap.InstanceID, present)
	if err != nil {
		return nil, err
	}

	if err := history.SetMetadata(ctx, db.MetadataLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := history.SetMetadata(ctx, db.MetadataServerURL, serverURL); err != nil {
		return nil, err
	}
	if err := history.SetMetadata(ctx, db.MetadataServerInstance, snap.InstanceID); err != nil {
		return nil, err
	}

	return result, nil
}

func filterTransactions(txns []ledgerclient.Transaction, syncedIDs map[string]bool) []ledgerclient.Transaction {
	var result []ledgerclient.Transaction
	for _, t := range txns {
		if !syncedIDs[t.ID] {
			result = append(result, t)
		}
	}
	return result
}
