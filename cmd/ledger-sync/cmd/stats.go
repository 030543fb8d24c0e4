package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/account-ledger/pkg/config"
	"github.com/pigeonworks-llc/account-ledger/pkg/db"
	"github.com/pigeonworks-llc/account-ledger/pkg/ledgerclient"
)

var remote bool

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display mirror statistics",
	Long: `Display statistics about the mirrored ledger.

Shows:
- Number of live and deleted accounts
- Number of mirrored transactions
- Exact sums of balances, deposits and withdrawals
- Last sync timestamp

With --remote the live aggregates of the server are shown as well.

Example:
  ledger-sync stats
  ledger-sync stats --remote`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&remote, "remote", false, "Also query the server's aggregates")
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"sync", "dbPath"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	slog.Debug("Opening database", "path", cfg.Sync.DBPath)
	conn, err := db.Open(cfg.Sync.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := db.NewSyncHistory(conn).GetStats(ctx)
	exitOnError(err, "failed to get statistics")
	printMirrorStats(os.Stdout, stats)

	if remote {
		client := ledgerclient.NewClient(ledgerclient.ClientConfig{APIURL: cfg.Sync.APIURL})
		exitOnError(printServerStats(ctx, os.Stdout, client), "failed to get server statistics")
	}

	slog.Info("Statistics displayed successfully")
}

func printMirrorStats(w io.Writer, stats *db.Stats) {
	fmt.Fprintln(w, "\n=== Sync Statistics ===")
	fmt.Fprintf(w, "Live accounts:         %d\n", stats.ActiveAccounts)
	fmt.Fprintf(w, "Deleted accounts:      %d\n", stats.DeletedAccounts)
	fmt.Fprintf(w, "Transactions:          %d\n", stats.Transactions)
	fmt.Fprintf(w, "Sum of balances:       %s\n", stats.SumBalances)
	fmt.Fprintf(w, "Sum of deposits:       %s\n", stats.SumDeposits)
	fmt.Fprintf(w, "Sum of withdrawals:    %s\n", stats.SumWithdrawals)

	if stats.LastSync.Valid {
		fmt.Fprintf(w, "Last sync:             %s\n", stats.LastSync.String)
	} else {
		fmt.Fprintf(w, "Last sync:             (never)\n")
	}

	fmt.Fprintln(w)
}

func printServerStats(ctx context.Context, w io.Writer, client *ledgerclient.Client) error {
	balances, err := client.FetchBalanceStats(ctx)
	if err != nil {
		return err
	}
	txns, err := client.FetchTransactionStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Server Statistics ===")
	fmt.Fprintf(w, "Accounts:              %d\n", balances.Count)
	fmt.Fprintf(w, "Sum of balances:       %s\n", balances.Sum)
	fmt.Fprintf(w, "Average balance:       %s\n", balances.Average)
	fmt.Fprintf(w, "Transactions:          %d\n", txns.Count)
	fmt.Fprintf(w, "Sum of deposits:       %s\n", txns.SumDeposits)
	fmt.Fprintf(w, "Sum of withdrawals:    %s\n", txns.SumWithdrawals)
	fmt.Fprintln(w)
	return nil
}
