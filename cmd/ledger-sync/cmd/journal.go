package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/account-ledger/internal/events"
	"github.com/pigeonworks-llc/account-ledger/pkg/config"
)

var journalPath string

// journalCmd represents the journal command.
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the events journal",
	Long: `Print the events journal written by the server's journal sink.

The journal is locked while the server runs, so stop the server first.

Example:
  ledger-sync journal
  ledger-sync journal --path ./data/journal.db`,
	Run: runJournal,
}

func init() {
	journalCmd.Flags().StringVar(&journalPath, "path", "", "Journal file (default is JOURNAL_PATH)")
}

func runJournal(cmd *cobra.Command, args []string) {
	path := journalPath
	if path == "" {
		cfg, err := config.Load(getConfigFile())
		exitOnError(err, "failed to load configuration")
		path = cfg.Events.JournalPath
	}

	slog.Debug("Reading journal", "path", path)
	msgs, err := events.ReadJournal(path)
	exitOnError(err, "failed to read journal")

	printJournal(os.Stdout, msgs)
	slog.Info("Journal displayed", "events", len(msgs))
}

func printJournal(w io.Writer, msgs []events.Message) {
	for _, m := range msgs {
		line := fmt.Sprintf("%6d  %s  %-20s account=%s", m.Seq, m.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z"), m.Type, m.Account.ID)
		if m.Transaction != nil {
			line += fmt.Sprintf(" %s %s", m.Transaction.Kind, m.Transaction.Amount)
		}
		if m.RemovedTransactions > 0 {
			line += fmt.Sprintf(" removed_transactions=%d", m.RemovedTransactions)
		}
		fmt.Fprintln(w, line)
	}
}
