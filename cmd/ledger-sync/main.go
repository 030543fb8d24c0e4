// Package main is the entry point for ledger-sync CLI.
package main

import (
	"os"

	"github.com/pigeonworks-llc/account-ledger/cmd/ledger-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
