// Package ledgerclient provides a GraphQL client for the ledger server.
package ledgerclient

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Account represents an account as served by the ledger API.
type Account struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt string          `json:"createdAt"` // ISO-8601 UTC
	Kind      string          `json:"kind"`      // CHECKING or SAVINGS
}

// Transaction represents a transaction as served by the ledger API.
// Account is the account state right after the transaction was applied.
type Transaction struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"` // DEPOSIT or WITHDRAWAL
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt string          `json:"occurredAt"`
	Account    Account         `json:"account"`
}

// BalanceStats aggregates balances over all accounts.
type BalanceStats struct {
	Count   int             `json:"count"`
	Sum     decimal.Decimal `json:"sum"`
	Average decimal.Decimal `json:"average"`
}

// TransactionStats aggregates amounts over all transactions.
type TransactionStats struct {
	Count          int             `json:"count"`
	SumDeposits    decimal.Decimal `json:"sumDeposits"`
	SumWithdrawals decimal.Decimal `json:"sumWithdrawals"`
}

// Snapshot is the full ledger state fetched in one request. Ids are only
// unique within InstanceID; a restarted server reports a new one.
type Snapshot struct {
	InstanceID   string        `json:"instanceId"`
	Accounts     []Account     `json:"allAccounts"`
	Transactions []Transaction `json:"allTransactions"`
}

// GraphQLError is one entry of a GraphQL errors list.
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// ResponseError is returned when the server reports errors.
type ResponseError struct {
	StatusCode int
	Errors     []GraphQLError
}

func (e *ResponseError) Error() string {
	return "ledger API error: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the error messages reported by the server.
func (e *ResponseError) Messages() []string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Message
	}
	return msgs
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}
