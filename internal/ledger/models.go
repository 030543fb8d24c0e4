package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind classifies an account.
type AccountKind string

// Account kinds.
const (
	KindChecking AccountKind = "CHECKING"
	KindSavings  AccountKind = "SAVINGS"
)

// TransactionKind is the direction of a transaction.
type TransactionKind string

// Transaction kinds.
const (
	KindDeposit    TransactionKind = "DEPOSIT"
	KindWithdrawal TransactionKind = "WITHDRAWAL"
)

// Legacy names used by the French-speaking web client.
var (
	legacyAccountKinds = map[string]AccountKind{
		"COURANT": KindChecking,
		"EPARGNE": KindSavings,
	}
	legacyTransactionKinds = map[string]TransactionKind{
		"DEPOT":   KindDeposit,
		"RETRAIT": KindWithdrawal,
	}
)

// Valid reports whether k is a member of the enumeration.
func (k AccountKind) Valid() bool {
	return k == KindChecking || k == KindSavings
}

// Legacy returns the legacy name of k (COURANT or EPARGNE).
func (k AccountKind) Legacy() string {
	for name, kind := range legacyAccountKinds {
		if kind == k {
			return name
		}
	}
	return string(k)
}

// Valid reports whether k is a member of the enumeration.
func (k TransactionKind) Valid() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Legacy returns the legacy name of k (DEPOT or RETRAIT).
func (k TransactionKind) Legacy() string {
	for name, kind := range legacyTransactionKinds {
		if kind == k {
			return name
		}
	}
	return string(k)
}

// ParseAccountKind parses a canonical or legacy account kind name.
func ParseAccountKind(s string) (AccountKind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if k := AccountKind(name); k.Valid() {
		return k, nil
	}
	if k, ok := legacyAccountKinds[name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown account kind %q", ErrInvalidArgument, s)
}

// ParseTransactionKind parses a canonical or legacy transaction kind name.
func ParseTransactionKind(s string) (TransactionKind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if k := TransactionKind(name); k.Valid() {
		return k, nil
	}
	if k, ok := legacyTransactionKinds[name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidArgument, s)
}

// Account represents a ledger account.
type Account struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	Kind      AccountKind     `json:"kind"`
}

// clone returns an independent copy of a. Decimal values share their
// coefficient pointer on plain assignment, so the balance is rebuilt.
func (a Account) clone() Account {
	return Account{
		ID:        a.ID,
		Balance:   decimal.NewFromBigInt(a.Balance.Coefficient(), a.Balance.Exponent()),
		CreatedAt: a.CreatedAt,
		Kind:      a.Kind,
	}
}

// Transaction is an immutable record of a deposit or withdrawal.
// Account holds the state of the affected account right after the
// transaction was applied.
type Transaction struct {
	ID         int64           `json:"id"`
	Kind       TransactionKind `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
	Account    Account         `json:"account"`
}

// AccountID returns the id of the account the transaction was applied to.
func (t Transaction) AccountID() int64 {
	return t.Account.ID
}

func (t Transaction) clone() Transaction {
	return Transaction{
		ID:         t.ID,
		Kind:       t.Kind,
		Amount:     decimal.NewFromBigInt(t.Amount.Coefficient(), t.Amount.Exponent()),
		OccurredAt: t.OccurredAt,
		Account:    t.Account.clone(),
	}
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
	SumDeposits    decimal.Decimal `json:"sum_deposits"`
	SumWithdrawals decimal.Decimal `json:"sum_withdrawals"`
}
