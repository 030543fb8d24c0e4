package api

import (
	"errors"
	"strconv"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

// Ledger is the store surface the gateway depends on.
type Ledger interface {
	InstanceID() string
	OpenAccount(initialBalance decimal.Decimal, kind ledger.AccountKind) (ledger.Account, error)
	DeleteAccount(id int64) bool
	GetAccount(id int64) (ledger.Account, error)
	ListAccounts() []ledger.Account
	ListAccountsByKind(kind ledger.AccountKind) ([]ledger.Account, error)
	AggregateBalances() ledger.BalanceStats
	ApplyTransaction(accountID int64, kind ledger.TransactionKind, amount decimal.Decimal) (ledger.Transaction, error)
	ListTransactions() []ledger.Transaction
	ListTransactionsForAccount(accountID int64) []ledger.Transaction
	AggregateTransactions() ledger.TransactionStats
}

// TimeLayout is the wire format of every timestamp: ISO-8601, UTC,
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatID(id int64) graphql.ID {
	return graphql.ID(strconv.FormatInt(id, 10))
}

// parseID converts a wire id to a store id. Ids the store could never have
// issued report false.
func parseID(id graphql.ID) (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// resolver is the root resolver of Schema.
type resolver struct {
	ledger Ledger
}

func (r *resolver) InstanceID() string {
	return r.ledger.InstanceID()
}

func (r *resolver) AllAccounts() []*accountResolver {
	return accountResolvers(r.ledger.ListAccounts())
}

func (r *resolver) AccountByID(args struct{ ID graphql.ID }) (*accountResolver, error) {
	id, ok := parseID(args.ID)
	if !ok {
		return nil, errAccountNotFound
	}
	a, err := r.ledger.GetAccount(id)
	if err != nil {
		return nil, publicError(err)
	}
	return &accountResolver{a}, nil
}

func (r *resolver) AccountsByKind(args struct{ Kind string }) ([]*accountResolver, error) {
	kind, err := ledger.ParseAccountKind(args.Kind)
	if err != nil {
		return nil, err
	}
	accounts, err := r.ledger.ListAccountsByKind(kind)
	if err != nil {
		return nil, publicError(err)
	}
	return accountResolvers(accounts), nil
}

func (r *resolver) TotalBalance() *balanceStatsResolver {
	return &balanceStatsResolver{r.ledger.AggregateBalances()}
}

func (r *resolver) AllTransactions() []*transactionResolver {
	return transactionResolvers(r.ledger.ListTransactions())
}

func (r *resolver) AccountTransactions(args struct{ ID graphql.ID }) []*transactionResolver {
	id, ok := parseID(args.ID)
	if !ok {
		return []*transactionResolver{}
	}
	return transactionResolvers(r.ledger.ListTransactionsForAccount(id))
}

func (r *resolver) TransactionStats() *transactionStatsResolver {
	return &transactionStatsResolver{r.ledger.AggregateTransactions()}
}

func (r *resolver) OpenAccount(args struct {
	Balance float64
	Kind    string
}) (*accountResolver, error) {
	kind, err := ledger.ParseAccountKind(args.Kind)
	if err != nil {
		return nil, err
	}
	a, err := r.ledger.OpenAccount(decimal.NewFromFloat(args.Balance), kind)
	if err != nil {
		return nil, publicError(err)
	}
	return &accountResolver{a}, nil
}

func (r *resolver) DeleteAccount(args struct{ ID graphql.ID }) bool {
	id, ok := parseID(args.ID)
	if !ok {
		return false
	}
	return r.ledger.DeleteAccount(id)
}

func (r *resolver) ApplyTransaction(args struct {
	Kind      string
	Amount    float64
	AccountID graphql.ID
}) (*transactionResolver, error) {
	kind, err := ledger.ParseTransactionKind(args.Kind)
	if err != nil {
		return nil, err
	}
	id, ok := parseID(args.AccountID)
	if !ok {
		return nil, errAccountNotFound
	}
	txn, err := r.ledger.ApplyTransaction(id, kind, decimal.NewFromFloat(args.Amount))
	if err != nil {
		return nil, publicError(err)
	}
	return &transactionResolver{txn}, nil
}

var (
	errAccountNotFound   = errors.New("account not found")
	errInsufficientFunds = errors.New("insufficient funds")
)

// publicError maps store failures to the messages clients see.
func publicError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return errAccountNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errInsufficientFunds
	default:
		return err
	}
}

type accountResolver struct {
	a ledger.Account
}

func accountResolvers(accounts []ledger.Account) []*accountResolver {
	out := make([]*accountResolver, len(accounts))
	for i, a := range accounts {
		out[i] = &accountResolver{a}
	}
	return out
}

func (r *accountResolver) ID() graphql.ID { return formatID(r.a.ID) }
func (r *accountResolver) Balance() float64 { return r.a.Balance.InexactFloat64() }
func (r *accountResolver) CreatedAt() string { return formatTime(r.a.CreatedAt) }
func (r *accountResolver) Kind() string { return string(r.a.Kind) }

type transactionResolver struct {
	t ledger.Transaction
}

func transactionResolvers(txns []ledger.Transaction) []*transactionResolver {
	out := make([]*transactionResolver, len(txns))
	for i, t := range txns {
		out[i] = &transactionResolver{t}
	}
	return out
}

func (r *transactionResolver) ID() graphql.ID { return formatID(r.t.ID) }
func (r *transactionResolver) Kind() string { return string(r.t.Kind) }
func (r *transactionResolver) Amount() float64 { return r.t.Amount.InexactFloat64() }
func (r *transactionResolver) OccurredAt() string { return formatTime(r.t.OccurredAt) }
func (r *transactionResolver) Account() *accountResolver { return &accountResolver{r.t.Account} }

type balanceStatsResolver struct {
	s ledger.BalanceStats
}

func (r *balanceStatsResolver) Count() int32 { return int32(r.s.Count) }
func (r *balanceStatsResolver) Sum() float64 { return r.s.Sum.InexactFloat64() }
func (r *balanceStatsResolver) Average() float64 { return r.s.Average.InexactFloat64() }

type transactionStatsResolver struct {
	s ledger.TransactionStats
}

func (r *transactionStatsResolver) Count() int32 { return int32(r.s.Count) }
func (r *transactionStatsResolver) SumDeposits() float64 { return r.s.SumDeposits.InexactFloat64() }
func (r *transactionStatsResolver) SumWithdrawals() float64 { return r.s.SumWithdrawals.InexactFloat64() }
