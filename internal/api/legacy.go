package api

import (
	"errors"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

var (
	errCompteNotFound   = errors.New("Compte non trouvé")
	errSoldeInsuffisant = errors.New("Solde insuffisant")
)

func legacyError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return errCompteNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errSoldeInsuffisant
	default:
		return err
	}
}

// legacyResolver is the root resolver of LegacySchema. It maps the French
// vocabulary onto the same store.
type legacyResolver struct {
	ledger Ledger
}

func (r *legacyResolver) AllComptes() []*compteResolver {
	return compteResolvers(r.ledger.ListAccounts())
}

// CompteByID resolves to null without an error when the account is missing.
func (r *legacyResolver) CompteByID(args struct{ ID graphql.ID }) *compteResolver {
	id, ok := parseID(args.ID)
	if !ok {
		return nil
	}
	a, err := r.ledger.GetAccount(id)
	if err != nil {
		return nil
	}
	return &compteResolver{a}
}

func (r *legacyResolver) FindCompteByType(args struct{ Type string }) ([]*compteResolver, error) {
	kind, err := ledger.ParseAccountKind(args.Type)
	if err != nil {
		return nil, err
	}
	accounts, err := r.ledger.ListAccountsByKind(kind)
	if err != nil {
		return nil, legacyError(err)
	}
	return compteResolvers(accounts), nil
}

func (r *legacyResolver) TotalSolde() *balanceStatsResolver {
	return &balanceStatsResolver{r.ledger.AggregateBalances()}
}

func (r *legacyResolver) AllTransactions() []*legacyTransactionResolver {
	return legacyTransactionResolvers(r.ledger.ListTransactions())
}

func (r *legacyResolver) CompteTransactions(args struct{ ID graphql.ID }) []*legacyTransactionResolver {
	id, ok := parseID(args.ID)
	if !ok {
		return []*legacyTransactionResolver{}
	}
	return legacyTransactionResolvers(r.ledger.ListTransactionsForAccount(id))
}

func (r *legacyResolver) TransactionStats() *legacyTransactionStatsResolver {
	return &legacyTransactionStatsResolver{r.ledger.AggregateTransactions()}
}

type compteRequest struct {
	Solde float64
	Type  string
}

func (r *legacyResolver) SaveCompte(args struct{ Compte compteRequest }) (*compteResolver, error) {
	kind, err := ledger.ParseAccountKind(args.Compte.Type)
	if err != nil {
		return nil, err
	}
	a, err := r.ledger.OpenAccount(decimal.NewFromFloat(args.Compte.Solde), kind)
	if err != nil {
		return nil, legacyError(err)
	}
	return &compteResolver{a}, nil
}

func (r *legacyResolver) DeleteCompte(args struct{ ID graphql.ID }) bool {
	id, ok := parseID(args.ID)
	if !ok {
		return false
	}
	return r.ledger.DeleteAccount(id)
}

type transactionRequest struct {
	Type     string
	Montant  float64
	CompteID graphql.ID
}

func (r *legacyResolver) AddTransaction(args struct{ TransactionRequest transactionRequest }) (*legacyTransactionResolver, error) {
	req := args.TransactionRequest
	kind, err := ledger.ParseTransactionKind(req.Type)
	if err != nil {
		return nil, err
	}
	id, ok := parseID(req.CompteID)
	if !ok {
		return nil, errCompteNotFound
	}
	txn, err := r.ledger.ApplyTransaction(id, kind, decimal.NewFromFloat(req.Montant))
	if err != nil {
		return nil, legacyError(err)
	}
	return &legacyTransactionResolver{txn}, nil
}

type compteResolver struct {
	a ledger.Account
}

func compteResolvers(accounts []ledger.Account) []*compteResolver {
	out := make([]*compteResolver, len(accounts))
	for i, a := range accounts {
		out[i] = &compteResolver{a}
	}
	return out
}

func (r *compteResolver) ID() graphql.ID { return formatID(r.a.ID) }
func (r *compteResolver) Solde() float64 { return r.a.Balance.InexactFloat64() }
func (r *compteResolver) DateCreation() string { return formatTime(r.a.CreatedAt) }
func (r *compteResolver) Type() string { return r.a.Kind.Legacy() }

type legacyTransactionResolver struct {
	t ledger.Transaction
}

func legacyTransactionResolvers(txns []ledger.Transaction) []*legacyTransactionResolver {
	out := make([]*legacyTransactionResolver, len(txns))
	for i, t := range txns {
		out[i] = &legacyTransactionResolver{t}
	}
	return out
}

func (r *legacyTransactionResolver) ID() graphql.ID { return formatID(r.t.ID) }
func (r *legacyTransactionResolver) Type() string { return r.t.Kind.Legacy() }
func (r *legacyTransactionResolver) Montant() float64 { return r.t.Amount.InexactFloat64() }
func (r *legacyTransactionResolver) Date() string { return formatTime(r.t.OccurredAt) }
func (r *legacyTransactionResolver) Compte() *compteResolver { return &compteResolver{r.t.Account} }

type legacyTransactionStatsResolver struct {
	s ledger.TransactionStats
}

func (r *legacyTransactionStatsResolver) Count() int32 { return int32(r.s.Count) }
func (r *legacyTransactionStatsResolver) SumDepots() float64 { return r.s.SumDeposits.InexactFloat64() }
func (r *legacyTransactionStatsResolver) SumRetraits() float64 { return r.s.SumWithdrawals.InexactFloat64() }
