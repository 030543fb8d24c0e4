// Package ledger implements the in-memory account ledger: accounts, the
// deposits and withdrawals applied to them, and aggregate queries.
//
// A Store is the single owner of ledger state. Every mutation runs under one
// write lock for its whole check-then-act sequence, so balances never go
// negative and every balance change has exactly one transaction record.
// Callers only ever receive copies.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds the ledger state for the lifetime of the process.
type Store struct {
	mu sync.RWMutex

	instanceID string

	accounts     map[int64]*Account
	accountOrder []int64
	transactions []Transaction

	nextAccountID     int64
	nextTransactionID int64
	seq               uint64

	now      func() time.Time
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver registers an observer for mutation events.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		instanceID: uuid.NewString(),
		accounts:   make(map[int64]*Account),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InstanceID identifies this Store. Account and transaction ids are only
// unique within one instance; a restarted process starts again at 1.
func (s *Store) InstanceID() string {
	return s.instanceID
}

// OpenAccount creates an account with the given initial balance and kind.
func (s *Store) OpenAccount(initialBalance decimal.Decimal, kind AccountKind) (Account, error) {
	if !kind.Valid() {
		return Account{}, fmt.Errorf("%w: unknown account kind %q", ErrInvalidArgument, kind)
	}
	if initialBalance.IsNegative() {
		return Account{}, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidArgument)
	}

	s.mu.Lock()
	s.nextAccountID++
	acct := &Account{
		ID:        s.nextAccountID,
		Balance:   initialBalance,
		CreatedAt: s.now().UTC(),
		Kind:      kind,
	}
	s.accounts[acct.ID] = acct
	s.accountOrder = append(s.accountOrder, acct.ID)
	s.notify(s.event(EventAccountOpened, *acct))
	s.mu.Unlock()

	return acct.clone(), nil
}

// DeleteAccount removes the account and every transaction recorded against
// it. It reports false when the account does not exist.
func (s *Store) DeleteAccount(id int64) bool {
	s.mu.Lock()
	acct, ok := s.accounts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	delete(s.accounts, id)
	for i, aid := range s.accountOrder {
		if aid == id {
			s.accountOrder = append(s.accountOrder[:i], s.accountOrder[i+1:]...)
			break
		}
	}

	kept := s.transactions[:0]
	removed := 0
	for _, txn := range s.transactions {
		if txn.AccountID() == id {
			removed++
			continue
		}
		kept = append(kept, txn)
	}
	// Clear the tail so removed records are not retained by the backing array.
	for i := len(kept); i < len(s.transactions); i++ {
		s.transactions[i] = Transaction{}
	}
	s.transactions = kept

	evt := s.event(EventAccountDeleted, *acct)
	evt.RemovedTransactions = removed
	s.notify(evt)
	s.mu.Unlock()

	return true
}

// GetAccount returns the account with the given id.
func (s *Store) GetAccount(id int64) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return acct.clone(), nil
}

// ListAccounts returns all accounts in creation order.
func (s *Store) ListAccounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Account, 0, len(s.accountOrder))
	for _, id := range s.accountOrder {
		out = append(out, s.accounts[id].clone())
	}
	return out
}

// ListAccountsByKind returns the accounts of the given kind in creation order.
func (s *Store) ListAccountsByKind(kind AccountKind) ([]Account, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown account kind %q", ErrInvalidArgument, kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Account, 0)
	for _, id := range s.accountOrder {
		if acct := s.accounts[id]; acct.Kind == kind {
			out = append(out, acct.clone())
		}
	}
	return out, nil
}

// AggregateBalances returns the count, sum and average of all balances.
// The average of an empty ledger is zero.
func (s *Store) AggregateBalances() BalanceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := BalanceStats{Sum: decimal.Zero, Average: decimal.Zero}
	for _, id := range s.accountOrder {
		stats.Sum = stats.Sum.Add(s.accounts[id].Balance)
	}
	stats.Count = len(s.accountOrder)
	if stats.Count > 0 {
		stats.Average = stats.Sum.Div(decimal.NewFromInt(int64(stats.Count)))
	}
	return stats
}

// ApplyTransaction applies a deposit or withdrawal to an account and records
// it. A withdrawal larger than the current balance fails with
// ErrInsufficientFunds and leaves the ledger unchanged.
func (s *Store) ApplyTransaction(accountID int64, kind TransactionKind, amount decimal.Decimal) (Transaction, error) {
	if !kind.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidArgument, kind)
	}
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	s.mu.Lock()
	acct, ok := s.accounts[accountID]
	if !ok {
		s.mu.Unlock()
		return Transaction{}, fmt.Errorf("%w: id %d", ErrNotFound, accountID)
	}

	switch kind {
	case KindDeposit:
		acct.Balance = acct.Balance.Add(amount)
	case KindWithdrawal:
		if amount.GreaterThan(acct.Balance) {
			s.mu.Unlock()
			return Transaction{}, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, acct.Balance, amount)
		}
		acct.Balance = acct.Balance.Sub(amount)
	}

	s.nextTransactionID++
	txn := Transaction{
		ID:         s.nextTransactionID,
		Kind:       kind,
		Amount:     amount,
		OccurredAt: s.now().UTC(),
		Account:    acct.clone(),
	}
	s.transactions = append(s.transactions, txn)

	evt := s.event(EventTransactionApplied, *acct)
	recorded := txn.clone()
	evt.Transaction = &recorded
	s.notify(evt)
	s.mu.Unlock()

	return txn.clone(), nil
}

// ListTransactions returns all transactions, oldest first.
func (s *Store) ListTransactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		out = append(out, txn.clone())
	}
	return out
}

// ListTransactionsForAccount returns the transactions recorded against the
// account, oldest first. An unknown id yields an empty slice.
func (s *Store) ListTransactionsForAccount(accountID int64) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transaction, 0)
	for _, txn := range s.transactions {
		if txn.AccountID() == accountID {
			out = append(out, txn.clone())
		}
	}
	return out
}

// AggregateTransactions returns the transaction count and the sums of
// deposits and withdrawals.
func (s *Store) AggregateTransactions() TransactionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := TransactionStats{SumDeposits: decimal.Zero, SumWithdrawals: decimal.Zero}
	for _, txn := range s.transactions {
		switch txn.Kind {
		case KindDeposit:
			stats.SumDeposits = stats.SumDeposits.Add(txn.Amount)
		case KindWithdrawal:
			stats.SumWithdrawals = stats.SumWithdrawals.Add(txn.Amount)
		}
	}
	stats.Count = len(s.transactions)
	return stats
}

// event must be called with the write lock held.
func (s *Store) event(typ EventType, acct Account) Event {
	s.seq++
	return Event{
		Seq:        s.seq,
		Type:       typ,
		OccurredAt: s.now().UTC(),
		Account:    acct.clone(),
	}
}

// notify must be called with the write lock held, so observers see events
// in Seq order.
func (s *Store) notify(evt Event) {
	if s.observer != nil {
		s.observer.Observe(evt)
	}
}
