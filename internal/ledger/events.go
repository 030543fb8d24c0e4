package ledger

import "time"

// EventType identifies the mutation that produced an Event.
type EventType string

// Event types.
const (
	EventAccountOpened      EventType = "account.opened"
	EventAccountDeleted     EventType = "account.deleted"
	EventTransactionApplied EventType = "transaction.applied"
)

// Event describes a successful mutation of the store.
type Event struct {
	// Seq is allocated in the same critical section as the mutation, so
	// sequence order is mutation order.
	Seq        uint64
	Type       EventType
	OccurredAt time.Time
	Account    Account
	// Transaction is set for EventTransactionApplied.
	Transaction *Transaction
	// RemovedTransactions is set for EventAccountDeleted.
	RemovedTransactions int
}

// Observer receives store events after the mutation has been applied.
// Observe is called with the store lock held, in Seq order. It must not
// block and must not call back into the Store.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
