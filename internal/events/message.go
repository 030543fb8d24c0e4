// Package events fans ledger mutations out to external sinks: the process
// log, an append-only bbolt journal, Kafka and RabbitMQ.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

// AccountPayload is the account state carried by a Message.
type AccountPayload struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	Kind      string          `json:"kind"`
}

// TransactionPayload is the transaction carried by a Message.
type TransactionPayload struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurredAt"`
	Account    AccountPayload  `json:"account"`
}

// Message is the serialized form of a ledger event.
type Message struct {
	ID                  string              `json:"id"`
	Seq                 uint64              `json:"seq"`
	Type                string              `json:"type"`
	OccurredAt          time.Time           `json:"occurredAt"`
	Account             AccountPayload      `json:"account"`
	Transaction         *TransactionPayload `json:"transaction,omitempty"`
	RemovedTransactions int                 `json:"removedTransactions,omitempty"`
}

// NewMessage converts a ledger event into a Message with a fresh id.
func NewMessage(e ledger.Event) Message {
	msg := Message{
		ID:                  uuid.NewString(),
		Seq:                 e.Seq,
		Type:                string(e.Type),
		OccurredAt:          e.OccurredAt,
		Account:             accountPayload(e.Account),
		RemovedTransactions: e.RemovedTransactions,
	}
	if e.Transaction != nil {
		msg.Transaction = &TransactionPayload{
			ID:         strconv.FormatInt(e.Transaction.ID, 10),
			Kind:       string(e.Transaction.Kind),
			Amount:     e.Transaction.Amount,
			OccurredAt: e.Transaction.OccurredAt,
			Account:    accountPayload(e.Transaction.Account),
		}
	}
	return msg
}

// Key returns the partitioning key of the message (the account id).
func (m Message) Key() []byte {
	return []byte(m.Account.ID)
}

// Encode returns the JSON encoding of the message.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func accountPayload(a ledger.Account) AccountPayload {
	return AccountPayload{
		ID:        strconv.FormatInt(a.ID, 10),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		Kind:      string(a.Kind),
	}
}
