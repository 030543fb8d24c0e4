package events

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

type recordingSink struct {
	mu      sync.Mutex
	name    string
	msgs    []Message
	fail    bool
	closed  bool
	blockCh chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, msg Message) error {
	if s.blockCh != nil {
		<-s.blockCh
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	if s.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversStoreEventsInOrder(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", fail: true}
	d := NewDispatcher(discardLogger(), 16, bad, good)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()

	s := ledger.New(ledger.WithObserver(d))
	a, err := s.OpenAccount(decimal.NewFromInt(100), ledger.KindChecking)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyTransaction(a.ID, ledger.KindWithdrawal, decimal.NewFromInt(40)); err != nil {
		t.Fatal(err)
	}
	s.DeleteAccount(a.ID)

	if err := d.Close(); err != nil {
		t.Fatalf("Close() err=%v", err)
	}
	<-done

	msgs := good.messages()
	wantTypes := []string{"account.opened", "transaction.applied", "account.deleted"}
	if len(msgs) != len(wantTypes) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(wantTypes))
	}
	for i, m := range msgs {
		if m.Type != wantTypes[i] {
			t.Errorf("msg %d type=%s want=%s", i, m.Type, wantTypes[i])
		}
		if m.Seq != uint64(i+1) {
			t.Errorf("msg %d seq=%d", i, m.Seq)
		}
		if m.ID == "" {
			t.Errorf("msg %d has no id", i)
		}
	}

	txn := msgs[1].Transaction
	if txn == nil {
		t.Fatal("transaction payload missing")
	}
	if txn.Kind != "WITHDRAWAL" || !txn.Amount.Equal(decimal.NewFromInt(40)) || !txn.Account.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected transaction payload %+v", txn)
	}
	if msgs[2].RemovedTransactions != 1 {
		t.Fatalf("removed=%d want=1", msgs[2].RemovedTransactions)
	}

	// A failing sink is still offered every message and does not block others.
	if n := len(bad.messages()); n != 3 {
		t.Fatalf("failing sink saw %d messages, want 3", n)
	}
	if !good.closed || !bad.closed {
		t.Fatal("sinks not closed")
	}
	if d.Delivered() != 3 {
		t.Fatalf("delivered=%d want=3", d.Delivered())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &recordingSink{name: "slow", blockCh: block}
	d := NewDispatcher(discardLogger(), 1, sink)

	// Without Run, the queue holds one message and the rest are dropped.
	for i := 1; i <= 4; i++ {
		d.Observe(ledger.Event{Seq: uint64(i), Type: ledger.EventAccountOpened})
	}
	if d.Dropped() != 3 {
		t.Fatalf("dropped=%d want=3", d.Dropped())
	}

	close(block)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	msgs := sink.messages()
	if len(msgs) != 1 || msgs[0].Seq != 1 {
		t.Fatalf("delivered=%+v want only seq 1", msgs)
	}
}

func TestDispatcherIgnoresEventsAfterClose(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(discardLogger(), 4, sink)
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	d.Observe(ledger.Event{Seq: 1, Type: ledger.EventAccountOpened})
	if n := len(sink.messages()); n != 0 {
		t.Fatalf("got %d messages after close", n)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() err=%v", err)
	}
}

func TestRoutingKey(t *testing.T) {
	tests := []struct {
		prefix, typ, want string
	}{
		{"ledger.events", "account.opened", "ledger.events.account.opened"},
		{"", "account.deleted", "account.deleted"},
	}
	for _, tt := range tests {
		if got := routingKey(tt.prefix, tt.typ); got != tt.want {
			t.Errorf("routingKey(%q, %q)=%q want %q", tt.prefix, tt.typ, got, tt.want)
		}
	}
}

func TestNewSinkValidation(t *testing.T) {
	if _, err := NewKafkaSink(KafkaConfig{Topic: "t"}, nil); err == nil {
		t.Error("kafka sink without brokers: want error")
	}
	if _, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Error("kafka sink without topic: want error")
	}
	k, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "ledger-events"}, nil)
	if err != nil {
		t.Fatalf("NewKafkaSink err=%v", err)
	}
	if k.Name() != "kafka" {
		t.Errorf("name=%s", k.Name())
	}
	if err := k.Close(); err != nil {
		t.Errorf("Close() err=%v", err)
	}
	if _, err := NewAMQPSink(AMQPConfig{}); err == nil {
		t.Error("amqp sink without URL: want error")
	}
}

func TestDispatcherCloseLogsCountsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d := NewDispatcher(logger, 4, &recordingSink{name: "s"})

	d.Observe(ledger.Event{Seq: 1, Type: ledger.EventAccountOpened})
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if n := strings.Count(out, "event dispatcher stopped"); n != 1 {
		t.Fatalf("stop logged %d times: %s", n, out)
	}
	if !strings.Contains(out, "delivered=1") || !strings.Contains(out, "dropped=0") {
		t.Fatalf("log=%s", out)
	}
}
