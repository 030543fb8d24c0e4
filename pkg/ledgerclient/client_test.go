package ledgerclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/account-ledger/internal/api"
	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

func setupTestServer(t *testing.T) (*Client, *ledger.Store) {
	t.Helper()

	st := ledger.New()
	r, err := api.NewRouter(st, api.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{APIURL: server.URL + "/"}), st
}

func TestFetchSnapshot(t *testing.T) {
	client, st := setupTestServer(t)
	ctx := context.Background()

	a, _ := st.OpenAccount(decimal.RequireFromString("100"), ledger.KindChecking)
	b, _ := st.OpenAccount(decimal.RequireFromString("20.25"), ledger.KindSavings)
	st.ApplyTransaction(a.ID, ledger.KindDeposit, decimal.RequireFromString("50"))
	st.ApplyTransaction(b.ID, ledger.KindWithdrawal, decimal.RequireFromString("0.25"))

	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		t.Fatalf("FetchSnapshot() err=%v", err)
	}
	if snap.InstanceID != st.InstanceID() {
		t.Fatalf("instanceId=%q want %q", snap.InstanceID, st.InstanceID())
	}
	if len(snap.Accounts) != 2 || len(snap.Transactions) != 2 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.Accounts[1].Kind != "SAVINGS" || !snap.Accounts[1].Balance.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("account=%+v", snap.Accounts[1])
	}
	first := snap.Transactions[0]
	if first.ID != "1" || first.Kind != "DEPOSIT" || first.Account.ID != "1" || !first.Account.Balance.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("transaction=%+v", first)
	}

	accounts, err := client.FetchAccounts(ctx)
	if err != nil || len(accounts) != 2 {
		t.Fatalf("FetchAccounts()=%v,%v", accounts, err)
	}
	txns, err := client.FetchTransactions(ctx)
	if err != nil || len(txns) != 2 {
		t.Fatalf("FetchTransactions()=%v,%v", txns, err)
	}
	forB, err := client.FetchAccountTransactions(ctx, "2")
	if err != nil || len(forB) != 1 || forB[0].Kind != "WITHDRAWAL" {
		t.Fatalf("FetchAccountTransactions()=%v,%v", forB, err)
	}
}

func TestFetchStats(t *testing.T) {
	client, st := setupTestServer(t)
	ctx := context.Background()

	bs, err := client.FetchBalanceStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bs.Count != 0 || !bs.Sum.IsZero() || !bs.Average.IsZero() {
		t.Fatalf("empty balance stats=%+v", bs)
	}

	a, _ := st.OpenAccount(decimal.NewFromInt(10), ledger.KindChecking)
	st.OpenAccount(decimal.NewFromInt(30), ledger.KindChecking)
	st.ApplyTransaction(a.ID, ledger.KindDeposit, decimal.NewFromInt(5))

	bs, err = client.FetchBalanceStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if bs.Count != 2 || !bs.Sum.Equal(decimal.NewFromInt(45)) || !bs.Average.Equal(decimal.RequireFromString("22.5")) {
		t.Fatalf("balance stats=%+v", bs)
	}

	ts, err := client.FetchTransactionStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ts.Count != 1 || !ts.SumDeposits.Equal(decimal.NewFromInt(5)) || !ts.SumWithdrawals.IsZero() {
		t.Fatalf("transaction stats=%+v", ts)
	}
}

func TestDoReturnsResponseError(t *testing.T) {
	client, _ := setupTestServer(t)

	err := client.Do(context.Background(), `{ accountById(id: "9") { id } }`, nil, nil)
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("err=%v, want *ResponseError", err)
	}
	if msgs := respErr.Messages(); len(msgs) != 1 || msgs[0] != "account not found" {
		t.Fatalf("messages=%v", msgs)
	}
	if respErr.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", respErr.StatusCode)
	}
}

func TestParseErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		typed   bool
	}{
		{"graphql shaped", http.StatusInternalServerError, `{"errors":[{"message":"internal server error"}]}`, "ledger API error: internal server error", true},
		{"plain text", http.StatusBadGateway, "upstream down\n", "ledger API error (status 502): upstream down", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/graphql" || r.Method != http.MethodPost {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(ClientConfig{APIURL: server.URL})
			_, err := client.FetchAccounts(context.Background())
			if err == nil || err.Error() != tt.wantMsg {
				t.Fatalf("err=%v want %q", err, tt.wantMsg)
			}
			var respErr *ResponseError
			if errors.As(err, &respErr) != tt.typed {
				t.Fatalf("typed=%v want %v", !tt.typed, tt.typed)
			}
		})
	}
}
