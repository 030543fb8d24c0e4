package ledger

import (
	"errors"
	"testing"
)

func TestParseAccountKind(t *testing.T) {
	tests := []struct {
		in      string
		want    AccountKind
		wantErr bool
	}{
		{"CHECKING", KindChecking, false},
		{"SAVINGS", KindSavings, false},
		{"COURANT", KindChecking, false},
		{"epargne", KindSavings, false},
		{" savings ", KindSavings, false},
		{"DEPOT", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccountKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("want ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseAccountKind(%q)=%q,%v want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestParseTransactionKind(t *testing.T) {
	tests := []struct {
		in      string
		want    TransactionKind
		wantErr bool
	}{
		{"DEPOSIT", KindDeposit, false},
		{"WITHDRAWAL", KindWithdrawal, false},
		{"DEPOT", KindDeposit, false},
		{"retrait", KindWithdrawal, false},
		{"TRANSFER", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTransactionKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("want ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseTransactionKind(%q)=%q,%v want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestLegacyNames(t *testing.T) {
	if KindChecking.Legacy() != "COURANT" || KindSavings.Legacy() != "EPARGNE" {
		t.Fatalf("account legacy names: %s %s", KindChecking.Legacy(), KindSavings.Legacy())
	}
	if KindDeposit.Legacy() != "DEPOT" || KindWithdrawal.Legacy() != "RETRAIT" {
		t.Fatalf("transaction legacy names: %s %s", KindDeposit.Legacy(), KindWithdrawal.Legacy())
	}
}

func TestAccountCloneIsIndependent(t *testing.T) {
	a := Account{ID: 1, Balance: dec("12.34"), Kind: KindChecking}
	c := a.clone()
	if c.Balance.Coefficient() == a.Balance.Coefficient() {
		t.Fatal("clone shares coefficient")
	}
	if !c.Balance.Equal(a.Balance) || c.ID != a.ID || c.Kind != a.Kind {
		t.Fatalf("clone=%+v differs from %+v", c, a)
	}
}
