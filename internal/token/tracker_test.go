package token_test

import (
	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/token"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAccount_Paths(t *testing.T) {
	owner := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	wallet := token.WalletAccount(owner)

	want := "wallet:550e8400-e29b-41d4-a716-446655440000"
	if wallet.Path() != want {
		t.Errorf("got %q, want %q", wallet.Path(), want)
	}

	key := auction.DeriveKey(owner, uuid.New())
	custody := token.CustodyAccount(key)
	if custody.Path() != "custody:"+key.String() {
		t.Errorf("custody path: got %q", custody.Path())
	}
}

func TestTracker_TransferMovesFunds(t *testing.T) {
	tr := token.NewTracker()
	from := token.WalletAccount(uuid.New())
	to := token.CustodyAccount(auction.DeriveKey(uuid.New(), uuid.New()))

	if err := tr.Deposit(from, 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := tr.Transfer(from, to, 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := tr.Balance(from); got != 600 {
		t.Errorf("source balance: got %d, want 600", got)
	}
	if got := tr.Balance(to); got != 400 {
		t.Errorf("destination balance: got %d, want 400", got)
	}
}

func TestTracker_InsufficientFunds_NoPartialEffect(t *testing.T) {
	tr := token.NewTracker()
	from := token.WalletAccount(uuid.New())
	to := token.WalletAccount(uuid.New())

	if err := tr.Deposit(from, 99); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	err := tr.Transfer(from, to, 100)
	if !errors.Is(err, auction.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if tr.Balance(from) != 99 || tr.Balance(to) != 0 {
		t.Errorf("failed transfer must leave balances untouched: from=%d to=%d",
			tr.Balance(from), tr.Balance(to))
	}
}

func TestTracker_SelfTransferRejected(t *testing.T) {
	tr := token.NewTracker()
	acct := token.WalletAccount(uuid.New())
	tr.Deposit(acct, 10)

	if err := tr.Transfer(acct, acct, 5); err == nil {
		t.Error("self-transfer should be rejected")
	}
}

func TestTracker_TransfersConserveValue(t *testing.T) {
	tr := token.NewTracker()
	a := token.WalletAccount(uuid.New())
	b := token.WalletAccount(uuid.New())
	c := token.CustodyAccount(auction.DeriveKey(uuid.New(), uuid.New()))

	tr.Deposit(a, 500)
	tr.Deposit(b, 300)

	tr.Transfer(a, c, 200)
	tr.Transfer(b, c, 300)
	tr.Transfer(c, a, 100)

	if total := tr.TotalSupply(); total != 800 {
		t.Errorf("total supply: got %d, want 800", total)
	}
}
