package token

import (
	"fmt"
	"sync"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/curve"
)

// Tracker maintains in-memory account balances and moves fungible value
// between them. A transfer either applies fully or not at all; an
// insufficient source balance leaves both accounts untouched.
//
// Tracker is safe for concurrent use: transitions on different auctions may
// transfer in parallel.
type Tracker struct {
	mu       sync.Mutex
	balances map[Account]uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		balances: make(map[Account]uint64),
	}
}

// Transfer moves amount from one account to another.
func (t *Tracker) Transfer(from, to Account, amount uint64) error {
	if from == to {
		return fmt.Errorf("transfer %s to itself: %w", from.Path(), auction.ErrInvalidParameters)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[from] < amount {
		return fmt.Errorf("transfer from %s: have=%d, need=%d: %w",
			from.Path(), t.balances[from], amount, auction.ErrInsufficientFunds)
	}

	dest, err := curve.CheckedAdd(t.balances[to], amount)
	if err != nil {
		return fmt.Errorf("transfer to %s: %w", to.Path(), err)
	}

	t.balances[from] -= amount
	t.balances[to] = dest
	return nil
}

// Deposit credits an account from outside the tracked system (funding a
// bidder's wallet before participation).
func (t *Tracker) Deposit(account Account, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := curve.CheckedAdd(t.balances[account], amount)
	if err != nil {
		return fmt.Errorf("deposit to %s: %w", account.Path(), err)
	}
	t.balances[account] = next
	return nil
}

// Balance returns the current balance for an account.
func (t *Tracker) Balance(account Account) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Balances returns every non-zero balance keyed by account path, for
// snapshotting.
func (t *Tracker) Balances() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]uint64, len(t.balances))
	for acct, bal := range t.balances {
		if bal > 0 {
			out[acct.Path()] = bal
		}
	}
	return out
}

// RestoreBalance sets an account's balance directly during startup
// recovery. Must not be used once transfers are flowing.
func (t *Tracker) RestoreBalance(account Account, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = amount
}

// TotalSupply sums all tracked balances. Transfers conserve value, so the
// total only changes through Deposit.
func (t *Tracker) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total uint64
	for _, b := range t.balances {
		total += b
	}
	return total
}
