package token

import (
	"fmt"
	"strings"

	"AuctionLedger/internal/auction"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace.
type AccountScope uint8

const (
	// ScopeWallet holds a participant's transferable balance (bidders and
	// authorities alike).
	ScopeWallet AccountScope = iota
	// ScopeCustody holds value collected by an auction prior to withdrawal
	// or refund.
	ScopeCustody
)

// Account identifies one balance-bearing account.
type Account struct {
	Scope    AccountScope
	EntityID [32]byte // UUID (zero-padded) for wallets, auction key for custody
}

// WalletAccount returns the account holding a participant's funds.
func WalletAccount(owner uuid.UUID) Account {
	var entityID [32]byte
	copy(entityID[:], owner[:])
	return Account{Scope: ScopeWallet, EntityID: entityID}
}

// CustodyAccount returns the auction-owned holding account.
func CustodyAccount(key auction.Key) Account {
	return Account{Scope: ScopeCustody, EntityID: key}
}

// ParseAccount inverts Path.
func ParseAccount(path string) (Account, error) {
	switch {
	case strings.HasPrefix(path, "wallet:"):
		owner, err := uuid.Parse(strings.TrimPrefix(path, "wallet:"))
		if err != nil {
			return Account{}, fmt.Errorf("parse wallet account %q: %w", path, err)
		}
		return WalletAccount(owner), nil
	case strings.HasPrefix(path, "custody:"):
		key, err := auction.ParseKey(strings.TrimPrefix(path, "custody:"))
		if err != nil {
			return Account{}, fmt.Errorf("parse custody account %q: %w", path, err)
		}
		return CustodyAccount(key), nil
	}
	return Account{}, fmt.Errorf("unknown account path %q", path)
}

// Path returns the string representation for storage/logging.
func (a Account) Path() string {
	switch a.Scope {
	case ScopeWallet:
		var owner uuid.UUID
		copy(owner[:], a.EntityID[:16])
		return fmt.Sprintf("wallet:%s", owner)
	case ScopeCustody:
		return fmt.Sprintf("custody:%s", auction.Key(a.EntityID))
	}
	return "unknown"
}
