package core

import (
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/token"

	"github.com/google/uuid"
)

// TokenTransferPort moves fungible value between wallets and auction custody.
// Implementations must fail without partial effect on insufficient balance.
// Deposit is the sole entry point for value; Transfer conserves it.
type TokenTransferPort interface {
	Transfer(from, to token.Account, amount uint64) error
	Deposit(account token.Account, amount uint64) error
	Balance(account token.Account) uint64
}

// ReceiptMinter issues one non-fungible receipt per accepted bid. The minter
// owns its own issuance bookkeeping entirely outside the engine.
type ReceiptMinter interface {
	Mint(recipient uuid.UUID, key auction.Key) (uuid.UUID, error)
}

// Clock provides the engine's only view of time. Deadline comparisons use
// the clock at invocation time; the engine never owns a clock of its own.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the execution environment's wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
