package event

import (
	"time"

	"AuctionLedger/internal/auction"

	"github.com/google/uuid"
)

// AuctionInitialized records the creation of an auction ledger.
type AuctionInitialized struct {
	AuctionKey     auction.Key
	Authority      uuid.UUID
	Collection     uuid.UUID
	BasePrice      uint64
	PriceIncrement uint64
	MaxSupply      uint64
	MinimumItems   uint64
	Deadline       time.Time
}

func (e *AuctionInitialized) EventType() Type      { return TypeAuctionInitialized }
func (e *AuctionInitialized) Auction() auction.Key { return e.AuctionKey }

// BidPlaced records one accepted bid and the supply after it.
type BidPlaced struct {
	AuctionKey auction.Key
	Bidder     uuid.UUID
	Amount     uint64
	NewSupply  uint64
	ReceiptID  uuid.UUID
}

func (e *BidPlaced) EventType() Type      { return TypeBidPlaced }
func (e *BidPlaced) Auction() auction.Key { return e.AuctionKey }

// AuctionGraduated records the one-way graduation transition.
type AuctionGraduated struct {
	AuctionKey       auction.Key
	TotalItems       uint64
	TotalValueLocked uint64
}

func (e *AuctionGraduated) EventType() Type      { return TypeAuctionGraduated }
func (e *AuctionGraduated) Auction() auction.Key { return e.AuctionKey }

// BidRefunded records the return of a bidder's outstanding value.
type BidRefunded struct {
	AuctionKey auction.Key
	Bidder     uuid.UUID
	Amount     uint64
}

func (e *BidRefunded) EventType() Type      { return TypeBidRefunded }
func (e *BidRefunded) Auction() auction.Key { return e.AuctionKey }

// FundsWithdrawn records the authority sweeping the locked value.
type FundsWithdrawn struct {
	AuctionKey auction.Key
	Authority  uuid.UUID
	Amount     uint64
}

func (e *FundsWithdrawn) EventType() Type      { return TypeFundsWithdrawn }
func (e *FundsWithdrawn) Auction() auction.Key { return e.AuctionKey }

// WalletFunded records an external deposit into a wallet. Not tied to any
// auction, so it carries the zero key.
type WalletFunded struct {
	Wallet uuid.UUID
	Amount uint64
}

func (e *WalletFunded) EventType() Type      { return TypeWalletFunded }
func (e *WalletFunded) Auction() auction.Key { return auction.Key{} }
