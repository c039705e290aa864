package core

import (
	"time"

	"AuctionLedger/internal/auction"

	"github.com/google/uuid"
)

// CommandType discriminator for the four externally triggered transitions.
type CommandType int32

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeInitializeAuction
	CommandTypePlaceBid
	CommandTypeRefund
	CommandTypeWithdraw
	CommandTypeFundWallet
)

// Command is one logical mutating request. RequestID is the idempotency key:
// replay of an already-committed command must not double-apply.
type Command interface {
	IdempotencyKey() string
	CommandType() CommandType
}

// InitializeAuction creates the auction ledger at the key derived from
// (authority, collection).
type InitializeAuction struct {
	RequestID      uuid.UUID
	Authority      uuid.UUID
	Collection     uuid.UUID
	BasePrice      uint64
	PriceIncrement uint64
	MaxSupply      uint64
	MinimumItems   uint64
	Deadline       time.Time
}

func (c *InitializeAuction) IdempotencyKey() string   { return c.RequestID.String() }
func (c *InitializeAuction) CommandType() CommandType { return CommandTypeInitializeAuction }

// PlaceBid purchases the next unit at or above the current curve price.
type PlaceBid struct {
	RequestID uuid.UUID
	Auction   auction.Key
	Bidder    uuid.UUID
	Amount    uint64
}

func (c *PlaceBid) IdempotencyKey() string   { return c.RequestID.String() }
func (c *PlaceBid) CommandType() CommandType { return CommandTypePlaceBid }

// Refund returns a bidder's outstanding value after a failed raise.
type Refund struct {
	RequestID uuid.UUID
	Auction   auction.Key
	Bidder    uuid.UUID
}

func (c *Refund) IdempotencyKey() string   { return c.RequestID.String() }
func (c *Refund) CommandType() CommandType { return CommandTypeRefund }

// Withdraw sweeps the locked value to the authority after graduation.
type Withdraw struct {
	RequestID uuid.UUID
	Auction   auction.Key
	Caller    uuid.UUID
}

func (c *Withdraw) IdempotencyKey() string   { return c.RequestID.String() }
func (c *Withdraw) CommandType() CommandType { return CommandTypeWithdraw }

// FundWallet credits a wallet so its owner can participate in auctions.
type FundWallet struct {
	RequestID uuid.UUID
	Wallet    uuid.UUID
	Amount    uint64
}

func (c *FundWallet) IdempotencyKey() string   { return c.RequestID.String() }
func (c *FundWallet) CommandType() CommandType { return CommandTypeFundWallet }

func (ct CommandType) String() string {
	switch ct {
	case CommandTypeInitializeAuction:
		return "InitializeAuction"
	case CommandTypePlaceBid:
		return "PlaceBid"
	case CommandTypeRefund:
		return "Refund"
	case CommandTypeWithdraw:
		return "Withdraw"
	case CommandTypeFundWallet:
		return "FundWallet"
	default:
		return "Unknown"
	}
}
