package event

import (
	"time"

	"AuctionLedger/internal/auction"
)

// Type discriminator for event payloads.
type Type int32

const (
	TypeUnknown Type = iota
	TypeAuctionInitialized
	TypeBidPlaced
	TypeAuctionGraduated
	TypeBidRefunded
	TypeFundsWithdrawn
	TypeWalletFunded
)

// Envelope wraps every committed event in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the engine.
	Sequence int64

	// Idempotency key of the command that produced this event.
	IdempotencyKey string

	// Event type discriminator.
	EventType Type

	// Auction context.
	AuctionKey auction.Key

	// Commit timestamp, taken from the injected clock at validation time.
	Timestamp time.Time

	// The typed event payload.
	Payload Event

	// SHA-256 of state AFTER applying the transition.
	StateHash [32]byte

	// Previous event's state hash (chain integrity).
	PrevHash [32]byte
}

// Event is the interface all event payloads implement.
type Event interface {
	EventType() Type
	Auction() auction.Key
}

func (t Type) String() string {
	switch t {
	case TypeAuctionInitialized:
		return "AuctionInitialized"
	case TypeBidPlaced:
		return "BidPlaced"
	case TypeAuctionGraduated:
		return "AuctionGraduated"
	case TypeBidRefunded:
		return "BidRefunded"
	case TypeFundsWithdrawn:
		return "FundsWithdrawn"
	case TypeWalletFunded:
		return "WalletFunded"
	default:
		return "Unknown"
	}
}
