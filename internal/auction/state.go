package auction

import (
	"time"

	"AuctionLedger/internal/curve"

	"github.com/google/uuid"
)

// State is the authoritative record for one auction. Configuration fields
// (authority through deadline) are immutable after initialize; only
// CurrentSupply, TotalValueLocked and IsGraduated change afterwards.
type State struct {
	Key        Key
	Authority  uuid.UUID
	Collection uuid.UUID

	BasePrice      uint64
	PriceIncrement uint64
	MaxSupply      uint64
	MinimumItems   uint64
	Deadline       time.Time

	CurrentSupply    uint64
	TotalValueLocked uint64
	IsGraduated      bool
}

// CurrentPrice returns the price the next bid must meet, computed from the
// current supply. Fails closed on arithmetic overflow.
func (s *State) CurrentPrice() (uint64, error) {
	return curve.CurrentPrice(s.BasePrice, s.PriceIncrement, s.CurrentSupply)
}

// Expired reports whether the auction deadline has passed at the given
// instant. Expiry is a time-derived predicate, not stored state.
func (s *State) Expired(now time.Time) bool {
	return now.After(s.Deadline)
}

// ValidateConfig checks the creation-time preconditions.
func ValidateConfig(maxSupply, minimumItems uint64, deadline, now time.Time) error {
	if maxSupply == 0 {
		return ErrInvalidParameters
	}
	if minimumItems > maxSupply {
		return ErrInvalidParameters
	}
	if !deadline.After(now) {
		return ErrInvalidParameters
	}
	return nil
}

// Bid is the per-(auction, bidder) record of cumulative outstanding
// contribution. It is the only source of truth for a bidder's refund
// entitlement; the auction aggregates are never consulted for that.
type Bid struct {
	Auction Key
	Bidder  uuid.UUID
	Amount  uint64
}
