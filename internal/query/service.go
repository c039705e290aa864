package query

import (
	"context"
	"fmt"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/core"
	"AuctionLedger/internal/mint"
	"AuctionLedger/internal/persistence"

	"github.com/google/uuid"
)

// SequenceSource reports the engine's current global sequence, used as the
// as-of watermark on every response.
type SequenceSource interface {
	Sequence() int64
}

// Service answers read-only queries. Live auction state comes from the
// in-memory registry; event history comes from the durable log. Expiry is
// computed with the same clock the engine transitions use.
type Service struct {
	registry *auction.Registry
	minter   *mint.Ledger
	events   *persistence.EventLogWriter
	seq      SequenceSource
	clock    core.Clock
}

func NewService(registry *auction.Registry, minter *mint.Ledger, events *persistence.EventLogWriter, seq SequenceSource, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Service{
		registry: registry,
		minter:   minter,
		events:   events,
		seq:      seq,
		clock:    clock,
	}
}

// GetAuction returns the full status of one auction.
func (s *Service) GetAuction(key auction.Key) (*AuctionResponse, error) {
	state, err := s.registry.Snapshot(key)
	if err != nil {
		return nil, err
	}

	price, err := state.CurrentPrice()
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}

	return &AuctionResponse{
		Key:              state.Key.String(),
		Authority:        state.Authority,
		Collection:       state.Collection,
		BasePrice:        state.BasePrice,
		PriceIncrement:   state.PriceIncrement,
		MaxSupply:        state.MaxSupply,
		MinimumItems:     state.MinimumItems,
		Deadline:         state.Deadline,
		CurrentSupply:    state.CurrentSupply,
		TotalValueLocked: state.TotalValueLocked,
		IsGraduated:      state.IsGraduated,
		CurrentPrice:     price,
		Expired:          state.Expired(s.clock.Now()),
		ReceiptsIssued:   s.minter.Issued(key),
		AsOfSequence:     s.seq.Sequence(),
	}, nil
}

// GetCurrentPrice returns the price the next bid must meet.
func (s *Service) GetCurrentPrice(key auction.Key) (*PriceResponse, error) {
	state, err := s.registry.Snapshot(key)
	if err != nil {
		return nil, err
	}

	price, err := state.CurrentPrice()
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}

	return &PriceResponse{
		Key:          state.Key.String(),
		CurrentPrice: price,
		AsOfSequence: s.seq.Sequence(),
	}, nil
}

// GetBid returns one bidder's outstanding entitlement and receipt count.
// A bidder who never bid gets a zero entitlement, not an error.
func (s *Service) GetBid(key auction.Key, bidder uuid.UUID) (*BidResponse, error) {
	if _, err := s.registry.Snapshot(key); err != nil {
		return nil, err
	}

	amount := uint64(0)
	if bid, err := s.registry.BidSnapshot(key, bidder); err == nil {
		amount = bid.Amount
	}

	return &BidResponse{
		Key:          key.String(),
		Bidder:       bidder,
		Amount:       amount,
		Receipts:     s.minter.IssuedTo(key, bidder),
		AsOfSequence: s.seq.Sequence(),
	}, nil
}

// GetAuctionEvents returns the ordered committed history of one auction.
func (s *Service) GetAuctionEvents(ctx context.Context, key auction.Key, limit int) ([]EventHistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	rows, err := s.events.LoadAuctionEvents(ctx, key.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	entries := make([]EventHistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, EventHistoryEntry{
			Sequence:   r.Sequence,
			EventType:  r.EventType,
			AuctionKey: r.AuctionKey,
			Payload:    r.Payload,
			Timestamp:  r.Timestamp,
		})
	}
	return entries, nil
}
