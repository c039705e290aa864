package main

import (
	"encoding/json"
	"testing"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/event"
	"AuctionLedger/internal/mint"
	"AuctionLedger/internal/persistence"
	"AuctionLedger/internal/token"

	"github.com/google/uuid"
)

func eventRow(t *testing.T, seq int64, typ event.Type, payload interface{}) persistence.EventRow {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return persistence.EventRow{
		Sequence:  seq,
		EventType: typ.String(),
		Payload:   data,
		Timestamp: time.Now(),
	}
}

func TestReplay_ConservesValueAcrossFundBidRefund(t *testing.T) {
	registry := auction.NewRegistry()
	tracker := token.NewTracker()
	minter := mint.NewLedger()

	authority := uuid.New()
	collection := uuid.New()
	bidder := uuid.New()
	key := auction.DeriveKey(authority, collection)

	rows := []persistence.EventRow{
		eventRow(t, 0, event.TypeAuctionInitialized, &event.AuctionInitialized{
			AuctionKey:     key,
			Authority:      authority,
			Collection:     collection,
			BasePrice:      10,
			PriceIncrement: 5,
			MaxSupply:      5,
			MinimumItems:   5,
			Deadline:       time.Now().Add(time.Hour),
		}),
		eventRow(t, 1, event.TypeWalletFunded, &event.WalletFunded{Wallet: bidder, Amount: 100}),
		eventRow(t, 2, event.TypeBidPlaced, &event.BidPlaced{
			AuctionKey: key,
			Bidder:     bidder,
			Amount:     10,
			NewSupply:  1,
			ReceiptID:  uuid.New(),
		}),
		eventRow(t, 3, event.TypeBidRefunded, &event.BidRefunded{
			AuctionKey: key,
			Bidder:     bidder,
			Amount:     10,
		}),
	}

	for _, row := range rows {
		if err := applyEventRow(row, registry, tracker, minter); err != nil {
			t.Fatalf("apply seq=%d: %v", row.Sequence, err)
		}
	}

	// The bid's replay must debit the wallet, or the refund pays on top of
	// a balance the bidder never spent.
	if got := tracker.Balance(token.WalletAccount(bidder)); got != 100 {
		t.Errorf("bidder wallet after fund/bid/refund replay: got %d, want exactly 100", got)
	}
	if got := tracker.Balance(token.CustodyAccount(key)); got != 0 {
		t.Errorf("custody after refund replay: got %d, want 0", got)
	}
	if got := tracker.TotalSupply(); got != 100 {
		t.Errorf("replay created or destroyed value: total %d, want 100", got)
	}
}

func TestReplay_BidRequiresPriorFunding(t *testing.T) {
	registry := auction.NewRegistry()
	tracker := token.NewTracker()
	minter := mint.NewLedger()

	authority := uuid.New()
	collection := uuid.New()
	key := auction.DeriveKey(authority, collection)

	init := eventRow(t, 0, event.TypeAuctionInitialized, &event.AuctionInitialized{
		AuctionKey:   key,
		Authority:    authority,
		Collection:   collection,
		BasePrice:    10,
		MaxSupply:    5,
		MinimumItems: 5,
		Deadline:     time.Now().Add(time.Hour),
	})
	if err := applyEventRow(init, registry, tracker, minter); err != nil {
		t.Fatalf("apply init: %v", err)
	}

	// A bid against an unfunded wallet cannot be replayed silently; the log
	// would be inconsistent and the defect must surface.
	bid := eventRow(t, 1, event.TypeBidPlaced, &event.BidPlaced{
		AuctionKey: key,
		Bidder:     uuid.New(),
		Amount:     10,
		NewSupply:  1,
		ReceiptID:  uuid.New(),
	})
	if err := applyEventRow(bid, registry, tracker, minter); err == nil {
		t.Error("expected replay failure for a bid without prior funding")
	}
}
