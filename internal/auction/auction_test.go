package auction_test

import (
	"AuctionLedger/internal/auction"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	authority := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	collection := uuid.MustParse("650e8400-e29b-41d4-a716-446655440000")

	k1 := auction.DeriveKey(authority, collection)
	k2 := auction.DeriveKey(authority, collection)
	if k1 != k2 {
		t.Error("same inputs must derive the same key")
	}

	k3 := auction.DeriveKey(collection, authority)
	if k1 == k3 {
		t.Error("swapped inputs must not collide")
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	key := auction.DeriveKey(uuid.New(), uuid.New())

	parsed, err := auction.ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if parsed != key {
		t.Errorf("round trip mismatch: %s != %s", parsed, key)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	if _, err := auction.ParseKey("zz"); err == nil {
		t.Error("non-hex input should fail")
	}
	if _, err := auction.ParseKey("abcd"); err == nil {
		t.Error("short input should fail")
	}
}

func TestValidateConfig(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Second)

	cases := []struct {
		name         string
		maxSupply    uint64
		minimumItems uint64
		deadline     time.Time
		wantErr      bool
	}{
		{"valid", 10, 3, future, false},
		{"sub-minute deadline", 1, 1, now.Add(5 * time.Second), false},
		{"zero max supply", 0, 0, future, true},
		{"minimum above max", 5, 6, future, true},
		{"deadline in the past", 10, 3, now.Add(-time.Second), true},
		{"deadline exactly now", 10, 3, now, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := auction.ValidateConfig(tc.maxSupply, tc.minimumItems, tc.deadline, now)
			if tc.wantErr && !errors.Is(err, auction.ErrInvalidParameters) {
				t.Errorf("expected ErrInvalidParameters, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegistry_CreateDuplicate(t *testing.T) {
	reg := auction.NewRegistry()
	key := auction.DeriveKey(uuid.New(), uuid.New())

	if err := reg.Create(auction.State{Key: key, MaxSupply: 1}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := reg.Create(auction.State{Key: key, MaxSupply: 1})
	if !errors.Is(err, auction.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestRegistry_AcquireUnknown(t *testing.T) {
	reg := auction.NewRegistry()

	_, err := reg.Acquire(auction.DeriveKey(uuid.New(), uuid.New()))
	if !errors.Is(err, auction.ErrAuctionNotFound) {
		t.Errorf("expected ErrAuctionNotFound, got %v", err)
	}
}

func TestTxn_BidLifecycle(t *testing.T) {
	reg := auction.NewRegistry()
	key := auction.DeriveKey(uuid.New(), uuid.New())
	bidder := uuid.New()

	if err := reg.Create(auction.State{Key: key, MaxSupply: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}

	txn, err := reg.Acquire(key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if txn.Bid(bidder) != nil {
		t.Error("bid entry should not exist before first accepted bid")
	}

	b := txn.UpsertBid(bidder)
	b.Amount += 100
	txn.State().TotalValueLocked += 100
	txn.State().CurrentSupply++

	if err := txn.CheckInvariants(); err != nil {
		t.Errorf("invariants should hold: %v", err)
	}
	if txn.OutstandingTotal() != 100 {
		t.Errorf("outstanding: got %d, want 100", txn.OutstandingTotal())
	}
	txn.Release()

	snap, err := reg.BidSnapshot(key, bidder)
	if err != nil {
		t.Fatalf("bid snapshot: %v", err)
	}
	if snap.Amount != 100 {
		t.Errorf("snapshot amount: got %d, want 100", snap.Amount)
	}
}

func TestTxn_InvariantViolations(t *testing.T) {
	reg := auction.NewRegistry()
	key := auction.DeriveKey(uuid.New(), uuid.New())

	if err := reg.Create(auction.State{Key: key, MaxSupply: 1, MinimumItems: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	txn, err := reg.Acquire(key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer txn.Release()

	// Supply above cap.
	txn.State().CurrentSupply = 2
	if txn.CheckInvariants() == nil {
		t.Error("supply above max_supply must violate invariants")
	}
	txn.State().CurrentSupply = 1

	// TVL without matching bid entries.
	txn.State().TotalValueLocked = 50
	if txn.CheckInvariants() == nil {
		t.Error("total_value_locked without outstanding bids must violate invariants")
	}
	txn.State().TotalValueLocked = 0

	// Graduation below minimum.
	txn.State().CurrentSupply = 0
	txn.State().IsGraduated = true
	if txn.CheckInvariants() == nil {
		t.Error("graduation below minimum_items must violate invariants")
	}
}

func TestState_Expired(t *testing.T) {
	deadline := time.Now()
	s := auction.State{Deadline: deadline}

	if s.Expired(deadline) {
		t.Error("deadline instant itself is not expired (now <= deadline accepts bids)")
	}
	if !s.Expired(deadline.Add(time.Nanosecond)) {
		t.Error("any instant after the deadline is expired")
	}
}
