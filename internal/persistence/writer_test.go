package persistence_test

import (
	"context"
	"testing"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/core"
	"AuctionLedger/internal/event"
	"AuctionLedger/internal/observability"
	"AuctionLedger/internal/persistence"
	"AuctionLedger/internal/testutil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testEnvelope(seq int64, key auction.Key, bidder uuid.UUID) core.Output {
	return core.Output{
		Envelope: &event.Envelope{
			Sequence:       seq,
			IdempotencyKey: uuid.New().String(),
			EventType:      event.TypeBidPlaced,
			AuctionKey:     key,
			Timestamp:      time.Now().UTC(),
			Payload: &event.BidPlaced{
				AuctionKey: key,
				Bidder:     bidder,
				Amount:     10,
				NewSupply:  uint64(seq + 1),
				ReceiptID:  uuid.New(),
			},
		},
	}
}

func TestEventLog_WriteAndRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	log := observability.NewLoggerWithLevel("persistence-test", zerolog.Disabled)
	if err := persistence.NewMigrator(db, "../../migrations", log).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	key := auction.DeriveKey(uuid.New(), uuid.New())
	bidder := uuid.New()

	before, err := persistence.NewEventLogWriter(db).LatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest sequence: %v", err)
	}
	base := before + 1

	var rows []persistence.EventRow
	for i := int64(0); i < 3; i++ {
		row, err := persistence.RowFromOutput(testEnvelope(base+i, key, bidder))
		if err != nil {
			t.Fatalf("row from output: %v", err)
		}
		rows = append(rows, row)
	}

	writer := persistence.NewEventLogWriter(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx, rows); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Rewriting the same sequences is a no-op, not an error.
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx, rows); err != nil {
		t.Fatalf("rewrite batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit rewrite: %v", err)
	}

	got, err := writer.LoadAuctionEvents(ctx, key.String(), 100)
	if err != nil {
		t.Fatalf("load auction events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("auction events: got %d, want 3", len(got))
	}
	for i, r := range got {
		if r.Sequence != base+int64(i) {
			t.Errorf("event %d: sequence %d, want %d", i, r.Sequence, base+int64(i))
		}
	}

	latest, err := writer.LatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest sequence: %v", err)
	}
	if latest < base+2 {
		t.Errorf("latest sequence: got %d, want at least %d", latest, base+2)
	}
}

func TestPostgresIdempotencyChecker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	log := observability.NewLoggerWithLevel("persistence-test", zerolog.Disabled)
	if err := persistence.NewMigrator(db, "../../migrations", log).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	key := auction.DeriveKey(uuid.New(), uuid.New())
	out := testEnvelope(time.Now().UnixNano(), key, uuid.New())
	row, err := persistence.RowFromOutput(out)
	if err != nil {
		t.Fatalf("row from output: %v", err)
	}

	writer := persistence.NewEventLogWriter(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx, []persistence.EventRow{row}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	checker := persistence.NewPostgresIdempotencyChecker(db)

	dup, err := checker.IsDuplicate("PlaceBid", row.IdempotencyKey)
	if err != nil {
		t.Fatalf("is duplicate: %v", err)
	}
	if !dup {
		t.Error("persisted key should be a duplicate")
	}

	dup, err = checker.IsDuplicate("PlaceBid", uuid.New().String())
	if err != nil {
		t.Fatalf("is duplicate: %v", err)
	}
	if dup {
		t.Error("fresh key should not be a duplicate")
	}
}
