package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager stores and loads point-in-time state snapshots so a
// restart can skip replaying the full event log.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData is the full in-memory state at one sequence: every auction,
// every outstanding bid entitlement, account balances, receipt chain tips,
// and the recent idempotency keys used to warm the LRU.
type SnapshotData struct {
	Sequence        int64             `json:"sequence"`
	StateHash       []byte            `json:"state_hash"`
	PrevHash        []byte            `json:"prev_hash"`
	Auctions        []AuctionSnapshot `json:"auctions"`
	Bids            []BidSnapshot     `json:"bids"`
	Balances        map[string]uint64 `json:"balances"`
	Receipts        []ReceiptSnapshot `json:"receipts"`
	IdempotencyKeys []string          `json:"idempotency_keys"`
	CreatedAt       time.Time         `json:"created_at"`
}

// AuctionSnapshot is one serializable auction state.
type AuctionSnapshot struct {
	Key              string    `json:"key"`
	Authority        string    `json:"authority"`
	Collection       string    `json:"collection"`
	BasePrice        uint64    `json:"base_price"`
	PriceIncrement   uint64    `json:"price_increment"`
	MaxSupply        uint64    `json:"max_supply"`
	MinimumItems     uint64    `json:"minimum_items"`
	Deadline         time.Time `json:"deadline"`
	CurrentSupply    uint64    `json:"current_supply"`
	TotalValueLocked uint64    `json:"total_value_locked"`
	IsGraduated      bool      `json:"is_graduated"`
}

// BidSnapshot is one serializable bid entitlement.
type BidSnapshot struct {
	Auction string `json:"auction"`
	Bidder  string `json:"bidder"`
	Amount  uint64 `json:"amount"`
}

// ReceiptSnapshot is one serializable receipt, in mint order per auction.
type ReceiptSnapshot struct {
	Auction   string `json:"auction"`
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Index     uint64 `json:"index"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists one snapshot, keyed by sequence.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $5
	`, uuid.New(), snap.Sequence, data, snap.StateHash, len(data), snap.CreatedAt)

	return err
}

// LoadLatestSnapshot returns the newest verified snapshot, or nil for a
// cold start.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as usable after its state hash has been
// checked against a replay.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE event_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}
