package query

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuctionResponse is the full auction status for API queries. All responses
// carry as_of_sequence for freshness semantics.
type AuctionResponse struct {
	Key              string    `json:"key"`
	Authority        uuid.UUID `json:"authority"`
	Collection       uuid.UUID `json:"collection"`
	BasePrice        uint64    `json:"base_price"`
	PriceIncrement   uint64    `json:"price_increment"`
	MaxSupply        uint64    `json:"max_supply"`
	MinimumItems     uint64    `json:"minimum_items"`
	Deadline         time.Time `json:"deadline"`
	CurrentSupply    uint64    `json:"current_supply"`
	TotalValueLocked uint64    `json:"total_value_locked"`
	IsGraduated      bool      `json:"is_graduated"`
	CurrentPrice     uint64    `json:"current_price"`
	Expired          bool      `json:"expired"`
	ReceiptsIssued   uint64    `json:"receipts_issued"`
	AsOfSequence     int64     `json:"as_of_sequence"`
}

// PriceResponse is the current bid floor for one auction.
type PriceResponse struct {
	Key          string `json:"key"`
	CurrentPrice uint64 `json:"current_price"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// BidResponse is one bidder's outstanding entitlement.
type BidResponse struct {
	Key          string    `json:"key"`
	Bidder       uuid.UUID `json:"bidder"`
	Amount       uint64    `json:"amount"`
	Receipts     uint64    `json:"receipts"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// EventHistoryEntry is one committed event from the durable log.
type EventHistoryEntry struct {
	Sequence   int64           `json:"sequence"`
	EventType  string          `json:"event_type"`
	AuctionKey string          `json:"auction_key"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}
