package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/core"

	"github.com/google/uuid"
)

// ParseRawCommand converts a RawCommand (JSON bytes + command type string)
// into a typed core.Command. Validation of business rules stays in the
// engine; this layer only checks shape.
func ParseRawCommand(raw RawCommand, commandType string) (core.Command, error) {
	switch commandType {
	case "InitializeAuction":
		return parseInitializeAuction(raw.Data)
	case "PlaceBid":
		return parsePlaceBid(raw.Data)
	case "Refund":
		return parseRefund(raw.Data)
	case "Withdraw":
		return parseWithdraw(raw.Data)
	case "FundWallet":
		return parseFundWallet(raw.Data)
	default:
		return nil, fmt.Errorf("unknown command type: %s", commandType)
	}
}

// --- JSON wire formats ---
// Field names use snake_case to match upstream producers.

type initializeAuctionJSON struct {
	RequestID      string `json:"request_id"`
	Authority      string `json:"authority"`
	Collection     string `json:"collection"`
	BasePrice      uint64 `json:"base_price"`
	PriceIncrement uint64 `json:"price_increment"`
	MaxSupply      uint64 `json:"max_supply"`
	MinimumItems   uint64 `json:"minimum_items"`
	DeadlineUs     int64  `json:"deadline_us"`
}

func parseInitializeAuction(data []byte) (*core.InitializeAuction, error) {
	var j initializeAuctionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse InitializeAuction: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	authority, err := uuid.Parse(j.Authority)
	if err != nil {
		return nil, fmt.Errorf("parse authority: %w", err)
	}
	collection, err := uuid.Parse(j.Collection)
	if err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}

	return &core.InitializeAuction{
		RequestID:      requestID,
		Authority:      authority,
		Collection:     collection,
		BasePrice:      j.BasePrice,
		PriceIncrement: j.PriceIncrement,
		MaxSupply:      j.MaxSupply,
		MinimumItems:   j.MinimumItems,
		Deadline:       time.UnixMicro(j.DeadlineUs),
	}, nil
}

type placeBidJSON struct {
	RequestID  string `json:"request_id"`
	AuctionKey string `json:"auction_key"`
	Bidder     string `json:"bidder"`
	Amount     uint64 `json:"amount"`
}

func parsePlaceBid(data []byte) (*core.PlaceBid, error) {
	var j placeBidJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PlaceBid: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	key, err := auction.ParseKey(j.AuctionKey)
	if err != nil {
		return nil, fmt.Errorf("parse auction_key: %w", err)
	}
	bidder, err := uuid.Parse(j.Bidder)
	if err != nil {
		return nil, fmt.Errorf("parse bidder: %w", err)
	}

	return &core.PlaceBid{
		RequestID: requestID,
		Auction:   key,
		Bidder:    bidder,
		Amount:    j.Amount,
	}, nil
}

type refundJSON struct {
	RequestID  string `json:"request_id"`
	AuctionKey string `json:"auction_key"`
	Bidder     string `json:"bidder"`
}

func parseRefund(data []byte) (*core.Refund, error) {
	var j refundJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Refund: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	key, err := auction.ParseKey(j.AuctionKey)
	if err != nil {
		return nil, fmt.Errorf("parse auction_key: %w", err)
	}
	bidder, err := uuid.Parse(j.Bidder)
	if err != nil {
		return nil, fmt.Errorf("parse bidder: %w", err)
	}

	return &core.Refund{
		RequestID: requestID,
		Auction:   key,
		Bidder:    bidder,
	}, nil
}

type withdrawJSON struct {
	RequestID  string `json:"request_id"`
	AuctionKey string `json:"auction_key"`
	Caller     string `json:"caller"`
}

func parseWithdraw(data []byte) (*core.Withdraw, error) {
	var j withdrawJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdraw: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	key, err := auction.ParseKey(j.AuctionKey)
	if err != nil {
		return nil, fmt.Errorf("parse auction_key: %w", err)
	}
	caller, err := uuid.Parse(j.Caller)
	if err != nil {
		return nil, fmt.Errorf("parse caller: %w", err)
	}

	return &core.Withdraw{
		RequestID: requestID,
		Auction:   key,
		Caller:    caller,
	}, nil
}

type fundWalletJSON struct {
	RequestID string `json:"request_id"`
	Wallet    string `json:"wallet"`
	Amount    uint64 `json:"amount"`
}

func parseFundWallet(data []byte) (*core.FundWallet, error) {
	var j fundWalletJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FundWallet: %w", err)
	}

	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	wallet, err := uuid.Parse(j.Wallet)
	if err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}

	return &core.FundWallet{
		RequestID: requestID,
		Wallet:    wallet,
		Amount:    j.Amount,
	}, nil
}
