package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/core"
	"AuctionLedger/internal/mint"
	"AuctionLedger/internal/observability"
	"AuctionLedger/internal/query"
	"AuctionLedger/internal/server"
	"AuctionLedger/internal/token"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type apiRig struct {
	handler http.Handler
	engine  *core.Engine
	tracker *token.Tracker
}

func newAPIRig(t *testing.T) *apiRig {
	t.Helper()

	registry := auction.NewRegistry()
	tracker := token.NewTracker()
	minter := mint.NewLedger()

	engine := core.NewEngine(core.Config{
		Registry: registry,
		Tokens:   tracker,
		Minter:   minter,
		Logger:   observability.NewLoggerWithLevel("api-test", zerolog.Disabled),
	})

	queries := query.NewService(registry, minter, nil, engine, nil)
	srv := server.NewServer(":0", engine, queries, observability.NewHealthChecker(), nil,
		observability.NewLoggerWithLevel("api-test", zerolog.Disabled))

	return &apiRig{handler: srv.Router(), engine: engine, tracker: tracker}
}

func (r *apiRig) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	return rec
}

func (r *apiRig) createAuction(t *testing.T) (string, uuid.UUID) {
	t.Helper()

	authority := uuid.New()
	rec := r.do(t, http.MethodPost, "/v1/auctions", map[string]interface{}{
		"authority":       authority.String(),
		"collection":      uuid.New().String(),
		"base_price":      10,
		"price_increment": 5,
		"max_supply":      7,
		"minimum_items":   3,
		"deadline":        time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create auction: status %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Key, authority
}

func TestAPI_InitializeAndQuery(t *testing.T) {
	rig := newAPIRig(t)
	key, authority := rig.createAuction(t)

	rec := rig.do(t, http.MethodGet, "/v1/auctions/"+key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get auction: status %d", rec.Code)
	}

	var resp query.AuctionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Authority != authority {
		t.Errorf("authority: got %s, want %s", resp.Authority, authority)
	}
	if resp.CurrentPrice != 10 {
		t.Errorf("current price: got %d, want 10", resp.CurrentPrice)
	}
	if resp.IsGraduated {
		t.Error("fresh auction must not be graduated")
	}
}

func TestAPI_InitializeRejectsBadConfig(t *testing.T) {
	rig := newAPIRig(t)

	rec := rig.do(t, http.MethodPost, "/v1/auctions", map[string]interface{}{
		"authority":     uuid.New().String(),
		"collection":    uuid.New().String(),
		"max_supply":    3,
		"minimum_items": 5,
		"deadline":      time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("minimum above max: status %d, want 400", rec.Code)
	}
}

func TestAPI_BidFlow(t *testing.T) {
	rig := newAPIRig(t)
	key, _ := rig.createAuction(t)

	bidder := uuid.New()
	if err := rig.tracker.Deposit(token.WalletAccount(bidder), 100); err != nil {
		t.Fatalf("fund bidder: %v", err)
	}

	rec := rig.do(t, http.MethodPost, fmt.Sprintf("/v1/auctions/%s/bids", key), map[string]interface{}{
		"bidder": bidder.String(),
		"amount": 10,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("bid: status %d, body %s", rec.Code, rec.Body)
	}

	// Same amount again now sits below the curve.
	rec = rig.do(t, http.MethodPost, fmt.Sprintf("/v1/auctions/%s/bids", key), map[string]interface{}{
		"bidder": bidder.String(),
		"amount": 10,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("below-price bid: status %d, want 409", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, fmt.Sprintf("/v1/auctions/%s/price", key), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get price: status %d", rec.Code)
	}
	var price query.PriceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &price); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if price.CurrentPrice != 15 {
		t.Errorf("price after one bid: got %d, want 15", price.CurrentPrice)
	}

	rec = rig.do(t, http.MethodGet, fmt.Sprintf("/v1/auctions/%s/bids/%s", key, bidder), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get bid: status %d", rec.Code)
	}
	var bid query.BidResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bid.Amount != 10 {
		t.Errorf("entitlement: got %d, want 10", bid.Amount)
	}
	if bid.Receipts != 1 {
		t.Errorf("receipts: got %d, want 1", bid.Receipts)
	}
}

func TestAPI_FundWalletThenBid(t *testing.T) {
	rig := newAPIRig(t)
	key, _ := rig.createAuction(t)

	bidder := uuid.New()
	requestID := uuid.New().String()

	rec := rig.do(t, http.MethodPost, "/v1/wallets/"+bidder.String()+"/deposits", map[string]interface{}{
		"request_id": requestID,
		"amount":     100,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("deposit: status %d, body %s", rec.Code, rec.Body)
	}

	// Same request_id again credits nothing.
	rec = rig.do(t, http.MethodPost, "/v1/wallets/"+bidder.String()+"/deposits", map[string]interface{}{
		"request_id": requestID,
		"amount":     100,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("replayed deposit: status %d", rec.Code)
	}
	if got := rig.tracker.Balance(token.WalletAccount(bidder)); got != 100 {
		t.Errorf("balance after replayed deposit: got %d, want 100", got)
	}

	rec = rig.do(t, http.MethodPost, fmt.Sprintf("/v1/auctions/%s/bids", key), map[string]interface{}{
		"bidder": bidder.String(),
		"amount": 10,
	})
	if rec.Code != http.StatusAccepted {
		t.Errorf("bid with deposited funds: status %d, body %s", rec.Code, rec.Body)
	}

	rec = rig.do(t, http.MethodPost, "/v1/wallets/"+bidder.String()+"/deposits", map[string]interface{}{
		"amount": 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero deposit: status %d, want 400", rec.Code)
	}
}

func TestAPI_WithdrawBeforeGraduation(t *testing.T) {
	rig := newAPIRig(t)
	key, authority := rig.createAuction(t)

	rec := rig.do(t, http.MethodPost, fmt.Sprintf("/v1/auctions/%s/withdrawals", key), map[string]interface{}{
		"caller": authority.String(),
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("withdraw before graduation: status %d, want 409", rec.Code)
	}

	rec = rig.do(t, http.MethodPost, fmt.Sprintf("/v1/auctions/%s/withdrawals", key), map[string]interface{}{
		"caller": uuid.New().String(),
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("withdraw by stranger: status %d, want 403", rec.Code)
	}
}

func TestAPI_NotFoundAndBadKey(t *testing.T) {
	rig := newAPIRig(t)

	unknown := auction.DeriveKey(uuid.New(), uuid.New())
	rec := rig.do(t, http.MethodGet, "/v1/auctions/"+unknown.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown auction: status %d, want 404", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/v1/auctions/nothex", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed key: status %d, want 400", rec.Code)
	}
}

func TestAPI_Readiness(t *testing.T) {
	rig := newAPIRig(t)

	rec := rig.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before ready: status %d, want 503", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status %d, want 200", rec.Code)
	}
}
