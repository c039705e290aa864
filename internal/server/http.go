package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/core"
	"AuctionLedger/internal/observability"
	"AuctionLedger/internal/query"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server is the HTTP/JSON API. Mutating routes feed commands into the
// engine through the same Apply path the NATS ingestion uses; read routes
// go to the query service.
type Server struct {
	addr    string
	engine  *core.Engine
	queries *query.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger

	httpServer *http.Server
}

func NewServer(addr string, engine *core.Engine, queries *query.Service, health *observability.HealthChecker, metrics *observability.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		addr:    addr,
		engine:  engine,
		queries: queries,
		health:  health,
		metrics: metrics,
		log:     log,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.observe)

	if s.health != nil {
		r.Get("/healthz", s.health.LivenessHandler)
		r.Get("/readyz", s.health.ReadinessHandler)
	}

	r.Post("/v1/wallets/{wallet}/deposits", s.handleFundWallet)

	r.Route("/v1/auctions", func(r chi.Router) {
		r.Post("/", s.handleInitialize)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetAuction)
			r.Get("/price", s.handleGetPrice)
			r.Get("/events", s.handleGetEvents)
			r.Get("/bids/{bidder}", s.handleGetBid)
			r.Post("/bids", s.handlePlaceBid)
			r.Post("/refunds", s.handleRefund)
			r.Post("/withdrawals", s.handleWithdraw)
		})
	})

	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.log.Info().Str("addr", s.addr).Msg("HTTP API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// --- request/response shapes ---

type initializeRequest struct {
	RequestID      string `json:"request_id"`
	Authority      string `json:"authority"`
	Collection     string `json:"collection"`
	BasePrice      uint64 `json:"base_price"`
	PriceIncrement uint64 `json:"price_increment"`
	MaxSupply      uint64 `json:"max_supply"`
	MinimumItems   uint64 `json:"minimum_items"`
	Deadline       string `json:"deadline"` // RFC 3339
}

type initializeResponse struct {
	Key string `json:"key"`
}

type placeBidRequest struct {
	RequestID string `json:"request_id"`
	Bidder    string `json:"bidder"`
	Amount    uint64 `json:"amount"`
}

type refundRequest struct {
	RequestID string `json:"request_id"`
	Bidder    string `json:"bidder"`
}

type withdrawRequest struct {
	RequestID string `json:"request_id"`
	Caller    string `json:"caller"`
}

type fundWalletRequest struct {
	RequestID string `json:"request_id"`
	Amount    uint64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- handlers ---

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := requestIDOrNew(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}
	authority, err := uuid.Parse(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid authority")
		return
	}
	collection, err := uuid.Parse(req.Collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection")
		return
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deadline, want RFC 3339")
		return
	}

	key, err := s.engine.InitializeAuction(&core.InitializeAuction{
		RequestID:      requestID,
		Authority:      authority,
		Collection:     collection,
		BasePrice:      req.BasePrice,
		PriceIncrement: req.PriceIncrement,
		MaxSupply:      req.MaxSupply,
		MinimumItems:   req.MinimumItems,
		Deadline:       deadline,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initializeResponse{Key: key.String()})
}

func (s *Server) handleFundWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := uuid.Parse(chi.URLParam(r, "wallet"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wallet")
		return
	}

	var req fundWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := requestIDOrNew(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}

	err = s.engine.FundWallet(&core.FundWallet{
		RequestID: requestID,
		Wallet:    wallet,
		Amount:    req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "funded"})
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := requestIDOrNew(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}
	bidder, err := uuid.Parse(req.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bidder")
		return
	}

	err = s.engine.PlaceBid(&core.PlaceBid{
		RequestID: requestID,
		Auction:   key,
		Bidder:    bidder,
		Amount:    req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := requestIDOrNew(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}
	bidder, err := uuid.Parse(req.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bidder")
		return
	}

	err = s.engine.Refund(&core.Refund{
		RequestID: requestID,
		Auction:   key,
		Bidder:    bidder,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refunded"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	requestID, err := requestIDOrNew(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}
	caller, err := uuid.Parse(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller")
		return
	}

	err = s.engine.Withdraw(&core.Withdraw{
		RequestID: requestID,
		Auction:   key,
		Caller:    caller,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "withdrawn"})
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	resp, err := s.queries.GetAuction(key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	resp, err := s.queries.GetCurrentPrice(key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	bidder, err := uuid.Parse(chi.URLParam(r, "bidder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bidder")
		return
	}

	resp, err := s.queries.GetBid(key, bidder)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKeyParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := s.queries.GetAuctionEvents(r.Context(), key, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- helpers ---

func parseKeyParam(w http.ResponseWriter, r *http.Request) (auction.Key, bool) {
	key, err := auction.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auction key")
		return auction.Key{}, false
	}
	return key, true
}

// requestIDOrNew generates a fresh idempotency key when the caller did not
// supply one. HTTP callers that need replay safety send their own.
func requestIDOrNew(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps engine errors onto HTTP statuses. Transition
// rejections against current state are conflicts; bad input is a 400.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auction.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, auction.ErrAuctionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auction.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, auction.ErrAlreadyInitialized),
		errors.Is(err, auction.ErrAuctionExpired),
		errors.Is(err, auction.ErrMaxSupplyReached),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrInsufficientFunds),
		errors.Is(err, auction.ErrRefundNotAllowed),
		errors.Is(err, auction.ErrNotGraduated),
		errors.Is(err, auction.ErrNothingToWithdraw):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

// observe records request counts and latency per route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
