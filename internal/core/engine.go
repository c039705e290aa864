package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"AuctionLedger/internal/auction"
	"AuctionLedger/internal/curve"
	"AuctionLedger/internal/event"
	"AuctionLedger/internal/observability"
	"AuctionLedger/internal/token"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine is the auction state machine. It validates each command against
// the auction and bid ledgers, invokes the transfer and minting ports, and
// commits the updated ledgers as one atomic unit. Transitions on the same
// auction serialize on the auction's lock; transitions on different auctions
// run concurrently.
type Engine struct {
	registry    *auction.Registry
	tokens      TokenTransferPort
	minter      ReceiptMinter
	clock       Clock
	idempotency *IdempotencyChecker
	metrics     *observability.Metrics
	log         zerolog.Logger

	// commitMu orders sequence assignment, hash-chain advancement, and the
	// persist-channel enqueue across auctions, so the event log has one
	// global total order and the durable log never holds an event whose
	// predecessors are still in flight.
	commitMu sync.Mutex
	sequence int64
	hasher   *StateHasher

	persistChan chan<- Output
	notifyChan  chan<- Output
}

// Output is one committed event handed to the persistence and notification
// consumers.
type Output struct {
	Envelope *event.Envelope
}

// Config carries the engine's injected collaborators.
type Config struct {
	Registry    *auction.Registry
	Tokens      TokenTransferPort
	Minter      ReceiptMinter
	Clock       Clock
	Idempotency *IdempotencyChecker
	Metrics     *observability.Metrics
	Logger      zerolog.Logger

	// PersistChan uses a blocking send: the engine stalls until the
	// persistence worker drains, so no committed event is lost.
	PersistChan chan<- Output

	// NotifyChan uses a non-blocking send with drop: observers can rebuild
	// from the event log if they fall behind.
	NotifyChan chan<- Output

	StartSequence int64
}

func NewEngine(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	idem := cfg.Idempotency
	if idem == nil {
		idem = NewIdempotencyChecker(1_000_000, nil)
	}

	return &Engine{
		registry:    cfg.Registry,
		tokens:      cfg.Tokens,
		minter:      cfg.Minter,
		clock:       clock,
		idempotency: idem,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
		sequence:    cfg.StartSequence,
		hasher:      NewStateHasher(),
		persistChan: cfg.PersistChan,
		notifyChan:  cfg.NotifyChan,
	}
}

// Apply dispatches one command to its transition handler.
func (e *Engine) Apply(cmd Command) error {
	start := time.Now()
	cmdType := cmd.CommandType().String()

	var err error
	switch c := cmd.(type) {
	case *InitializeAuction:
		_, err = e.InitializeAuction(c)
	case *FundWallet:
		err = e.FundWallet(c)
	case *PlaceBid:
		err = e.PlaceBid(c)
	case *Refund:
		err = e.Refund(c)
	case *Withdraw:
		err = e.Withdraw(c)
	default:
		err = fmt.Errorf("unknown command type: %T", cmd)
	}

	if e.metrics != nil {
		e.metrics.CommandDuration.WithLabelValues(cmdType).Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.CommandsRejected.WithLabelValues(cmdType, rejectionReason(err)).Inc()
		} else {
			e.metrics.CommandsApplied.WithLabelValues(cmdType).Inc()
		}
	}

	return err
}

// InitializeAuction creates the auction ledger at the key derived from
// (authority, collection) and returns that key.
func (e *Engine) InitializeAuction(cmd *InitializeAuction) (auction.Key, error) {
	if e.isDuplicate(cmd) {
		return auction.DeriveKey(cmd.Authority, cmd.Collection), nil
	}

	now := e.clock.Now()

	if cmd.Authority == uuid.Nil {
		return auction.Key{}, fmt.Errorf("empty authority: %w", auction.ErrInvalidParameters)
	}
	if err := auction.ValidateConfig(cmd.MaxSupply, cmd.MinimumItems, cmd.Deadline, now); err != nil {
		return auction.Key{}, err
	}

	key := auction.DeriveKey(cmd.Authority, cmd.Collection)
	state := auction.State{
		Key:            key,
		Authority:      cmd.Authority,
		Collection:     cmd.Collection,
		BasePrice:      cmd.BasePrice,
		PriceIncrement: cmd.PriceIncrement,
		MaxSupply:      cmd.MaxSupply,
		MinimumItems:   cmd.MinimumItems,
		Deadline:       cmd.Deadline,
	}

	// Creation and the init event seal under commitMu as one step: the
	// auction only becomes visible once its event holds a sequence, so any
	// bid that finds it commits strictly after.
	e.commitMu.Lock()
	if e.isDuplicateCached(cmd) {
		e.commitMu.Unlock()
		return key, nil
	}
	if err := e.registry.Create(state); err != nil {
		e.commitMu.Unlock()
		return auction.Key{}, err
	}
	e.commitLocked(now, cmd, key, stateDigest(&state), []event.Event{
		&event.AuctionInitialized{
			AuctionKey:     key,
			Authority:      cmd.Authority,
			Collection:     cmd.Collection,
			BasePrice:      cmd.BasePrice,
			PriceIncrement: cmd.PriceIncrement,
			MaxSupply:      cmd.MaxSupply,
			MinimumItems:   cmd.MinimumItems,
			Deadline:       cmd.Deadline,
		},
	})
	e.commitMu.Unlock()

	e.log.Info().Str("auction", key.String()).
		Uint64("base_price", cmd.BasePrice).
		Uint64("price_increment", cmd.PriceIncrement).
		Uint64("max_supply", cmd.MaxSupply).
		Uint64("minimum_items", cmd.MinimumItems).
		Time("deadline", cmd.Deadline).
		Msg("auction initialized")

	return key, nil
}

// FundWallet credits a wallet from outside the tracked system. Funding is
// the only way value enters; every later transfer conserves it. The deposit
// seals under commitMu so a bid spending the funds always commits at a
// higher sequence than the funding event.
func (e *Engine) FundWallet(cmd *FundWallet) error {
	if e.isDuplicate(cmd) {
		return nil
	}

	if cmd.Wallet == uuid.Nil {
		return fmt.Errorf("empty wallet: %w", auction.ErrInvalidParameters)
	}
	if cmd.Amount == 0 {
		return fmt.Errorf("zero deposit amount: %w", auction.ErrInvalidParameters)
	}

	now := e.clock.Now()
	wallet := token.WalletAccount(cmd.Wallet)

	e.commitMu.Lock()
	if e.isDuplicateCached(cmd) {
		e.commitMu.Unlock()
		return nil
	}
	if err := e.tokens.Deposit(wallet, cmd.Amount); err != nil {
		e.commitMu.Unlock()
		return fmt.Errorf("fund wallet: %w", err)
	}
	balance := e.tokens.Balance(wallet)
	e.commitLocked(now, cmd, auction.Key{}, walletDigest(cmd.Wallet, balance), []event.Event{
		&event.WalletFunded{
			Wallet: cmd.Wallet,
			Amount: cmd.Amount,
		},
	})
	e.commitMu.Unlock()

	e.log.Info().Str("wallet", cmd.Wallet.String()).
		Uint64("amount", cmd.Amount).
		Uint64("balance", balance).
		Msg("wallet funded")

	return nil
}

// PlaceBid validates and applies one bid. Preconditions are checked in
// order against the pre-transition state, each independently fatal:
// deadline, supply cap, curve price, then transferable balance.
func (e *Engine) PlaceBid(cmd *PlaceBid) error {
	if e.isDuplicate(cmd) {
		return nil
	}

	if cmd.Amount == 0 {
		return fmt.Errorf("zero bid amount: %w", auction.ErrInvalidParameters)
	}
	if cmd.Bidder == uuid.Nil {
		return fmt.Errorf("empty bidder: %w", auction.ErrInvalidParameters)
	}

	txn, err := e.registry.Acquire(cmd.Auction)
	if err != nil {
		return err
	}
	defer txn.Release()

	// Recheck under the auction lock: a redelivery racing the first delivery
	// parks on Acquire and must observe the first commit's marker.
	if e.isDuplicateCached(cmd) {
		return nil
	}

	state := txn.State()
	now := e.clock.Now()

	if state.Expired(now) {
		return auction.ErrAuctionExpired
	}
	if state.CurrentSupply >= state.MaxSupply {
		return auction.ErrMaxSupplyReached
	}

	price, err := state.CurrentPrice()
	if err != nil {
		return err
	}
	if cmd.Amount < price {
		return fmt.Errorf("bid %d below current price %d: %w", cmd.Amount, price, auction.ErrBidTooLow)
	}

	// Compute the post-transition aggregates up front so an overflow fails
	// closed before any value moves.
	newSupply, err := curve.CheckedAdd(state.CurrentSupply, 1)
	if err != nil {
		return err
	}
	newTVL, err := curve.CheckedAdd(state.TotalValueLocked, cmd.Amount)
	if err != nil {
		return err
	}

	bidderWallet := token.WalletAccount(cmd.Bidder)
	custody := token.CustodyAccount(state.Key)

	if err := e.tokens.Transfer(bidderWallet, custody, cmd.Amount); err != nil {
		return fmt.Errorf("collect bid: %w", err)
	}

	receiptID, err := e.minter.Mint(cmd.Bidder, state.Key)
	if err != nil {
		// The transfer already happened; unwind it so no transferred-but-
		// unminted state is observable.
		if rbErr := e.tokens.Transfer(custody, bidderWallet, cmd.Amount); rbErr != nil {
			panic(fmt.Sprintf("FATAL: bid rollback failed, funds stranded in custody: %v (mint error: %v)", rbErr, err))
		}
		return fmt.Errorf("mint receipt: %w", err)
	}

	state.CurrentSupply = newSupply
	state.TotalValueLocked = newTVL
	txn.UpsertBid(cmd.Bidder).Amount += cmd.Amount

	events := []event.Event{
		&event.BidPlaced{
			AuctionKey: state.Key,
			Bidder:     cmd.Bidder,
			Amount:     cmd.Amount,
			NewSupply:  state.CurrentSupply,
			ReceiptID:  receiptID,
		},
	}

	// Graduation is evaluated after every accepted bid and is one-way.
	if !state.IsGraduated && state.CurrentSupply >= state.MinimumItems {
		state.IsGraduated = true
		events = append(events, &event.AuctionGraduated{
			AuctionKey:       state.Key,
			TotalItems:       state.CurrentSupply,
			TotalValueLocked: state.TotalValueLocked,
		})
		if e.metrics != nil {
			e.metrics.AuctionsGraduated.Inc()
		}
		e.log.Info().Str("auction", state.Key.String()).
			Uint64("total_items", state.CurrentSupply).
			Uint64("total_value_locked", state.TotalValueLocked).
			Msg("auction graduated")
	}

	if err := txn.CheckInvariants(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated after bid: %v", err))
	}

	e.commit(now, cmd, state.Key, stateDigest(state), events)

	if e.metrics != nil {
		e.metrics.BidsAccepted.Inc()
	}
	e.log.Debug().Str("auction", state.Key.String()).
		Str("bidder", cmd.Bidder.String()).
		Uint64("amount", cmd.Amount).
		Uint64("new_supply", state.CurrentSupply).
		Msg("bid accepted")

	return nil
}

// Refund returns a bidder's outstanding value. Allowed only when the
// auction expired without graduating. A bidder with nothing outstanding
// gets a no-op success.
func (e *Engine) Refund(cmd *Refund) error {
	if e.isDuplicate(cmd) {
		return nil
	}

	txn, err := e.registry.Acquire(cmd.Auction)
	if err != nil {
		return err
	}
	defer txn.Release()

	if e.isDuplicateCached(cmd) {
		return nil
	}

	state := txn.State()
	now := e.clock.Now()

	if state.IsGraduated || !state.Expired(now) {
		return auction.ErrRefundNotAllowed
	}

	bid := txn.Bid(cmd.Bidder)
	if bid == nil || bid.Amount == 0 {
		// Nothing outstanding: idempotent no-op, no transfer.
		e.markProcessed(cmd)
		return nil
	}

	refunded := bid.Amount
	newTVL, err := curve.CheckedSub(state.TotalValueLocked, refunded)
	if err != nil {
		panic(fmt.Sprintf("FATAL: refund %d exceeds total_value_locked %d for auction %s",
			refunded, state.TotalValueLocked, state.Key))
	}

	custody := token.CustodyAccount(state.Key)
	if err := e.tokens.Transfer(custody, token.WalletAccount(cmd.Bidder), refunded); err != nil {
		return fmt.Errorf("refund transfer: %w", err)
	}

	bid.Amount = 0
	state.TotalValueLocked = newTVL

	if err := txn.CheckInvariants(); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated after refund: %v", err))
	}

	e.commit(now, cmd, state.Key, stateDigest(state), []event.Event{
		&event.BidRefunded{
			AuctionKey: state.Key,
			Bidder:     cmd.Bidder,
			Amount:     refunded,
		},
	})

	if e.metrics != nil {
		e.metrics.RefundsIssued.Inc()
	}
	e.log.Info().Str("auction", state.Key.String()).
		Str("bidder", cmd.Bidder.String()).
		Uint64("amount", refunded).
		Msg("bid refunded")

	return nil
}

// Withdraw sweeps the entire locked value to the authority. Allowed only
// for the stored authority and only after graduation.
func (e *Engine) Withdraw(cmd *Withdraw) error {
	if e.isDuplicate(cmd) {
		return nil
	}

	txn, err := e.registry.Acquire(cmd.Auction)
	if err != nil {
		return err
	}
	defer txn.Release()

	if e.isDuplicateCached(cmd) {
		return nil
	}

	state := txn.State()
	now := e.clock.Now()

	if cmd.Caller != state.Authority {
		return auction.ErrUnauthorized
	}
	if !state.IsGraduated {
		return auction.ErrNotGraduated
	}
	if state.TotalValueLocked == 0 {
		return auction.ErrNothingToWithdraw
	}

	amount := state.TotalValueLocked
	custody := token.CustodyAccount(state.Key)
	if err := e.tokens.Transfer(custody, token.WalletAccount(state.Authority), amount); err != nil {
		return fmt.Errorf("withdraw transfer: %w", err)
	}

	state.TotalValueLocked = 0

	// Withdrawal leaves bid entries outstanding in the graduated case; the
	// aggregate invariant over outstanding bids only binds pre-withdrawal,
	// so only the structural checks are re-run here.
	if state.CurrentSupply > state.MaxSupply {
		panic(fmt.Sprintf("FATAL: invariant violated after withdraw: supply %d above cap %d",
			state.CurrentSupply, state.MaxSupply))
	}

	e.commit(now, cmd, state.Key, stateDigest(state), []event.Event{
		&event.FundsWithdrawn{
			AuctionKey: state.Key,
			Authority:  state.Authority,
			Amount:     amount,
		},
	})

	if e.metrics != nil {
		e.metrics.WithdrawalsSwept.Inc()
	}
	e.log.Info().Str("auction", state.Key.String()).
		Uint64("amount", amount).
		Msg("funds withdrawn")

	return nil
}

// CurrentPrice returns the price the next bid must meet. Read-only and
// computed without any collaborator call.
func (e *Engine) CurrentPrice(key auction.Key) (uint64, error) {
	state, err := e.registry.Snapshot(key)
	if err != nil {
		return 0, err
	}
	return state.CurrentPrice()
}

// Sequence returns the next sequence the engine will assign.
func (e *Engine) Sequence() int64 {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	return e.sequence
}

// StateHash returns the current hash-chain tip.
func (e *Engine) StateHash() [32]byte {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	return e.hasher.PrevHash()
}

// RestoreHash sets the hash-chain tip during startup recovery. Must not be
// called once commands are flowing.
func (e *Engine) RestoreHash(tip [32]byte) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	e.hasher.SetPrevHash(tip)
}

func (e *Engine) isDuplicate(cmd Command) bool {
	if !e.idempotency.IsDuplicate(cmd.CommandType().String(), cmd.IdempotencyKey()) {
		return false
	}
	e.log.Debug().Str("command", cmd.CommandType().String()).
		Str("idempotency_key", cmd.IdempotencyKey()).
		Msg("duplicate command skipped")
	if e.metrics != nil {
		e.metrics.CommandsRejected.WithLabelValues(cmd.CommandType().String(), "duplicate").Inc()
	}
	return true
}

// isDuplicateCached is the post-lock recheck. Only the in-memory tier is
// consulted; the durable tier was already checked before the lock.
func (e *Engine) isDuplicateCached(cmd Command) bool {
	if !e.idempotency.IsDuplicateCached(cmd.CommandType().String(), cmd.IdempotencyKey()) {
		return false
	}
	e.log.Debug().Str("command", cmd.CommandType().String()).
		Str("idempotency_key", cmd.IdempotencyKey()).
		Msg("duplicate command skipped")
	if e.metrics != nil {
		e.metrics.CommandsRejected.WithLabelValues(cmd.CommandType().String(), "duplicate").Inc()
	}
	return true
}

func (e *Engine) markProcessed(cmd Command) {
	e.idempotency.MarkProcessed(cmd.CommandType().String(), cmd.IdempotencyKey())
}

// commit assigns sequences, advances the hash chain, emits envelopes, and
// records the command as processed. Bid, refund, and withdraw call it while
// the auction lock is still held, so observers never see a half-applied
// transition; initialize and funding seal through commitLocked directly.
func (e *Engine) commit(now time.Time, cmd Command, key auction.Key, digest []byte, events []event.Event) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	e.commitLocked(now, cmd, key, digest, events)
}

// commitLocked does the sealing work. Caller holds commitMu. The persist
// send stays inside the critical section so the durable log receives events
// in sequence order.
func (e *Engine) commitLocked(now time.Time, cmd Command, key auction.Key, digest []byte, events []event.Event) {
	for _, evt := range events {
		seq := e.sequence
		e.sequence++

		out := Output{
			Envelope: &event.Envelope{
				Sequence:       seq,
				IdempotencyKey: cmd.IdempotencyKey(),
				EventType:      evt.EventType(),
				AuctionKey:     key,
				Timestamp:      now,
				Payload:        evt,
				PrevHash:       e.hasher.PrevHash(),
				StateHash:      e.hasher.ComputeHash(seq, digest),
			},
		}

		if e.persistChan != nil {
			// Blocking send: backpressure from the persistence worker.
			select {
			case e.persistChan <- out:
			default:
				if e.metrics != nil {
					e.metrics.PersistBackpressure.Inc()
				}
				e.persistChan <- out
			}
		}
		if e.notifyChan != nil {
			select {
			case e.notifyChan <- out:
			default:
				if e.metrics != nil {
					e.metrics.NotifyDrops.Inc()
				}
			}
		}
	}

	if e.metrics != nil {
		e.metrics.EngineSequence.Set(float64(e.sequence))
	}
	e.markProcessed(cmd)
}

// walletDigest builds the chain bytes for a funding event: wallet identity
// plus the balance after the deposit.
func walletDigest(wallet uuid.UUID, balance uint64) []byte {
	digest := make([]byte, 0, len(wallet)+8)
	digest = append(digest, wallet[:]...)
	digest = binary.LittleEndian.AppendUint64(digest, balance)
	return digest
}

// stateDigest builds the canonical bytes hashed into the state chain.
func stateDigest(s *auction.State) []byte {
	digest := make([]byte, 0, len(s.Key)+17)
	digest = append(digest, s.Key[:]...)
	digest = binary.LittleEndian.AppendUint64(digest, s.CurrentSupply)
	digest = binary.LittleEndian.AppendUint64(digest, s.TotalValueLocked)
	if s.IsGraduated {
		digest = append(digest, 1)
	} else {
		digest = append(digest, 0)
	}
	return digest
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auction.ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, auction.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, auction.ErrAuctionNotFound):
		return "not_found"
	case errors.Is(err, auction.ErrAuctionExpired):
		return "expired"
	case errors.Is(err, auction.ErrMaxSupplyReached):
		return "max_supply"
	case errors.Is(err, auction.ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, auction.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, auction.ErrRefundNotAllowed):
		return "refund_not_allowed"
	case errors.Is(err, auction.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, auction.ErrNotGraduated):
		return "not_graduated"
	case errors.Is(err, auction.ErrNothingToWithdraw):
		return "nothing_to_withdraw"
	case errors.Is(err, curve.ErrMathOverflow):
		return "overflow"
	default:
		return "other"
	}
}
