package auction

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry is the addressable store of auctions by derived key. Each auction
// carries its own lock so transitions on one auction serialize against each
// other without blocking unrelated auctions.
type Registry struct {
	mu       sync.RWMutex
	auctions map[Key]*entry
}

type entry struct {
	mu    sync.Mutex
	state State
	bids  map[uuid.UUID]*Bid
}

func NewRegistry() *Registry {
	return &Registry{
		auctions: make(map[Key]*entry),
	}
}

// Create installs a new auction record. Fails if the derived key is already
// occupied.
func (r *Registry) Create(state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[state.Key]; exists {
		return ErrAlreadyInitialized
	}

	r.auctions[state.Key] = &entry{
		state: state,
		bids:  make(map[uuid.UUID]*Bid),
	}
	return nil
}

// Txn is an exclusive view of one auction, held for the duration of a single
// transition. All reads and writes through a Txn happen under the auction's
// lock, so no caller can observe a half-applied transition.
type Txn struct {
	entry *entry
}

// Acquire locks the auction for one atomic transition. The caller must call
// Release exactly once.
func (r *Registry) Acquire(key Key) (*Txn, error) {
	r.mu.RLock()
	e, ok := r.auctions[key]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrAuctionNotFound
	}

	e.mu.Lock()
	return &Txn{entry: e}, nil
}

// Release unlocks the auction.
func (t *Txn) Release() {
	t.entry.mu.Unlock()
}

// State returns the live auction record. Mutations become visible to other
// callers only after Release.
func (t *Txn) State() *State {
	return &t.entry.state
}

// Bid returns the bidder's ledger entry, or nil if the bidder has never had
// a bid accepted on this auction.
func (t *Txn) Bid(bidder uuid.UUID) *Bid {
	return t.entry.bids[bidder]
}

// UpsertBid returns the bidder's ledger entry, creating it lazily on the
// bidder's first accepted bid.
func (t *Txn) UpsertBid(bidder uuid.UUID) *Bid {
	b, ok := t.entry.bids[bidder]
	if !ok {
		b = &Bid{Auction: t.entry.state.Key, Bidder: bidder}
		t.entry.bids[bidder] = b
	}
	return b
}

// OutstandingTotal sums all currently outstanding bid amounts.
func (t *Txn) OutstandingTotal() uint64 {
	var total uint64
	for _, b := range t.entry.bids {
		total += b.Amount
	}
	return total
}

// CheckInvariants validates the ledger invariants that must hold after every
// committed transition. A violation here means state corruption, not a
// rejectable input.
func (t *Txn) CheckInvariants() error {
	s := &t.entry.state

	if s.CurrentSupply > s.MaxSupply {
		return fmt.Errorf("auction %s: current_supply %d exceeds max_supply %d",
			s.Key, s.CurrentSupply, s.MaxSupply)
	}
	if outstanding := t.OutstandingTotal(); outstanding != s.TotalValueLocked {
		return fmt.Errorf("auction %s: total_value_locked %d != outstanding bids %d",
			s.Key, s.TotalValueLocked, outstanding)
	}
	if s.IsGraduated && s.CurrentSupply < s.MinimumItems {
		return fmt.Errorf("auction %s: graduated with supply %d below minimum_items %d",
			s.Key, s.CurrentSupply, s.MinimumItems)
	}
	return nil
}

// Snapshot returns a copy of the auction state without acquiring the
// transition lock for longer than the read.
func (r *Registry) Snapshot(key Key) (State, error) {
	r.mu.RLock()
	e, ok := r.auctions[key]
	r.mu.RUnlock()

	if !ok {
		return State{}, ErrAuctionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// BidSnapshot returns a copy of one bidder's ledger entry. A bidder with no
// accepted bids has a zero entitlement, which is not an error.
func (r *Registry) BidSnapshot(key Key, bidder uuid.UUID) (Bid, error) {
	r.mu.RLock()
	e, ok := r.auctions[key]
	r.mu.RUnlock()

	if !ok {
		return Bid{}, ErrAuctionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.bids[bidder]; ok {
		return *b, nil
	}
	return Bid{Auction: key, Bidder: bidder}, nil
}

// BidSnapshots returns a copy of every bid entry for an auction, for
// snapshotting.
func (r *Registry) BidSnapshots(key Key) ([]Bid, error) {
	r.mu.RLock()
	e, ok := r.auctions[key]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrAuctionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bids := make([]Bid, 0, len(e.bids))
	for _, b := range e.bids {
		bids = append(bids, *b)
	}
	return bids, nil
}

// Keys lists all known auction keys.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.auctions))
	for k := range r.auctions {
		keys = append(keys, k)
	}
	return keys
}
