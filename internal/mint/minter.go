package mint

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"AuctionLedger/internal/auction"

	"github.com/google/uuid"
)

// Receipt is one non-fungible participation record. Receipts are permanent:
// a later refund returns value but never revokes the receipt.
type Receipt struct {
	ID        uuid.UUID
	Auction   auction.Key
	Recipient uuid.UUID
	Index     uint64   // position in the auction's issuance log
	Leaf      [32]byte // hash of this receipt
	Root      [32]byte // chained root after appending this receipt
}

// Ledger issues receipts and keeps an append-only hash chain per auction,
// so the full issuance history of an auction is committed by its latest root.
type Ledger struct {
	mu       sync.Mutex
	receipts map[auction.Key][]Receipt
	roots    map[auction.Key][32]byte
}

func NewLedger() *Ledger {
	return &Ledger{
		receipts: make(map[auction.Key][]Receipt),
		roots:    make(map[auction.Key][32]byte),
	}
}

// Mint issues one receipt to the recipient and appends it to the auction's
// chain.
func (l *Ledger) Mint(recipient uuid.UUID, key auction.Key) (uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(uuid.New(), recipient, key), nil
}

// RestoreReceipt re-appends a previously issued receipt during replay,
// keeping its original ID so the chain recomputes to the same root.
func (l *Ledger) RestoreReceipt(id uuid.UUID, recipient uuid.UUID, key auction.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(id, recipient, key)
}

func (l *Ledger) append(id uuid.UUID, recipient uuid.UUID, key auction.Key) uuid.UUID {
	index := uint64(len(l.receipts[key]))

	leaf := leafHash(id, key, recipient, index)
	prev := l.roots[key]
	if index == 0 {
		prev = genesisRoot(key)
	}
	root := chainRoot(prev, leaf)

	l.receipts[key] = append(l.receipts[key], Receipt{
		ID:        id,
		Auction:   key,
		Recipient: recipient,
		Index:     index,
		Leaf:      leaf,
		Root:      root,
	})
	l.roots[key] = root

	return id
}

// Issued returns the number of receipts minted for an auction.
func (l *Ledger) Issued(key auction.Key) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.receipts[key]))
}

// IssuedTo returns the number of receipts held by one recipient.
func (l *Ledger) IssuedTo(key auction.Key, recipient uuid.UUID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n uint64
	for _, r := range l.receipts[key] {
		if r.Recipient == recipient {
			n++
		}
	}
	return n
}

// Receipts returns a copy of the issuance log for an auction, in mint
// order.
func (l *Ledger) Receipts(key auction.Key) []Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Receipt(nil), l.receipts[key]...)
}

// Root returns the current chain root for an auction.
func (l *Ledger) Root(key auction.Key) [32]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	if root, ok := l.roots[key]; ok {
		return root
	}
	return genesisRoot(key)
}

// Verify recomputes the chain from the issuance log and compares it to the
// stored root.
func (l *Ledger) Verify(key auction.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	root := genesisRoot(key)
	for _, r := range l.receipts[key] {
		root = chainRoot(root, r.Leaf)
	}
	return root == l.roots[key] || len(l.receipts[key]) == 0
}

func leafHash(id uuid.UUID, key auction.Key, recipient uuid.UUID, index uint64) [32]byte {
	h := sha256.New()
	h.Write(id[:])
	h.Write(key[:])
	h.Write(recipient[:])

	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	h.Write(idx[:])

	var leaf [32]byte
	copy(leaf[:], h.Sum(nil))
	return leaf
}

func chainRoot(prev, leaf [32]byte) [32]byte {
	h := sha256.New()
	h.Write(prev[:])
	h.Write(leaf[:])

	var root [32]byte
	copy(root[:], h.Sum(nil))
	return root
}

func genesisRoot(key auction.Key) [32]byte {
	h := sha256.New()
	h.Write([]byte("receipts:genesis:v1"))
	h.Write(key[:])

	var root [32]byte
	copy(root[:], h.Sum(nil))
	return root
}
