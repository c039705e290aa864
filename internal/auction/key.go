package auction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Key addresses one auction deterministically. It is derived from stable
// inputs (creator + collection identity), so re-running initialize with the
// same inputs resolves to the same auction instead of creating a second one.
type Key [32]byte

const keyPrefix = "auction"

// DeriveKey computes the auction key for an (authority, collection) pair.
func DeriveKey(authority, collection uuid.UUID) Key {
	h := sha256.New()
	h.Write([]byte(keyPrefix))
	h.Write(authority[:])
	h.Write(collection[:])

	var key Key
	copy(key[:], h.Sum(nil))
	return key
}

// ParseKey decodes a hex-encoded auction key.
func ParseKey(s string) (Key, error) {
	var key Key
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("parse auction key: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("parse auction key: want %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalJSON encodes the key as a hex string.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a hex-encoded key.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
