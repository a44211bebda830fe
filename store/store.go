// Package store provides the durable, TTL-expiring key-value backends the
// session engine persists through.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("store: key not found")

// Default expiries for the two record families. The engine takes these as
// configuration; they are defaults, not business rules.
const (
	DefaultSessionTTL = time.Hour
	DefaultMemoryTTL  = 24 * time.Hour
)

// Store is the durable store contract. Both operations are idempotent and
// safe to retry. Retention is the store's job: records disappear when
// their TTL lapses, the engine never sweeps.
type Store interface {
	// Get returns the stored bytes for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key with the given expiry. ttl <= 0 means
	// no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// SessionKey builds the key for a session snapshot.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// MemoryKey builds the key for a (persona, user) memory record.
func MemoryKey(personaID, userID string) string {
	return fmt.Sprintf("memory:%s:%s", personaID, userID)
}
