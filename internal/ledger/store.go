package ledger

import (
	"context"
	"errors"
	"sync"

	"nftclaim/internal/pubkey"
)

// ErrConflict means another operation committed a write to a record this
// operation read. Nothing was written; the caller may resubmit.
var ErrConflict = errors.New("ledger: conflicting concurrent write")

// Store persists accounts keyed by address. Every record carries a version
// that increases on each committed write; absent records report version 0
// until first written.
type Store interface {
	// Get returns a copy of the account, or nil when absent, plus its version.
	Get(ctx context.Context, key pubkey.Pubkey) (*Account, uint64, error)
	// Commit applies writes only if every key in reads is still at the
	// recorded version. A nil account in writes clears the record.
	Commit(ctx context.Context, reads map[pubkey.Pubkey]uint64, writes map[pubkey.Pubkey]*Account) error
}

type memoryEntry struct {
	account *Account
	version uint64
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[pubkey.Pubkey]memoryEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[pubkey.Pubkey]memoryEntry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key pubkey.Pubkey) (*Account, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[key]
	return e.account.Clone(), e.version, nil
}

// Commit implements Store.
func (s *MemoryStore) Commit(_ context.Context, reads map[pubkey.Pubkey]uint64, writes map[pubkey.Pubkey]*Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, version := range reads {
		if s.entries[key].version != version {
			return ErrConflict
		}
	}
	for key, acct := range writes {
		// Cleared records keep their version so a stale reader still conflicts.
		s.entries[key] = memoryEntry{account: acct.Clone(), version: s.entries[key].version + 1}
	}
	return nil
}
