package ledger

import (
	"context"

	"nftclaim/internal/pubkey"
)

// txn buffers every account touched by one instruction. Nothing reaches the
// store until commit, so an aborted instruction leaves no trace.
type txn struct {
	store    Store
	reads    map[pubkey.Pubkey]uint64
	accounts map[pubkey.Pubkey]*Account
	writable map[pubkey.Pubkey]bool
}

func newTxn(store Store) *txn {
	return &txn{
		store:    store,
		reads:    make(map[pubkey.Pubkey]uint64),
		accounts: make(map[pubkey.Pubkey]*Account),
		writable: make(map[pubkey.Pubkey]bool),
	}
}

func (t *txn) load(ctx context.Context, key pubkey.Pubkey) (*Account, error) {
	if acct, ok := t.accounts[key]; ok {
		return acct, nil
	}
	acct, version, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		acct = &Account{Owner: SystemProgramID}
	}
	t.reads[key] = version
	t.accounts[key] = acct
	return acct, nil
}

func (t *txn) markWritable(key pubkey.Pubkey) {
	t.writable[key] = true
}

func (t *txn) commit(ctx context.Context) error {
	writes := make(map[pubkey.Pubkey]*Account, len(t.writable))
	for key := range t.writable {
		acct := t.accounts[key]
		if acct.IsEmpty() {
			writes[key] = nil
			continue
		}
		writes[key] = acct.Clone()
	}
	return t.store.Commit(ctx, t.reads, writes)
}
