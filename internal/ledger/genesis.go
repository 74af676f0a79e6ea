package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"nftclaim/internal/pubkey"
)

// GenesisAccount is one pre-provisioned record.
type GenesisAccount struct {
	Pubkey pubkey.Pubkey `json:"pubkey"`
	Account
}

// LoadGenesis reads a JSON array of accounts from path.
func LoadGenesis(path string) ([]GenesisAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis: %w", err)
	}
	var accounts []GenesisAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decoding genesis: %w", err)
	}
	return accounts, nil
}

// ApplyGenesis writes accounts unconditionally.
func ApplyGenesis(ctx context.Context, store Store, accounts []GenesisAccount) error {
	writes := make(map[pubkey.Pubkey]*Account, len(accounts))
	for i := range accounts {
		acct := accounts[i].Account
		writes[accounts[i].Pubkey] = &acct
	}
	return store.Commit(ctx, nil, writes)
}
