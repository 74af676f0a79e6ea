// Package eligibility resolves an asset's holder and collection membership
// through the token program and the metadata registry.
package eligibility

import (
	"errors"
	"fmt"

	"nftclaim/internal/ledger"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/token"
)

var (
	ErrNotFound        = errors.New("eligibility: record not found")
	ErrMalformed       = errors.New("eligibility: malformed record")
	ErrAddressMismatch = errors.New("eligibility: record address mismatch")
	ErrNoCreators      = errors.New("eligibility: asset has no creators")
	ErrCreatorNotFound = errors.New("eligibility: creator not found")
)

// Adapter reads ownership and metadata records owned by the configured
// programs. It never mutates the accounts it is given.
type Adapter struct {
	TokenProgram    pubkey.Pubkey
	MetadataProgram pubkey.Pubkey
}

// New returns an adapter bound to the standard token and metadata programs.
func New() *Adapter {
	return &Adapter{TokenProgram: token.ProgramID, MetadataProgram: metadata.ProgramID}
}

// Ownership decodes an asset holding.
func (a *Adapter) Ownership(info *ledger.AccountInfo) (*token.Account, error) {
	if len(info.Data) == 0 {
		return nil, fmt.Errorf("%w: ownership record %s", ErrNotFound, info.Key)
	}
	if info.Owner != a.TokenProgram {
		return nil, fmt.Errorf("%w: ownership record %s has owner %s", ErrMalformed, info.Key, info.Owner)
	}
	acc, err := token.Decode(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return acc, nil
}

// MetadataAddress derives where the registry keeps mint's record.
func (a *Adapter) MetadataAddress(mint pubkey.Pubkey) (pubkey.Pubkey, error) {
	addr, _, err := pubkey.FindProgramAddress(
		[][]byte{[]byte(metadata.Prefix), a.MetadataProgram[:], mint[:]},
		a.MetadataProgram,
	)
	return addr, err
}

// Metadata checks info sits at the derived address for mint and decodes it.
func (a *Adapter) Metadata(mint pubkey.Pubkey, info *ledger.AccountInfo) (*metadata.Metadata, error) {
	expected, err := a.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	if info.Key != expected {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrAddressMismatch, info.Key, expected)
	}
	if len(info.Data) == 0 {
		return nil, fmt.Errorf("%w: metadata %s", ErrNotFound, info.Key)
	}
	if info.Owner != a.MetadataProgram {
		return nil, fmt.Errorf("%w: metadata %s has owner %s", ErrMalformed, info.Key, info.Owner)
	}
	md, err := metadata.Decode(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if md.Mint != mint {
		return nil, fmt.Errorf("%w: metadata describes %s", ErrAddressMismatch, md.Mint)
	}
	return md, nil
}

// RequireCreator checks creator is listed on md.
func RequireCreator(md *metadata.Metadata, creator pubkey.Pubkey) error {
	if md.Creators == nil {
		return ErrNoCreators
	}
	if !md.HasCreator(creator) {
		return ErrCreatorNotFound
	}
	return nil
}
