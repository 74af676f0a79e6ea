// Package metadata is the NFT registry: descriptive records attached to a
// mint at an address derived from that mint.
package metadata

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

// ProgramID owns every metadata record.
var ProgramID = pubkey.MustParse("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bfxBnjsQ")

// Prefix is the domain tag of metadata addresses.
const Prefix = "metadata"

// KeyMetadataV1 tags a metadata record.
const KeyMetadataV1 uint8 = 4

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreators     = 5
)

var (
	ErrMalformed = errors.New("metadata: malformed record")
	ErrTooLong   = errors.New("metadata: field too long")
)

// Creator is one entry of a record's creator list.
type Creator struct {
	Address  pubkey.Pubkey
	Verified bool
	Share    uint8
}

// Metadata describes one mint. Creators is nil when the record has no list.
type Metadata struct {
	Key                  uint8
	UpdateAuthority      pubkey.Pubkey
	Mint                 pubkey.Pubkey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

// FindAddress derives the record address for mint.
func FindAddress(mint pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
	return pubkey.FindProgramAddress([][]byte{[]byte(Prefix), ProgramID[:], mint[:]}, ProgramID)
}

// Decode parses a stored record.
func Decode(data []byte) (*Metadata, error) {
	if len(data) == 0 || data[0] != KeyMetadataV1 {
		return nil, fmt.Errorf("%w: missing record key", ErrMalformed)
	}
	var md Metadata
	if err := borsh.Deserialize(&md, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &md, nil
}

// Encode validates field bounds and serializes md.
func (md *Metadata) Encode() ([]byte, error) {
	if len(md.Name) > MaxNameLength || len(md.Symbol) > MaxSymbolLength || len(md.URI) > MaxURILength {
		return nil, ErrTooLong
	}
	if md.Creators != nil && len(*md.Creators) > MaxCreators {
		return nil, fmt.Errorf("%w: %d creators", ErrTooLong, len(*md.Creators))
	}
	out := *md
	out.Key = KeyMetadataV1
	return borsh.Serialize(out)
}

// HasCreator reports whether addr is listed, regardless of verification.
func (md *Metadata) HasCreator(addr pubkey.Pubkey) bool {
	if md.Creators == nil {
		return false
	}
	for _, c := range *md.Creators {
		if c.Address == addr {
			return true
		}
	}
	return false
}

// NewAccount builds a rent exempt registry record.
func NewAccount(md *Metadata, rent ledger.Rent) (*ledger.Account, error) {
	data, err := md.Encode()
	if err != nil {
		return nil, err
	}
	return &ledger.Account{Owner: ProgramID, Lamports: rent.MinimumBalance(len(data)), Data: data}, nil
}
