package distributor

import (
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/pubkey"
)

const (
	// StateSize is the exact stored length of a distributor record.
	StateSize = 172
	// ReceiptSize is the exact stored length of a claim receipt.
	ReceiptSize = 1
	// MaxSymbolLength bounds the collection symbol.
	MaxSymbolLength = 10
)

// Symbol is a collection symbol stored in fixed width.
type Symbol struct {
	Len   uint8
	Bytes [MaxSymbolLength]byte
}

// NewSymbol bounds s to MaxSymbolLength bytes.
func NewSymbol(s string) (Symbol, error) {
	var sym Symbol
	if len(s) > MaxSymbolLength {
		return sym, fmt.Errorf("%w: symbol %q longer than %d bytes", ErrInvalidInstruction, s, MaxSymbolLength)
	}
	sym.Len = uint8(len(s))
	copy(sym.Bytes[:], s)
	return sym, nil
}

func (s Symbol) String() string {
	n := int(s.Len)
	if n > MaxSymbolLength {
		n = MaxSymbolLength
	}
	return string(s.Bytes[:n])
}

func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the persistent record of one distribution campaign.
type State struct {
	Initialized          bool          `json:"initialized"`
	Authority            pubkey.Pubkey `json:"authority"`
	RewardCustodyAccount pubkey.Pubkey `json:"reward_custody_account"`
	RewardMint           pubkey.Pubkey `json:"reward_mint"`
	RewardAmountTotal    uint64        `json:"reward_amount_total"`
	RewardAmountPerUnit  uint64        `json:"reward_amount_per_unit"`
	AmountClaimed        uint64        `json:"amount_claimed"`
	StartTime            int64         `json:"start_time"`
	CollectionSymbol     Symbol        `json:"collection_symbol"`
	CollectionCreator    pubkey.Pubkey `json:"collection_creator"`
}

// DecodeState parses a distributor record, rejecting any other length.
func DecodeState(data []byte) (*State, error) {
	if len(data) != StateSize {
		return nil, fmt.Errorf("%w: state length %d, want %d", ErrDataTypeMismatch, len(data), StateSize)
	}
	var st State
	if err := borsh.Deserialize(&st, data); err != nil {
		return nil, withCause(ErrDataTypeMismatch, err)
	}
	return &st, nil
}

// Encode serializes the record into its fixed layout.
func (st *State) Encode() ([]byte, error) {
	return borsh.Serialize(*st)
}

// Remaining is the part of the pool not yet paid out.
func (st *State) Remaining() uint64 {
	return st.RewardAmountTotal - st.AmountClaimed
}

// ClaimReceipt records whether an asset's reward has been paid.
type ClaimReceipt struct {
	ReceivedTokens bool `json:"received_tokens"`
}

// DecodeReceipt parses a receipt, rejecting any other length.
func DecodeReceipt(data []byte) (*ClaimReceipt, error) {
	if len(data) != ReceiptSize {
		return nil, fmt.Errorf("%w: receipt length %d, want %d", ErrDataTypeMismatch, len(data), ReceiptSize)
	}
	return &ClaimReceipt{ReceivedTokens: data[0] != 0}, nil
}

// Encode serializes the receipt.
func (r *ClaimReceipt) Encode() []byte {
	if r.ReceivedTokens {
		return []byte{1}
	}
	return []byte{0}
}
