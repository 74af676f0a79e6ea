package distributor

import (
	"encoding/binary"
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/ledger"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
	"nftclaim/internal/token"
)

// Kind is the leading tag of instruction data.
type Kind uint8

const (
	KindCreateDistributor Kind = iota
	KindClaimTokens
)

func (k Kind) String() string {
	switch k {
	case KindCreateDistributor:
		return "create_distributor"
	case KindClaimTokens:
		return "claim_tokens"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// CreateDistributorArgs configures a new campaign.
type CreateDistributorArgs struct {
	RewardAmountTotal   uint64
	RewardAmountPerUnit uint64
	StartTime           int64
	CollectionSymbol    string
}

// DecodeKind reads the instruction tag.
func DecodeKind(data []byte) (Kind, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty data", ErrInvalidInstruction)
	}
	k := Kind(data[0])
	if k > KindClaimTokens {
		return 0, fmt.Errorf("%w: tag %d", ErrInvalidInstruction, data[0])
	}
	return k, nil
}

// EncodeCreateDistributor builds CreateDistributor instruction data.
func EncodeCreateDistributor(args CreateDistributorArgs) ([]byte, error) {
	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(KindCreateDistributor)}, body...), nil
}

// EncodeClaimTokens builds ClaimTokens instruction data.
func EncodeClaimTokens() []byte {
	return []byte{byte(KindClaimTokens)}
}

// DecodeCreateDistributor parses and bounds CreateDistributor arguments.
func DecodeCreateDistributor(data []byte) (*CreateDistributorArgs, error) {
	kind, err := DecodeKind(data)
	if err != nil {
		return nil, err
	}
	if kind != KindCreateDistributor {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidInstruction, KindCreateDistributor, kind)
	}
	// tag + u64 + u64 + i64, then the u32 length prefix of the symbol
	const symbolOffset = 1 + 8 + 8 + 8
	if len(data) < symbolOffset+4 {
		return nil, fmt.Errorf("%w: data length %d", ErrInvalidInstruction, len(data))
	}
	symbolLen := binary.LittleEndian.Uint32(data[symbolOffset:])
	if symbolLen > MaxSymbolLength {
		return nil, fmt.Errorf("%w: symbol longer than %d bytes", ErrInvalidInstruction, MaxSymbolLength)
	}
	if want := symbolOffset + 4 + int(symbolLen); len(data) != want {
		return nil, fmt.Errorf("%w: data length %d, want %d", ErrInvalidInstruction, len(data), want)
	}
	var args CreateDistributorArgs
	if err := borsh.Deserialize(&args, data[1:]); err != nil {
		return nil, withCause(ErrInvalidInstruction, err)
	}
	if args.RewardAmountPerUnit == 0 {
		return nil, fmt.Errorf("%w: reward per unit must be positive", ErrInvalidInstruction)
	}
	return &args, nil
}

// CreateDistributorAccounts names the records CreateDistributor touches.
type CreateDistributorAccounts struct {
	Authority         pubkey.Pubkey
	State             pubkey.Pubkey
	Custody           pubkey.Pubkey
	CollectionCreator pubkey.Pubkey
}

// NewCreateDistributorInstruction assembles a CreateDistributor instruction.
func NewCreateDistributorInstruction(programID pubkey.Pubkey, accts CreateDistributorAccounts, args CreateDistributorArgs) (ledger.Instruction, error) {
	data, err := EncodeCreateDistributor(args)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			{Pubkey: accts.Authority, IsSigner: true, IsWritable: true},
			{Pubkey: accts.State, IsWritable: true},
			{Pubkey: accts.Custody, IsWritable: true},
			{Pubkey: accts.CollectionCreator},
			{Pubkey: ledger.RentSysvarID},
			{Pubkey: token.ProgramID},
		},
		Data: data,
	}, nil
}

// ClaimTokensAccounts names the records a claim supplies directly. Derived
// addresses are filled in by NewClaimTokensInstruction.
type ClaimTokensAccounts struct {
	Claimant          pubkey.Pubkey
	State             pubkey.Pubkey
	Custody           pubkey.Pubkey
	Destination       pubkey.Pubkey
	AssetTokenAccount pubkey.Pubkey
	AssetMint         pubkey.Pubkey
}

// NewClaimTokensInstruction assembles a ClaimTokens instruction.
func NewClaimTokensInstruction(programID pubkey.Pubkey, accts ClaimTokensAccounts) (ledger.Instruction, error) {
	authority, _, err := FindCustodyAuthority(programID, accts.State)
	if err != nil {
		return ledger.Instruction{}, err
	}
	md, _, err := metadata.FindAddress(accts.AssetMint)
	if err != nil {
		return ledger.Instruction{}, err
	}
	receipt, _, err := FindReceiptAddress(programID, accts.AssetMint)
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			{Pubkey: accts.Claimant, IsSigner: true, IsWritable: true},
			{Pubkey: accts.State, IsWritable: true},
			{Pubkey: accts.Custody, IsWritable: true},
			{Pubkey: accts.Destination, IsWritable: true},
			{Pubkey: authority},
			{Pubkey: accts.AssetTokenAccount},
			{Pubkey: md},
			{Pubkey: receipt, IsWritable: true},
			{Pubkey: ledger.ClockSysvarID},
			{Pubkey: ledger.RentSysvarID},
			{Pubkey: token.ProgramID},
			{Pubkey: system.ProgramID},
		},
		Data: EncodeClaimTokens(),
	}, nil
}
