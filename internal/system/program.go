package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

// ErrInvalidInstruction is returned for undecodable system instructions.
var ErrInvalidInstruction = errors.New("system: invalid instruction")

const (
	tagCreateAccount uint8 = iota
	tagTransfer
)

// CreateAccountArgs sizes and assigns a new account.
type CreateAccountArgs struct {
	Space uint64
	Owner pubkey.Pubkey
}

// TransferArgs moves lamports.
type TransferArgs struct {
	Lamports uint64
}

// Program exposes account creation and lamport transfers as instructions so
// clients can provision records before invoking other programs.
type Program struct{}

// NewCreateAccountInstruction creates account, funded to the rent minimum by
// payer and assigned to owner. Both payer and account sign.
func NewCreateAccountInstruction(payer, account pubkey.Pubkey, space uint64, owner pubkey.Pubkey) (ledger.Instruction, error) {
	body, err := borsh.Serialize(CreateAccountArgs{Space: space, Owner: owner})
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			{Pubkey: payer, IsSigner: true, IsWritable: true},
			{Pubkey: account, IsSigner: true, IsWritable: true},
			{Pubkey: ledger.RentSysvarID},
		},
		Data: append([]byte{tagCreateAccount}, body...),
	}, nil
}

// NewTransferInstruction moves lamports from one system account to another.
func NewTransferInstruction(from, to pubkey.Pubkey, lamports uint64) (ledger.Instruction, error) {
	body, err := borsh.Serialize(TransferArgs{Lamports: lamports})
	if err != nil {
		return ledger.Instruction{}, err
	}
	return ledger.Instruction{
		ProgramID: ProgramID,
		Accounts: []ledger.AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: append([]byte{tagTransfer}, body...),
	}, nil
}

// Process satisfies ledger.Program.
func (Program) Process(_ context.Context, pc *ledger.Context, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstruction
	}
	switch data[0] {
	case tagCreateAccount:
		var args CreateAccountArgs
		if err := borsh.Deserialize(&args, data[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
		}
		if args.Space > MaxAccountDataLength {
			return fmt.Errorf("%w: space %d exceeds %d", ErrInvalidInstruction, args.Space, MaxAccountDataLength)
		}
		if len(pc.Accounts) < 3 {
			return fmt.Errorf("%w: create account needs 3 accounts", ErrInvalidInstruction)
		}
		rent, err := ledger.RentFromAccount(pc.Accounts[2])
		if err != nil {
			return err
		}
		return CreateAccount(pc.Accounts[0], pc.Accounts[1], rent, int(args.Space), args.Owner, pc.Signers())
	case tagTransfer:
		var args TransferArgs
		if err := borsh.Deserialize(&args, data[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
		}
		if len(pc.Accounts) < 2 {
			return fmt.Errorf("%w: transfer needs 2 accounts", ErrInvalidInstruction)
		}
		return Transfer(pc.Accounts[0], pc.Accounts[1], args.Lamports, pc.Signers())
	default:
		return fmt.Errorf("%w: tag %d", ErrInvalidInstruction, data[0])
	}
}
