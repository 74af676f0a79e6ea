// Package system allocates and funds accounts on behalf of programs.
package system

import (
	"errors"
	"fmt"

	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

// ProgramID is the system program, owner of unallocated accounts.
var ProgramID = ledger.SystemProgramID

// MaxAccountDataLength bounds the data any single account may hold.
const MaxAccountDataLength = 10 * 1024 * 1024

var (
	ErrAccountAlreadyInUse = errors.New("system: account already in use")
	ErrInsufficientFunds   = errors.New("system: insufficient lamports")
	ErrMissingSignature    = errors.New("system: missing required signature")
	ErrInvalidOwner        = errors.New("system: account not owned by system program")
	ErrInvalidAccountSize  = errors.New("system: invalid account data length")
)

// Transfer moves lamports between system owned accounts.
func Transfer(from, to *ledger.AccountInfo, lamports uint64, signers ledger.Signers) error {
	if !signers.Has(from.Key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, from.Key)
	}
	if err := from.RequireWritable(); err != nil {
		return err
	}
	if err := to.RequireWritable(); err != nil {
		return err
	}
	if from.Owner != ProgramID || len(from.Data) != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOwner, from.Key)
	}
	if from.Lamports < lamports {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, from.Lamports, lamports)
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}

// Allocate gives an unallocated account space bytes of zeroed data.
func Allocate(account *ledger.AccountInfo, space int, signers ledger.Signers) error {
	if space < 0 || space > MaxAccountDataLength {
		return fmt.Errorf("%w: %d", ErrInvalidAccountSize, space)
	}
	if !signers.Has(account.Key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, account.Key)
	}
	if err := account.RequireWritable(); err != nil {
		return err
	}
	if account.Owner != ProgramID || len(account.Data) != 0 {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, account.Key)
	}
	account.Data = make([]byte, space)
	return nil
}

// Assign hands ownership of an account to a program.
func Assign(account *ledger.AccountInfo, owner pubkey.Pubkey, signers ledger.Signers) error {
	if !signers.Has(account.Key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, account.Key)
	}
	if err := account.RequireWritable(); err != nil {
		return err
	}
	if account.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrInvalidOwner, account.Key)
	}
	account.Owner = owner
	return nil
}

// CreateAccount tops up account to the rent minimum from payer, allocates
// space and assigns it to owner. The account must sign, normally as a
// program derived address.
func CreateAccount(payer, account *ledger.AccountInfo, rent ledger.Rent, space int, owner pubkey.Pubkey, signers ledger.Signers) error {
	if space < 0 || space > MaxAccountDataLength {
		return fmt.Errorf("%w: %d", ErrInvalidAccountSize, space)
	}
	required := rent.MinimumBalance(space)
	if required == 0 {
		required = 1
	}
	if account.Lamports < required {
		if err := Transfer(payer, account, required-account.Lamports, signers); err != nil {
			return err
		}
	}
	if err := Allocate(account, space, signers); err != nil {
		return err
	}
	return Assign(account, owner, signers)
}
