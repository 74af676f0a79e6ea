// Package token is the custody and transfer service for fungible and
// non-fungible token balances.
package token

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

// ProgramID owns every token account.
var ProgramID = pubkey.MustParse("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// AccountSize is the exact stored length of a token account.
const AccountSize = 72

var (
	ErrNotTokenAccount    = errors.New("token: account not owned by token program")
	ErrInvalidAccountData = errors.New("token: invalid account data")
	ErrOwnerMismatch      = errors.New("token: owner does not match")
	ErrMintMismatch       = errors.New("token: account mint mismatch")
	ErrInsufficientFunds  = errors.New("token: insufficient funds")
	ErrOverflow           = errors.New("token: amount overflow")
	ErrMissingSignature   = errors.New("token: missing authority signature")
)

// Account is a balance of one mint controlled by Owner.
type Account struct {
	Mint   pubkey.Pubkey
	Owner  pubkey.Pubkey
	Amount uint64
}

// Decode parses raw token account data.
func Decode(data []byte) (*Account, error) {
	if len(data) != AccountSize {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidAccountData, len(data))
	}
	var a Account
	if err := borsh.Deserialize(&a, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return &a, nil
}

// Encode serializes the account into its fixed layout.
func (a *Account) Encode() ([]byte, error) {
	return borsh.Serialize(*a)
}

// Unpack decodes an account after checking the token program owns it.
func Unpack(info *ledger.AccountInfo) (*Account, error) {
	if info.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s", ErrNotTokenAccount, info.Key)
	}
	return Decode(info.Data)
}

func pack(info *ledger.AccountInfo, a *Account) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	copy(info.Data, data)
	return nil
}

// NewAccount builds a rent exempt token account record.
func NewAccount(mint, owner pubkey.Pubkey, amount uint64, rent ledger.Rent) (*ledger.Account, error) {
	data, err := (&Account{Mint: mint, Owner: owner, Amount: amount}).Encode()
	if err != nil {
		return nil, err
	}
	return &ledger.Account{Owner: ProgramID, Lamports: rent.MinimumBalance(AccountSize), Data: data}, nil
}

// Program performs custody operations. Authority is proven through signers,
// which may include program derived addresses.
type Program struct{}

// SetAuthority reassigns control of account from current to newAuthority.
func (Program) SetAuthority(account, current *ledger.AccountInfo, newAuthority pubkey.Pubkey, signers ledger.Signers) error {
	if err := account.RequireWritable(); err != nil {
		return err
	}
	acc, err := Unpack(account)
	if err != nil {
		return err
	}
	if acc.Owner != current.Key {
		return ErrOwnerMismatch
	}
	if !signers.Has(current.Key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, current.Key)
	}
	acc.Owner = newAuthority
	return pack(account, acc)
}

// Transfer moves amount between two accounts of the same mint.
func (Program) Transfer(source, destination, authority *ledger.AccountInfo, amount uint64, signers ledger.Signers) error {
	if err := source.RequireWritable(); err != nil {
		return err
	}
	if err := destination.RequireWritable(); err != nil {
		return err
	}
	src, err := Unpack(source)
	if err != nil {
		return err
	}
	dst, err := Unpack(destination)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if src.Owner != authority.Key {
		return ErrOwnerMismatch
	}
	if !signers.Has(authority.Key) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, authority.Key)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, src.Amount, amount)
	}
	if source.Key == destination.Key {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return ErrOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := pack(source, src); err != nil {
		return err
	}
	return pack(destination, dst)
}
