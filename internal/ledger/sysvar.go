package ledger

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"nftclaim/internal/pubkey"
)

var (
	// SysvarOwnerID owns the synthesized sysvar accounts.
	SysvarOwnerID = pubkey.MustParse("Sysvar1111111111111111111111111111111111111")
	ClockSysvarID = pubkey.MustParse("SysvarC1ock11111111111111111111111111111111")
	RentSysvarID  = pubkey.MustParse("SysvarRent111111111111111111111111111111111")

	ErrInvalidSysvar = errors.New("ledger: invalid sysvar account")
)

// AccountStorageOverhead is charged on top of data length by the rent rule.
const AccountStorageOverhead = 128

// Clock is the time oracle visible to programs.
type Clock struct {
	Slot          uint64
	UnixTimestamp int64
}

// Rent is the persistence rule: an account is durable once it holds at least
// MinimumBalance lamports for its size.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent matches the mainnet parameters.
var DefaultRent = Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}

// MinimumBalance returns the lamports needed for dataLen bytes to be durable.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionYears
}

// IsExempt reports whether lamports keep a dataLen sized account durable.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// ClockFromAccount decodes the clock sysvar, rejecting any other account.
func ClockFromAccount(info *AccountInfo) (Clock, error) {
	var c Clock
	if info.Key != ClockSysvarID {
		return c, fmt.Errorf("%w: expected clock, got %s", ErrInvalidSysvar, info.Key)
	}
	if err := borsh.Deserialize(&c, info.Data); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidSysvar, err)
	}
	return c, nil
}

// RentFromAccount decodes the rent sysvar, rejecting any other account.
func RentFromAccount(info *AccountInfo) (Rent, error) {
	var r Rent
	if info.Key != RentSysvarID {
		return r, fmt.Errorf("%w: expected rent, got %s", ErrInvalidSysvar, info.Key)
	}
	if err := borsh.Deserialize(&r, info.Data); err != nil {
		return r, fmt.Errorf("%w: %v", ErrInvalidSysvar, err)
	}
	return r, nil
}

func sysvarAccount(v interface{}) (*Account, error) {
	data, err := borsh.Serialize(v)
	if err != nil {
		return nil, err
	}
	return &Account{Owner: SysvarOwnerID, Lamports: 1, Data: data}, nil
}

func isSysvar(key pubkey.Pubkey) bool {
	return key == ClockSysvarID || key == RentSysvarID
}
