package ledger

import (
	"errors"

	"nftclaim/internal/pubkey"
)

// SystemProgramID owns every account no program has claimed yet.
var SystemProgramID = pubkey.Zero

// ErrReadonly is returned when a program mutates an account the caller did not
// declare writable.
var ErrReadonly = errors.New("ledger: account is not writable")

// Account is a single persistent record. Data layout is owned by Owner.
type Account struct {
	Owner      pubkey.Pubkey `json:"owner"`
	Lamports   uint64        `json:"lamports"`
	Data       []byte        `json:"data"`
	Executable bool          `json:"executable,omitempty"`
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Data != nil {
		out.Data = append([]byte(nil), a.Data...)
	}
	return &out
}

// IsEmpty reports whether the account holds nothing worth persisting.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && a.Owner == SystemProgramID && !a.Executable
}

// AccountInfo is the view of an account handed to a program for one
// instruction. Repeated references to the same key share the Account.
type AccountInfo struct {
	Key        pubkey.Pubkey
	IsSigner   bool
	IsWritable bool
	*Account
}

// DataLen returns the stored byte length.
func (ai *AccountInfo) DataLen() int {
	return len(ai.Data)
}

// RequireWritable fails unless the instruction declared the account writable.
func (ai *AccountInfo) RequireWritable() error {
	if !ai.IsWritable {
		return ErrReadonly
	}
	return nil
}

// Signers is the set of identities that authorized an invocation.
type Signers map[pubkey.Pubkey]struct{}

// Has reports whether key signed.
func (s Signers) Has(key pubkey.Pubkey) bool {
	_, ok := s[key]
	return ok
}

func (s Signers) clone() Signers {
	out := make(Signers, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
