package distributor

import (
	"errors"
	"fmt"
)

// Error is a stable, externally visible failure code. Values 0 through 15
// keep their historical numbering; later codes are only ever appended.
type Error uint32

const (
	ErrInvalidInstruction Error = iota
	ErrIncorrectSigner
	ErrNotRentExempt
	ErrInvalidMint
	ErrExpectedAmountMismatch
	ErrUnauthorizedAccount
	ErrIncorrectOwner
	ErrInvalidAccounts
	ErrInvalidMetadataAccount
	ErrInvalidSystemProgram
	ErrAmountOverflow
	ErrAmountUnderflow
	ErrDataTypeMismatch
	ErrDistributionNotStarted
	ErrIncorrectSymbol
	ErrTokensAlreadyClaimed
	ErrAlreadyInitialized
	ErrCreatorNotFound
	ErrNoCreators
	ErrRewardPoolExhausted
	ErrNotInitialized
)

var errorMessages = map[Error]string{
	ErrInvalidInstruction:     "Invalid Instruction",
	ErrIncorrectSigner:        "Incorrect signer",
	ErrNotRentExempt:          "State account not rent exempt",
	ErrInvalidMint:            "Invalid mint",
	ErrExpectedAmountMismatch: "Expected amount mismatch",
	ErrUnauthorizedAccount:    "Unauthorized account",
	ErrIncorrectOwner:         "Incorrect account owner",
	ErrInvalidAccounts:        "Invalid accounts",
	ErrInvalidMetadataAccount: "Invalid metadata account",
	ErrInvalidSystemProgram:   "Invalid system program",
	ErrAmountOverflow:         "Amount overflow",
	ErrAmountUnderflow:        "Amount underflow",
	ErrDataTypeMismatch:       "Data type mismatch",
	ErrDistributionNotStarted: "Distribution not started",
	ErrIncorrectSymbol:        "Incorrect symbol in metadata",
	ErrTokensAlreadyClaimed:   "Tokens already claimed",
	ErrAlreadyInitialized:     "Distributor already initialized",
	ErrCreatorNotFound:        "Collection creator not found in metadata",
	ErrNoCreators:             "Metadata has no creators",
	ErrRewardPoolExhausted:    "Reward pool exhausted",
	ErrNotInitialized:         "Distributor not initialized",
}

func (e Error) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return fmt.Sprintf("unknown distributor error %d", uint32(e))
}

// Code returns the numeric form.
func (e Error) Code() uint32 {
	return uint32(e)
}

// Class groups codes by the kind of failure they report.
func (e Error) Class() string {
	switch e {
	case ErrIncorrectSigner, ErrIncorrectOwner, ErrUnauthorizedAccount:
		return "authorization"
	case ErrNotRentExempt, ErrAlreadyInitialized, ErrNotInitialized:
		return "precondition"
	case ErrExpectedAmountMismatch, ErrInvalidAccounts, ErrInvalidMetadataAccount, ErrInvalidSystemProgram,
		ErrDataTypeMismatch, ErrInvalidMint, ErrInvalidInstruction:
		return "value_mismatch"
	case ErrDistributionNotStarted, ErrCreatorNotFound, ErrNoCreators, ErrIncorrectSymbol, ErrRewardPoolExhausted:
		return "eligibility"
	case ErrTokensAlreadyClaimed:
		return "idempotency"
	case ErrAmountOverflow, ErrAmountUnderflow:
		return "arithmetic"
	default:
		return "unknown"
	}
}

// CodeOf extracts the distributor code from err, if any.
func CodeOf(err error) (Error, bool) {
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return 0, false
}

// withCause tags a collaborator failure with a distributor code while keeping
// the original error reachable through errors.Is.
func withCause(code Error, cause error) error {
	return fmt.Errorf("%w: %w", code, cause)
}
