package distributor

import (
	"nftclaim/internal/pubkey"
)

// ProgramID is the default id the distributor program is deployed under.
var ProgramID = pubkey.FromName("nftclaim/distributor")

const (
	// AuthoritySeed tags the custody authority derived per distributor.
	AuthoritySeed = "distributor"
	// ReceiptSeed tags the claim receipt derived per asset mint.
	ReceiptSeed = "claimed"
)

func authoritySeeds(state pubkey.Pubkey) [][]byte {
	return [][]byte{[]byte(AuthoritySeed), state.Bytes()}
}

func receiptSeeds(mint pubkey.Pubkey) [][]byte {
	return [][]byte{[]byte(ReceiptSeed), mint.Bytes()}
}

// FindCustodyAuthority derives the address that controls a distributor's
// custody account.
func FindCustodyAuthority(programID, state pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
	return pubkey.FindProgramAddress(authoritySeeds(state), programID)
}

// FindReceiptAddress derives where the claim receipt for mint lives. The
// receipt is keyed by mint alone, so an asset claims at most once across all
// distributors of the program.
func FindReceiptAddress(programID, mint pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
	return pubkey.FindProgramAddress(receiptSeeds(mint), programID)
}

func withBump(seeds [][]byte, bump uint8) [][]byte {
	return append(seeds, []byte{bump})
}
