package pubkey

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds bounds the seed count of a derived address, bump included.
	MaxSeeds = 16
	// MaxSeedLen bounds the length of each seed.
	MaxSeedLen = 32

	derivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedsExceeded   = errors.New("pubkey: too many seeds")
	ErrMaxSeedLenExceeded = errors.New("pubkey: seed too long")
	ErrOnCurve            = errors.New("pubkey: derived address is a valid curve point")
	ErrNoViableBumpSeed   = errors.New("pubkey: no viable bump seed")
)

// CreateProgramAddress hashes seeds and the owning program into an address that
// is not a valid ed25519 point, so no private key for it exists. Only the
// program named by programID can act as that address.
func CreateProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Zero, ErrMaxSeedsExceeded
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Zero, ErrMaxSeedLenExceeded
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(derivedAddressMarker))

	var out Pubkey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out) {
		return Zero, ErrOnCurve
	}
	return out, nil
}

// FindProgramAddress searches bump seeds from 255 down and returns the first
// derivation that lands off the curve together with the bump used.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Zero, 0, ErrMaxSeedsExceeded
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBumpSeed
}

// IsOnCurve reports whether p decodes to a point on the ed25519 curve.
func IsOnCurve(p Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}
