package pubkey

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// Size is the byte length of every identity.
const Size = 32

// ErrInvalidLength indicates a key that does not decode to exactly Size bytes.
var ErrInvalidLength = errors.New("pubkey: invalid length")

// Pubkey identifies an account, a program, a mint or a signer.
type Pubkey [Size]byte

// Zero is the all-zero key, also the system program id.
var Zero Pubkey

// Parse decodes a base58 encoded key.
func Parse(s string) (Pubkey, error) {
	raw := base58.Decode(s)
	if len(raw) != Size {
		return Zero, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidLength, s, len(raw))
	}
	var p Pubkey
	copy(p[:], raw)
	return p, nil
}

// MustParse is Parse for package level constants.
func MustParse(s string) Pubkey {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromBytes copies a 32 byte slice into a key.
func FromBytes(b []byte) (Pubkey, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	var p Pubkey
	copy(p[:], b)
	return p, nil
}

// FromName derives a stable key from a label. Used for program ids that have
// no natural base58 form.
func FromName(name string) Pubkey {
	return Pubkey(sha256.Sum256([]byte(name)))
}

// NewRandom returns a key with no known relation to any keypair.
func NewRandom() Pubkey {
	var p Pubkey
	if _, err := rand.Read(p[:]); err != nil {
		panic(err)
	}
	return p
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, p[:])
	return out
}

func (p Pubkey) IsZero() bool {
	return p == Zero
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Keypair is an ed25519 signing key and its public identity.
type Keypair struct {
	Public  Pubkey
	Private ed25519.PrivateKey
}

// NewKeypair generates a fresh ed25519 keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	kp := &Keypair{Private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// ErrKeypairMismatch indicates a stored public half that does not belong to
// the seed it is stored with.
var ErrKeypairMismatch = errors.New("pubkey: public key does not match seed")

// KeypairFromBytes restores a keypair from the 64 byte private key form. The
// public half is derived from the seed and must match the stored one.
func KeypairFromBytes(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("pubkey: keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(priv[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, ErrKeypairMismatch
	}
	kp := &Keypair{Private: priv}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// Sign signs msg with the private key.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// Verify checks an ed25519 signature made by key over msg.
func Verify(key Pubkey, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key[:]), msg, sig)
}
