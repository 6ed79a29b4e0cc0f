// Package password derives and verifies salted argon2id hashes for stored
// credentials. Hashes and salts are exchanged as unpadded base64 text.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

const (
	saltLen = 16
	keyLen  = 32
)

var encoding = base64.RawStdEncoding

// ErrMalformed is returned when a stored hash or salt cannot be decoded.
var ErrMalformed = errors.New("malformed hash or salt")

// Hasher holds the key derivation parameters.
type Hasher struct {
	params types.HashParams
}

// New returns a Hasher using params. A zero value selects
// types.DefaultHashParams.
func New(params types.HashParams) *Hasher {
	if params == (types.HashParams{}) {
		params = types.DefaultHashParams
	}
	return &Hasher{params: params}
}

// NewSalt returns a fresh random salt, encoded.
func (h *Hasher) NewSalt() (string, error) {
	buf := make([]byte, saltLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random salt: %w", err)
	}
	return encoding.EncodeToString(buf), nil
}

// Hash derives the encoded hash of secret under the encoded salt.
func (h *Hasher) Hash(secret, salt string) (string, error) {
	raw, err := encoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return encoding.EncodeToString(h.derive(secret, raw)), nil
}

// HashNew salts and hashes secret in one step.
func (h *Hasher) HashNew(secret string) (hash, salt string, err error) {
	salt, err = h.NewSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = h.Hash(secret, salt)
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}

// Verify reports whether secret hashes to the stored hash under salt. The
// comparison runs in constant time.
func (h *Hasher) Verify(secret, hash, salt string) (bool, error) {
	want, err := encoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	rawSalt, err := encoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	got := h.derive(secret, rawSalt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// CheckEncoded reports ErrMalformed unless hash and salt decode and hash has
// the derived key length.
func CheckEncoded(hash, salt string) error {
	raw, err := encoding.DecodeString(hash)
	if err != nil {
		return fmt.Errorf("%w: hash: %w", ErrMalformed, err)
	}
	if len(raw) != keyLen {
		return fmt.Errorf("%w: hash is %d bytes, want %d", ErrMalformed, len(raw), keyLen)
	}
	rawSalt, err := encoding.DecodeString(salt)
	if err != nil {
		return fmt.Errorf("%w: salt: %w", ErrMalformed, err)
	}
	if len(rawSalt) == 0 {
		return fmt.Errorf("%w: empty salt", ErrMalformed)
	}
	return nil
}

func (h *Hasher) derive(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, keyLen)
}
