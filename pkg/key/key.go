// Package key handles the 64-bit master key: generation, the 16-digit hex text
// form used in key files, and fingerprints safe to log.
package key

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
	"os"
	"strconv"
	"strings"

	"axine-go/pkg/pearson"
)

const (
	// HexLen is the length of the text form of a key.
	HexLen = 16
	// DefaultFileName is the name of the key file written next to encrypted output.
	DefaultFileName = "encryption_key.key"
)

// Key is an axine master key.
type Key uint64

// String returns the key as 16 uppercase hex digits.
func (k Key) String() string {
	return fmt.Sprintf("%016X", uint64(k))
}

// MarshalText encodes the key as its 16-digit hex form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses text with Parse.
func (k *Key) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Bytes returns the big-endian encoding of k.
func (k Key) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k))
	return b
}

// Fingerprint identifies a key in logs without revealing it.
func (k Key) Fingerprint() string {
	return fmt.Sprintf("%016x", pearson.Hash64(k.Bytes()))
}

// Generate draws a uniformly random non-zero key from a ChaCha8 generator
// seeded from the operating system's entropy source.
func Generate() (Key, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return 0, fmt.Errorf("key: failed to seed generator: %w", err)
	}
	rng := mrand.New(mrand.NewChaCha8(seed))
	for {
		if k := Key(rng.Uint64()); k != 0 {
			return k, nil
		}
	}
}

// Parse reads a key from exactly 16 hex digits of either case. Surrounding
// whitespace is ignored. The zero key is rejected with ErrWeakKey.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if len(s) != HexLen {
		return 0, fmt.Errorf("%w: want %d hex characters, got %d", ErrKeyParse, HexLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return 0, fmt.Errorf("%w: %q is not a hex digit", ErrKeyParse, s[i])
		}
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	if v == 0 {
		return 0, ErrWeakKey
	}
	return Key(v), nil
}

// ParseLegacy is the sentinel form of Parse used by older front-ends: it
// returns 0 for anything Parse rejects.
func ParseLegacy(s string) uint64 {
	k, err := Parse(s)
	if err != nil {
		return 0
	}
	return uint64(k)
}

func isHexDigit(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// WriteFile stores k as plain hex text, readable only by the owner.
func WriteFile(path string, k Key) error {
	if err := os.WriteFile(path, []byte(k.String()), 0o600); err != nil {
		return fmt.Errorf("key: write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a key written by WriteFile or by hand.
func ReadFile(path string) (Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("key: read %s: %w", path, err)
	}
	return Parse(string(data))
}
