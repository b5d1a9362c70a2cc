package key

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyParse is returned for key strings that are not 16 hexadecimal digits.
	ErrKeyParse = errors.New("invalid key")
	// ErrWeakKey is returned for the all-zero key, under which the cipher is the
	// identity permutation. It wraps ErrKeyParse.
	ErrWeakKey = fmt.Errorf("%w: zero key encrypts to plaintext", ErrKeyParse)
)
