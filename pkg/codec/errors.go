package codec

import "errors"

// ErrInvalidLength is returned when a ciphertext is not a whole number of blocks.
var ErrInvalidLength = errors.New("ciphertext length is not a multiple of the block size")
