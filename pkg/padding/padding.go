// Package padding adapts the 8-byte axine block to byte buffers of any length
// with PKCS#7-style padding: N bytes of value N, N in [1, BlockSize].
package padding

import (
	"errors"
	"fmt"
)

// BlockSize matches feistel.BlockSize.
const BlockSize = 8

// ErrInvalidPadding is returned by Unpad for corrupt, truncated or tampered input.
var ErrInvalidPadding = errors.New("invalid padding")

// Pad returns a copy of data followed by 1..BlockSize padding bytes. Input whose
// length is already a multiple of BlockSize gets a whole extra block.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// Unpad validates every padding byte and returns padded without them. The
// result shares memory with padded.
func Unpad(padded []byte) ([]byte, error) {
	size := len(padded)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidPadding)
	}
	if size%BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidPadding, size, BlockSize)
	}
	n := int(padded[size-1])
	if n == 0 || n > BlockSize || n > size {
		return nil, fmt.Errorf("%w: pad length %d", ErrInvalidPadding, n)
	}
	for i := size - n; i < size; i++ {
		if padded[i] != byte(n) {
			return nil, fmt.Errorf("%w: byte %d is %#02x, want %#02x", ErrInvalidPadding, i, padded[i], n)
		}
	}
	return padded[:size-n], nil
}
