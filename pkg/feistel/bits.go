package feistel

import "math/bits"

// Rotl32 rotates x left by shift bits.
func Rotl32(x uint32, shift int) uint32 {
	return bits.RotateLeft32(x, shift)
}

// Rotr32 rotates x right by shift bits.
func Rotr32(x uint32, shift int) uint32 {
	return bits.RotateLeft32(x, -shift)
}

// Rotr64 rotates x right by shift bits. The shift is reduced modulo 64 first,
// so the key schedule may pass 3*round for any round index.
func Rotr64(x uint64, shift int) uint64 {
	shift %= 64
	if shift < 0 {
		shift += 64
	}
	return bits.RotateLeft64(x, -shift)
}
