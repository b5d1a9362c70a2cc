// Package feistel implements the axine block cipher: a 16-round Feistel network
// over 64-bit blocks split into two 32-bit halves, keyed by a single 64-bit key.
//
// The cipher is a teaching cipher. Its bit-level behaviour is fixed: changing the
// round count, the round function or the key schedule makes previously written
// ciphertext unreadable.
package feistel
