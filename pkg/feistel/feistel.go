package feistel

import (
	"encoding/binary"
	"fmt"
)

const (
	// NumRounds is part of the ciphertext format and must not change.
	NumRounds = 16
	// BlockSize is the cipher block size in bytes.
	BlockSize = 8
)

// Encrypt runs the forward rounds over one block given as its two halves.
func Encrypt(l, r uint32, k uint64) (uint32, uint32) {
	for i := 0; i < NumRounds; i++ {
		l, r = r, l^F(r, Subkey(k, i))
	}
	return l, r
}

// Decrypt runs the rounds backwards and undoes Encrypt for the same key.
func Decrypt(l, r uint32, k uint64) (uint32, uint32) {
	for i := NumRounds - 1; i >= 0; i-- {
		l, r = r^F(l, Subkey(k, i)), l
	}
	return l, r
}

// Encrypt is the cached-subkey variant of the package level Encrypt.
func (s *Schedule) Encrypt(l, r uint32) (uint32, uint32) {
	for i := 0; i < NumRounds; i++ {
		l, r = r, l^F(r, s[i])
	}
	return l, r
}

// Decrypt is the cached-subkey variant of the package level Decrypt.
func (s *Schedule) Decrypt(l, r uint32) (uint32, uint32) {
	for i := NumRounds - 1; i >= 0; i-- {
		l, r = r^F(l, s[i]), l
	}
	return l, r
}

// SplitBlock reads an 8-byte block as one big-endian 64-bit value split at bit 32.
func SplitBlock(b []byte) (uint32, uint32) {
	v := binary.BigEndian.Uint64(b[:BlockSize])
	return uint32(v >> 32), uint32(v)
}

// JoinBlock is the inverse of SplitBlock.
func JoinBlock(dst []byte, l, r uint32) {
	binary.BigEndian.PutUint64(dst[:BlockSize], uint64(l)<<32|uint64(r))
}

// EncryptBlock encrypts one block from src into dst. dst and src may overlap entirely.
func (s *Schedule) EncryptBlock(dst, src []byte) {
	mustBlock(dst, src)
	l, r := s.Encrypt(SplitBlock(src))
	JoinBlock(dst, l, r)
}

// DecryptBlock decrypts one block from src into dst. dst and src may overlap entirely.
func (s *Schedule) DecryptBlock(dst, src []byte) {
	mustBlock(dst, src)
	l, r := s.Decrypt(SplitBlock(src))
	JoinBlock(dst, l, r)
}

func mustBlock(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic(fmt.Sprintf("feistel: input not full block (src %d, dst %d bytes)", len(src), len(dst)))
	}
}

// Cipher is the axine cipher bound to one key. It satisfies crypto/cipher.Block.
type Cipher struct {
	sched Schedule
}

// NewCipher returns a Cipher for the 64-bit key k.
func NewCipher(k uint64) *Cipher {
	return &Cipher{sched: NewSchedule(k)}
}

// BlockSize returns the block size in bytes.
func (c *Cipher) BlockSize() int { return BlockSize }

// Encrypt encrypts the first block in src into dst.
func (c *Cipher) Encrypt(dst, src []byte) { c.sched.EncryptBlock(dst, src) }

// Decrypt decrypts the first block in src into dst.
func (c *Cipher) Decrypt(dst, src []byte) { c.sched.DecryptBlock(dst, src) }

// Schedule returns the precomputed subkeys.
func (c *Cipher) Schedule() Schedule { return c.sched }
