// Package codec applies the axine block cipher to whole byte buffers: pad, split
// into 8-byte blocks, transform every block independently and reassemble in order.
//
// Ciphertext is the raw concatenation of encrypted blocks with no header. Blocks
// are not chained, so large buffers are split across workers.
package codec

import (
	"fmt"
	"runtime"

	"axine-go/pkg/feistel"
	"axine-go/pkg/key"
	"axine-go/pkg/padding"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultParallelThreshold is the buffer size from which blocks are spread over workers.
	DefaultParallelThreshold = 64 * 1024
)

// Codec encrypts and decrypts byte buffers under one key. The subkeys are computed
// once in New and only read afterwards, so a Codec is safe for concurrent use.
type Codec struct {
	sched     feistel.Schedule
	workers   int
	threshold int
}

// Option configures a Codec.
type Option func(*Codec)

// WithWorkers sets the number of goroutines used for large buffers. Values below
// 1 disable parallel processing.
func WithWorkers(n int) Option {
	return func(c *Codec) { c.workers = n }
}

// WithParallelThreshold sets the buffer size in bytes from which blocks are
// processed in parallel.
func WithParallelThreshold(n int) Option {
	return func(c *Codec) { c.threshold = n }
}

// New returns a Codec for k.
func New(k key.Key, opts ...Option) *Codec {
	c := &Codec{
		sched:     feistel.NewSchedule(uint64(k)),
		workers:   runtime.GOMAXPROCS(0),
		threshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncryptStream pads data and encrypts it block by block. The result length is
// the padded length, always a positive multiple of the block size.
func (c *Codec) EncryptStream(data []byte) []byte {
	buf := padding.Pad(data)
	c.run(buf, encryptRun)
	return buf
}

// DecryptStream decrypts every block and strips the padding. It returns either
// the complete plaintext or an error, never partial output.
func (c *Codec) DecryptStream(encrypted []byte) ([]byte, error) {
	if len(encrypted)%feistel.BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(encrypted))
	}
	buf := make([]byte, len(encrypted))
	copy(buf, encrypted)
	c.run(buf, decryptRun)
	plain, err := padding.Unpad(buf)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// Encrypt is EncryptStream with a throwaway Codec.
func Encrypt(data []byte, k key.Key) []byte {
	return New(k).EncryptStream(data)
}

// Decrypt is DecryptStream with a throwaway Codec.
func Decrypt(encrypted []byte, k key.Key) ([]byte, error) {
	return New(k).DecryptStream(encrypted)
}

type runFunc func(s *feistel.Schedule, buf []byte)

func encryptRun(s *feistel.Schedule, buf []byte) {
	for i := 0; i < len(buf); i += feistel.BlockSize {
		b := buf[i : i+feistel.BlockSize]
		s.EncryptBlock(b, b)
	}
}

func decryptRun(s *feistel.Schedule, buf []byte) {
	for i := 0; i < len(buf); i += feistel.BlockSize {
		b := buf[i : i+feistel.BlockSize]
		s.DecryptBlock(b, b)
	}
}

// run transforms buf in place. Above the threshold the blocks are cut into one
// contiguous run per worker; each worker owns its slice of buf, which keeps the
// block order without any merging step.
func (c *Codec) run(buf []byte, fn runFunc) {
	blocks := len(buf) / feistel.BlockSize
	workers := c.workers
	if workers > blocks {
		workers = blocks
	}
	if workers <= 1 || len(buf) < c.threshold {
		fn(&c.sched, buf)
		return
	}

	per := (blocks + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < blocks; start += per {
		end := min(start+per, blocks)
		part := buf[start*feistel.BlockSize : end*feistel.BlockSize]
		g.Go(func() error {
			fn(&c.sched, part)
			return nil
		})
	}
	_ = g.Wait()
}
