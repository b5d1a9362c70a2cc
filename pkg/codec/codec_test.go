package codec

import (
	"bytes"
	"encoding/hex"
	"math/rand/v2"
	"testing"

	"axine-go/pkg/key"
	"axine-go/pkg/padding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey key.Key = 0x0123456789ABCDEF

func TestGoldenVectors(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		want  string
	}{
		{"hello", "HELLO", "80f8f71bb2388a8f"},
		{"empty", "", "86e0520941d48e42"},
		{"one short of a block", "1234567", "9fb735c78d7793ad"},
		{"exact block", "12345678", "d6056f870a4ca86286e0520941d48e42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := Encrypt([]byte(tt.plain), testKey)
			assert.Equal(t, tt.want, hex.EncodeToString(enc))

			dec, err := Decrypt(enc, testKey)
			require.NoError(t, err)
			assert.Equal(t, tt.plain, string(dec))
		})
	}
}

func TestRoundTripLengths(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	c := New(key.Key(rng.Uint64() | 1))
	for size := 0; size <= 130; size++ {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(rng.Uint32())
		}
		enc := c.EncryptStream(data)
		require.Zero(t, len(enc)%8, "size %d", size)
		require.GreaterOrEqual(t, len(enc), size+1)

		dec, err := c.DecryptStream(enc)
		require.NoError(t, err, "size %d", size)
		require.True(t, bytes.Equal(data, dec), "size %d", size)
	}
}

func TestEncryptDoesNotModifyInput(t *testing.T) {
	data := []byte("attack at dawn")
	orig := append([]byte(nil), data...)
	enc := Encrypt(data, testKey)
	assert.Equal(t, orig, data)

	encCopy := append([]byte(nil), enc...)
	_, err := Decrypt(enc, testKey)
	require.NoError(t, err)
	assert.Equal(t, encCopy, enc)
}

func TestDecryptInvalidLength(t *testing.T) {
	for _, n := range []int{1, 7, 9, 15, 17} {
		_, err := Decrypt(make([]byte, n), testKey)
		assert.ErrorIs(t, err, ErrInvalidLength, "length %d", n)
	}
}

func TestDecryptEmptyIsRejected(t *testing.T) {
	out, err := Decrypt([]byte{}, testKey)
	assert.ErrorIs(t, err, padding.ErrInvalidPadding)
	assert.NotErrorIs(t, err, ErrInvalidLength)
	assert.Nil(t, out)
}

func TestDecryptWrongKeyFailsOrDiffers(t *testing.T) {
	plain := []byte("The quick brown fox")
	enc := Encrypt(plain, testKey)
	dec, err := Decrypt(enc, testKey^1)
	if err == nil {
		assert.NotEqual(t, plain, dec)
	} else {
		assert.ErrorIs(t, err, padding.ErrInvalidPadding)
		assert.Nil(t, dec)
	}
}

func TestTamperedPaddingBlock(t *testing.T) {
	enc := Encrypt([]byte("HELLO"), testKey)
	// "HELLO" plus a wrong padding byte, encrypted under the same key
	forged := New(testKey)
	block := []byte{'H', 'E', 'L', 'L', 'O', 3, 2, 3}
	forged.sched.EncryptBlock(block, block)
	require.NotEqual(t, enc, block)

	_, err := Decrypt(block, testKey)
	assert.ErrorIs(t, err, padding.ErrInvalidPadding)
}

func TestParallelMatchesSerial(t *testing.T) {
	data := bytes.Repeat(func() []byte {
		b := make([]byte, 256)
		for i := range b {
			b[i] = byte(i)
		}
		return b
	}(), 40)

	serial := New(testKey, WithWorkers(1))
	parallel := New(testKey, WithWorkers(7), WithParallelThreshold(8))

	want := serial.EncryptStream(data)
	got := parallel.EncryptStream(data)
	require.Equal(t, want, got)
	require.Len(t, got, 10248)
	assert.Equal(t, "c0c027c5eeaee06286e0520941d48e42", hex.EncodeToString(got[len(got)-16:]))

	dec, err := parallel.DecryptStream(got)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestMoreWorkersThanBlocks(t *testing.T) {
	c := New(testKey, WithWorkers(64), WithParallelThreshold(0))
	enc := c.EncryptStream([]byte("HELLO"))
	assert.Equal(t, "80f8f71bb2388a8f", hex.EncodeToString(enc))
	dec, err := c.DecryptStream(enc)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(dec))
}

func TestCodecConcurrentUse(t *testing.T) {
	c := New(testKey, WithWorkers(4), WithParallelThreshold(64))
	data := bytes.Repeat([]byte("axine"), 1000)
	want := c.EncryptStream(data)

	done := make(chan []byte, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- c.EncryptStream(data) }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

func BenchmarkEncryptStream1MiB(b *testing.B) {
	data := make([]byte, 1<<20)
	c := New(testKey)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.EncryptStream(data)
	}
}

func BenchmarkEncryptStream1MiBSerial(b *testing.B) {
	data := make([]byte, 1<<20)
	c := New(testKey, WithWorkers(1))
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.EncryptStream(data)
	}
}
