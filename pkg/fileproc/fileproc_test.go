package fileproc

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"axine-go/pkg/codec"
	"axine-go/pkg/key"
	"axine-go/pkg/padding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey key.Key = 0x0123456789ABCDEF

func newProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	p, err := NewProcessor(testKey, opts)
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestEncryptDecryptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.txt")
	enc := filepath.Join(dir, "hello.txt.axine")
	dec := filepath.Join(dir, "out", "hello.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "out"), 0o755))
	writeFile(t, src, []byte("HELLO"))

	p := newProcessor(t, Options{})
	res, err := p.EncryptFile(src, enc)
	require.NoError(t, err)
	assert.Equal(t, 5, res.InBytes)
	assert.Equal(t, 8, res.OutBytes)

	raw, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.Equal(t, "80f8f71bb2388a8f", hex.EncodeToString(raw))

	_, err = p.DecryptFile(enc, dec)
	require.NoError(t, err)
	plain, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(plain))
}

func TestEmptyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty")
	writeFile(t, src, nil)

	p := newProcessor(t, Options{Codec: []codec.Option{codec.WithWorkers(1)}})
	_, err := p.EncryptFile(src, src+".axine")
	require.NoError(t, err)
	_, err = p.DecryptFile(src+".axine", filepath.Join(dir, "back"))
	require.NoError(t, err)
	back, err := os.ReadFile(filepath.Join(dir, "back"))
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "log.txt")
	data := []byte{}
	for i := 0; i < 2000; i++ {
		data = append(data, "line of a very repetitive log file\n"...)
	}
	writeFile(t, src, data)

	p := newProcessor(t, Options{Compress: true, CompressLevel: "fastest"})
	res, err := p.EncryptFile(src, src+".axine")
	require.NoError(t, err)
	assert.Less(t, res.OutBytes, res.InBytes)

	_, err = p.DecryptFile(src+".axine", filepath.Join(dir, "log.out"))
	require.NoError(t, err)
	back, err := os.ReadFile(filepath.Join(dir, "log.out"))
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestIOErrorsAreDistinct(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor(t, Options{})

	_, err := p.EncryptFile(filepath.Join(dir, "missing"), filepath.Join(dir, "x.axine"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	var ioe *IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, "read", ioe.Op)

	src := filepath.Join(dir, "in")
	writeFile(t, src, []byte("data"))
	_, err = p.EncryptFile(src, filepath.Join(dir, "no", "such", "dir", "x.axine"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestDecryptFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor(t, Options{})
	dst := filepath.Join(dir, "plain")

	bad := filepath.Join(dir, "bad.axine")
	writeFile(t, bad, []byte("1234567"))
	_, err := p.DecryptFile(bad, dst)
	assert.ErrorIs(t, err, codec.ErrInvalidLength)
	assert.NotErrorIs(t, err, ErrIO)

	tampered := filepath.Join(dir, "tampered.axine")
	writeFile(t, tampered, make([]byte, 16))
	_, err = p.DecryptFile(tampered, dst)
	assert.ErrorIs(t, err, padding.ErrInvalidPadding)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "destination must not exist after a failed decrypt")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestDecryptedName(t *testing.T) {
	tests := map[string]string{
		"/tmp/report.pdf.axine": "report.pdf",
		"notes.axine":           "notes",
		"archive.tar.gz.axine":  "archive.tar.gz",
		"noext":                 "noext",
		".axine":                ".axine",
	}
	for in, want := range tests {
		assert.Equal(t, want, DecryptedName(in), in)
	}
}

func TestUniqueDir(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	first, err := UniqueDir(base, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "Encrypted_20240309_140507"), first)

	second, err := UniqueDir(base, now)
	require.NoError(t, err)
	assert.Equal(t, first+"_1", second)
}

func TestEncryptBatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := filepath.Join(in, "a.txt")
	b := filepath.Join(in, "b.bin")
	writeFile(t, a, []byte("alpha"))
	writeFile(t, b, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	p := newProcessor(t, Options{})
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) }

	res, err := p.EncryptBatch([]string{a, b}, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Encrypted_20250102_030405"), res.Dir)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(res.Dir, "b.bin.axine"), res.Files[1].Dst)

	k, err := key.ReadFile(res.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, testKey, k)

	st, err := os.Stat(res.Files[1].Dst)
	require.NoError(t, err)
	assert.EqualValues(t, 16, st.Size())
}

func TestEncryptBatchStopsAtFirstFailure(t *testing.T) {
	in := t.TempDir()
	a := filepath.Join(in, "a.txt")
	writeFile(t, a, []byte("alpha"))

	p := newProcessor(t, Options{})
	res, err := p.EncryptBatch([]string{a, filepath.Join(in, "gone.txt"), a}, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "gone.txt")
	assert.Len(t, res.Files, 1)

	_, err = p.EncryptBatch(nil, t.TempDir())
	assert.Error(t, err)
}
