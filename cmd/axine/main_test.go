package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"axine-go/pkg/appdir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testKeyHex = "0123456789ABCDEF"

func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "axine-cli-test")
	if err != nil {
		panic(err)
	}
	os.Setenv(appdir.EnvOverride, home)
	os.Setenv("HOME", home)
	os.Unsetenv("AXINE_KEY")
	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"axine", "--no-log-db"}, args...))
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec), "expected an exit error, got %v", err)
	return ec.ExitCode()
}

func TestEncryptDecryptFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("HELLO"), 0o644))
	base := t.TempDir()

	out, err := run(t, "encrypt", "--out", base, "--key", testKeyHex, src)
	require.NoError(t, err)
	assert.Contains(t, out, "Key: "+testKeyHex)

	dirs, err := filepath.Glob(filepath.Join(base, "Encrypted_*"))
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	enc, err := os.ReadFile(filepath.Join(dirs[0], "hello.txt.axine"))
	require.NoError(t, err)
	assert.Equal(t, "80f8f71bb2388a8f", hex.EncodeToString(enc))

	// no key flag: the key file written next to the ciphertext is used
	dec := t.TempDir()
	_, err = run(t, "decrypt", "--out", dec, filepath.Join(dirs[0], "hello.txt.axine"))
	require.NoError(t, err)
	plain, err := os.ReadFile(filepath.Join(dec, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(plain))

	// refuses to overwrite without --force
	_, err = run(t, "decrypt", "--out", dec, filepath.Join(dirs[0], "hello.txt.axine"))
	assert.Equal(t, exitUsage, exitCode(t, err))
	_, err = run(t, "decrypt", "--force", "--out", dec, filepath.Join(dirs[0], "hello.txt.axine"))
	assert.NoError(t, err)
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	zeros := filepath.Join(dir, "zeros.axine")
	require.NoError(t, os.WriteFile(zeros, make([]byte, 16), 0o644))
	short := filepath.Join(dir, "short.axine")
	require.NoError(t, os.WriteFile(short, make([]byte, 7), 0o644))

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"bad padding", []string{"decrypt", "--key", testKeyHex, "--out", dir, zeros}, exitCipher},
		{"bad length", []string{"decrypt", "--key", testKeyHex, "--out", dir, short}, exitCipher},
		{"missing file", []string{"encrypt", "--out", dir, filepath.Join(dir, "nope")}, exitIO},
		{"no files", []string{"encrypt"}, exitUsage},
		{"bad key", []string{"text", "decrypt", "--key", "xyz", "00"}, exitUsage},
		{"zero key", []string{"text", "encrypt", "--key", "0000000000000000", "hi"}, exitUsage},
		{"two keys", []string{"text", "encrypt", "--key", testKeyHex, "--key-name", "x", "hi"}, exitUsage},
		{"no key for decrypt", []string{"decrypt", zeros}, exitUsage},
		{"bad hex", []string{"text", "decrypt", "--key", testKeyHex, "zz"}, exitUsage},
		{"ctl without daemon", []string{"ctl", "status"}, exitIO},
		{"ctl bad target", []string{"ctl", "--target", "edge", "status"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Equal(t, tt.code, exitCode(t, err))
		})
	}
	_, err := os.Stat(filepath.Join(dir, "zeros"))
	assert.True(t, os.IsNotExist(err), "no output on failed decryption")
}

func TestTextRoundTrip(t *testing.T) {
	out, err := run(t, "text", "encrypt", "--key", testKeyHex, "HELLO")
	require.NoError(t, err)
	assert.Contains(t, out, "Encrypted: 80 f8 f7 1b b2 38 8a 8f")

	out, err = run(t, "text", "decrypt", "--key", testKeyHex, "80", "f8", "f7", "1b", "b2", "38", "8a", "8f")
	require.NoError(t, err)
	assert.Equal(t, "Decrypted: HELLO\n", out)
}

func TestKeyringCommands(t *testing.T) {
	_, err := run(t, "keyring", "add", "--key", testKeyHex, "work")
	require.NoError(t, err)
	defer run(t, "keyring", "rm", "work")

	out, err := run(t, "keyring", "get", "work")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex+"\n", out)

	out, err = run(t, "keyring", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "work")

	out, err = run(t, "text", "encrypt", "--key-name", "work", "HELLO")
	require.NoError(t, err)
	assert.Contains(t, out, "80 f8 f7 1b b2 38 8a 8f")

	_, err = run(t, "keyring", "add", "--key", testKeyHex, "work")
	assert.Equal(t, exitUsage, exitCode(t, err))
	_, err = run(t, "keyring", "get", "missing")
	assert.Equal(t, exitUsage, exitCode(t, err))
}

func TestTraceCommand(t *testing.T) {
	dot := filepath.Join(t.TempDir(), "t.dot")
	out, err := run(t, "trace", "--key", testKeyHex, "--block", "0123456789abcdef", "--dot", dot)
	require.NoError(t, err)
	assert.Contains(t, out, "ciphertext e80edd38ddb1caff")
	assert.Equal(t, 16, strings.Count(out, "round "))

	data, err := os.ReadFile(dot)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph feistel"))
}

func TestParseBlock(t *testing.T) {
	l, r, err := parseBlock("0x0123456789ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01234567), l)
	assert.Equal(t, uint32(0x89abcdef), r)

	_, _, err = parseBlock("0123")
	assert.Error(t, err)
	_, _, err = parseBlock("0123456789abcdeg")
	assert.Error(t, err)
}

func TestParseTimeSpec(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		spec string
		want time.Time
	}{
		{"1h", now.Add(-time.Hour)},
		{"90m", now.Add(-90 * time.Minute)},
		{"2d", now.Add(-48 * time.Hour)},
		{"1w", now.Add(-7 * 24 * time.Hour)},
		{"2023-10-27T15:04:05Z", time.Date(2023, 10, 27, 15, 4, 5, 0, time.UTC)},
		{"2023-10-27", time.Date(2023, 10, 27, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseTimeSpec(tt.spec, now)
		require.NoError(t, err, tt.spec)
		assert.True(t, tt.want.Equal(got), "%s: got %v want %v", tt.spec, got, tt.want)
	}
	for _, bad := range []string{"", "yesterday", "xd", "-1d"} {
		_, err := parseTimeSpec(bad, now)
		assert.Error(t, err, bad)
	}
}
