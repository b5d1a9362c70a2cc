package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"axine-go/internal/fn"
	"axine-go/pkg/appdir"
	"axine-go/pkg/codec"
	"axine-go/pkg/fileproc"
	"axine-go/pkg/key"
	"axine-go/pkg/keyring"
	"axine-go/pkg/padding"

	"github.com/urfave/cli/v2"
)

// Exit codes.
const (
	exitUsage  = 1 // bad arguments, bad or missing key
	exitCipher = 2 // ciphertext length or padding
	exitIO     = 3
)

// keyFlags select the key of a command; at most one may be given.
func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "key as 16 hex digits `HEX`",
			EnvVars: []string{"AXINE_KEY"},
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "read the key from `PATH`",
		},
		&cli.StringFlag{
			Name:  "key-name",
			Usage: "use the key stored in the keyring under `NAME`",
		},
	}
}

// resolveKey returns the key selected by keyFlags. found is false when none
// of the flags is set.
func resolveKey(c *cli.Context) (k key.Key, found bool, err error) {
	set := 0
	for _, name := range []string{"key", "key-file", "key-name"} {
		if c.String(name) != "" {
			set++
		}
	}
	if set > 1 {
		return 0, false, cli.Exit("Error: use only one of --key, --key-file and --key-name.", exitUsage)
	}

	switch {
	case c.String("key") != "":
		k, err = key.Parse(c.String("key"))
	case c.String("key-file") != "":
		k, err = key.ReadFile(c.String("key-file"))
	case c.String("key-name") != "":
		k, err = keyFromRing(c.String("key-name"))
	default:
		return 0, false, nil
	}
	if err != nil {
		return 0, true, exitErr(err)
	}
	return k, true, nil
}

func keyFromRing(name string) (key.Key, error) {
	ring, err := openKeyring()
	if err != nil {
		return 0, err
	}
	defer ring.Close()
	e, err := ring.Get(name)
	if err != nil {
		return 0, err
	}
	return e.Key, nil
}

func openKeyring() (*keyring.Keyring, error) {
	path, err := appdir.Path(cfg.KeyringPath)
	if err != nil {
		return nil, err
	}
	return keyring.Open(path)
}

// exitErr maps an error to the exit code of its kind.
func exitErr(err error) error {
	if err == nil {
		return nil
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return err
	}
	var pathErr *fs.PathError
	code := exitUsage
	switch {
	case errors.Is(err, codec.ErrInvalidLength), errors.Is(err, padding.ErrInvalidPadding):
		code = exitCipher
	case errors.Is(err, key.ErrKeyParse):
		code = exitUsage
	case errors.Is(err, fileproc.ErrIO), errors.As(err, &pathErr):
		code = exitIO
	}
	return cli.Exit(fmt.Sprintf("Error: %v", err), code)
}

func newProcessor(k key.Key) (*fileproc.Processor, error) {
	return fileproc.NewProcessor(k, fileproc.Options{
		Codec:         cfg.CodecOptions(),
		Compress:      cfg.Compress,
		CompressLevel: cfg.CompressLevel,
		Extension:     cfg.Extension,
		KeyFileName:   cfg.KeyFileName,
	})
}

// requireFiles checks that every argument names a readable regular file.
func requireFiles(c *cli.Context) ([]string, error) {
	if c.NArg() == 0 {
		return nil, cli.Exit("Error: no files selected.", exitUsage)
	}
	files := c.Args().Slice()
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			return nil, exitErr(err)
		}
		if !st.Mode().IsRegular() {
			return nil, cli.Exit(fmt.Sprintf("Error: %s is not a regular file.", f), exitUsage)
		}
	}
	return files, nil
}

func outputDir(c *cli.Context) string {
	return fn.T(c.IsSet("out"), c.String("out"), cfg.OutputDir)
}

// siblingKeyFile is the key file next to the first ciphertext, as written by
// batch encryption.
func siblingKeyFile(files []string) string {
	return filepath.Join(filepath.Dir(files[0]), cfg.KeyFileName)
}
