package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"axine-go/internal/fn"
	"axine-go/pkg/fileproc"
	"axine-go/pkg/key"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

var encryptCommand = &cli.Command{
	Name:      "encrypt",
	Usage:     "encrypt files into a new Encrypted_<timestamp> directory with their key file",
	UsageText: "axine encrypt [--out DIR] [--key HEX | --key-file PATH | --key-name NAME] FILE...",
	Description: `Creates DIR/Encrypted_YYYYMMDD_hhmmss, writes the key file there and stores
every FILE as FILE.axine. Without a key option a new key is generated.`,
	Flags: append(keyFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "base `DIR` for the output directory (default: output_dir setting)",
		},
		&cli.StringFlag{
			Name:  "save-as",
			Usage: "store the key in the keyring as `NAME`",
		},
	),
	Action: encryptCmd,
}

var decryptCommand = &cli.Command{
	Name:      "decrypt",
	Usage:     "decrypt .axine files",
	UsageText: "axine decrypt [--out DIR] [--force] [--key HEX | --key-file PATH | --key-name NAME] FILE...",
	Description: `Writes every FILE without its last extension. Without a key option the key
file next to the first FILE is used.`,
	Flags: append(keyFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "write into `DIR` instead of next to each file",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite existing files",
		},
	),
	Action: decryptCmd,
}

func encryptCmd(c *cli.Context) error {
	files, err := requireFiles(c)
	if err != nil {
		return err
	}
	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		if k, err = key.Generate(); err != nil {
			return exitErr(err)
		}
	}
	if name := c.String("save-as"); name != "" {
		ring, err := openKeyring()
		if err != nil {
			return exitErr(err)
		}
		_, err = ring.Put(name, k)
		ring.Close()
		if err != nil {
			return exitErr(err)
		}
	}

	proc, err := newProcessor(k)
	if err != nil {
		return exitErr(err)
	}
	res, err := proc.EncryptBatch(files, outputDir(c))
	if err != nil {
		return exitErr(err)
	}

	w := c.App.Writer
	var total int
	for _, r := range res.Files {
		total += r.InBytes
		fmt.Fprintf(w, "%s -> %s\n", r.Src, r.Dst)
	}
	fmt.Fprintf(w, "Encrypted %d %s (%s) into %s\n", len(res.Files),
		fn.T(len(res.Files) == 1, "file", "files"), humanize.Bytes(uint64(total)), res.Dir)
	fmt.Fprintf(w, "Key: %s (saved to %s)\n", k, res.KeyFile)
	return nil
}

func decryptCmd(c *cli.Context) error {
	files, err := requireFiles(c)
	if err != nil {
		return err
	}
	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		path := siblingKeyFile(files)
		if k, err = key.ReadFile(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cli.Exit(fmt.Sprintf("Error: no key given and no %s next to %s.", cfg.KeyFileName, files[0]), exitUsage)
			}
			return exitErr(err)
		}
	}

	proc, err := newProcessor(k)
	if err != nil {
		return exitErr(err)
	}
	if c.IsSet("out") {
		if err := os.MkdirAll(c.String("out"), 0o755); err != nil {
			return exitErr(err)
		}
	}
	for _, src := range files {
		dir := fn.T(c.IsSet("out"), c.String("out"), filepath.Dir(src))
		dst := filepath.Join(dir, fileproc.DecryptedName(src))
		if dst == src {
			dst += ".dec"
		}
		if _, err := os.Stat(dst); err == nil && !c.Bool("force") {
			return cli.Exit(fmt.Sprintf("Error: %s exists, use --force to overwrite.", dst), exitUsage)
		}
		r, err := proc.DecryptFile(src, dst)
		if err != nil {
			return exitErr(err)
		}
		fmt.Fprintf(c.App.Writer, "%s -> %s\n", r.Src, r.Dst)
	}
	return nil
}
