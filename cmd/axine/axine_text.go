package main

import (
	"fmt"
	"strings"

	"axine-go/pkg/codec"
	"axine-go/pkg/hexdump"
	"axine-go/pkg/key"

	"github.com/urfave/cli/v2"
)

var textCommand = &cli.Command{
	Name:  "text",
	Usage: "encrypt or decrypt text given on the command line",
	Subcommands: []*cli.Command{
		{
			Name:      "encrypt",
			Usage:     "encrypt TEXT and print the ciphertext as hex bytes",
			UsageText: `axine text encrypt [--key HEX] [--dump] TEXT...`,
			Flags: append(keyFlags(), &cli.BoolFlag{
				Name:  "dump",
				Usage: "also print a hex dump of the ciphertext",
			}),
			Action: textEncryptCmd,
		},
		{
			Name:      "decrypt",
			Usage:     `decrypt hex bytes such as "80 f8 f7 1b b2 38 8a 8f"`,
			UsageText: `axine text decrypt --key HEX HEXBYTES...`,
			Flags:     keyFlags(),
			Action:    textDecryptCmd,
		},
	},
}

func textEncryptCmd(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		if k, err = key.Generate(); err != nil {
			return exitErr(err)
		}
	}

	enc := codec.New(k, cfg.CodecOptions()...).EncryptStream([]byte(text))
	w := c.App.Writer
	fmt.Fprintf(w, "Key: %s\n", k)
	fmt.Fprintf(w, "Encrypted: %s\n", hexdump.Format(enc))
	if c.Bool("dump") {
		if err := hexdump.FHexDump(0, enc, w); err != nil {
			return exitErr(err)
		}
	}
	return nil
}

func textDecryptCmd(c *cli.Context) error {
	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit("Error: a key is required (--key, --key-file or --key-name).", exitUsage)
	}
	enc, err := hexdump.Parse(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitUsage)
	}
	plain, err := codec.New(k, cfg.CodecOptions()...).DecryptStream(enc)
	if err != nil {
		return exitErr(err)
	}
	fmt.Fprintf(c.App.Writer, "Decrypted: %s\n", plain)
	return nil
}
