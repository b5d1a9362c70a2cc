package main

import (
	"fmt"

	"axine-go/pkg/fileproc"
	"axine-go/pkg/key"
	"axine-go/pkg/log"

	"github.com/urfave/cli/v2"
)

var keygenCommand = &cli.Command{
	Name:      "keygen",
	Usage:     "generate a random key",
	UsageText: "axine keygen [--out PATH] [--name NAME]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "also write the key file to `PATH`",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "also store the key in the keyring as `NAME`",
		},
	},
	Action: keygenCmd,
}

func keygenCmd(c *cli.Context) error {
	k, err := key.Generate()
	if err != nil {
		return exitErr(err)
	}
	if out := c.String("out"); out != "" {
		if err := fileproc.WriteFileAtomic(out, []byte(k.String()), 0o600); err != nil {
			return exitErr(err)
		}
	}
	if name := c.String("name"); name != "" {
		ring, err := openKeyring()
		if err != nil {
			return exitErr(err)
		}
		defer ring.Close()
		if _, err := ring.Put(name, k); err != nil {
			return exitErr(err)
		}
	}
	log.Info().Str("key_fp", k.Fingerprint()).Msg("key generated")

	fmt.Fprintf(c.App.Writer, "Key: %s\nFingerprint: %s\n", k, k.Fingerprint())
	return nil
}
