package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"axine-go/pkg/key"
	"axine-go/pkg/log"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

var keyringCommand = &cli.Command{
	Name:  "keyring",
	Usage: "manage named keys",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "store a key (generated unless --key is given)",
			UsageText: "axine keyring add [--key HEX | --key-file PATH] NAME",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "key as 16 hex digits `HEX`"},
				&cli.StringFlag{Name: "key-file", Usage: "read the key from `PATH`"},
			},
			Action: keyringAddCmd,
		},
		{
			Name:      "get",
			Usage:     "print a stored key",
			UsageText: "axine keyring get NAME",
			Action:    keyringGetCmd,
		},
		{
			Name:    "list",
			Aliases: []string{"ls"},
			Usage:   "list stored keys by name with their fingerprints",
			Action:  keyringListCmd,
		},
		{
			Name:      "rm",
			Usage:     "delete a stored key",
			UsageText: "axine keyring rm NAME",
			Action:    keyringRmCmd,
		},
	},
}

func nameArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("Error: exactly one key NAME is required.", exitUsage)
	}
	return c.Args().First(), nil
}

func keyringAddCmd(c *cli.Context) error {
	name, err := nameArg(c)
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

	ring, err := openKeyring()
	if err != nil {
		return exitErr(err)
	}
	defer ring.Close()
	e, err := ring.Put(name, k)
	if err != nil {
		return exitErr(err)
	}
	log.Info().Str("name", name).Str("key_fp", e.Fingerprint).Msg("key stored")
	fmt.Fprintf(c.App.Writer, "Stored %s (fingerprint %s)\n", name, e.Fingerprint)
	return nil
}

func keyringGetCmd(c *cli.Context) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	ring, err := openKeyring()
	if err != nil {
		return exitErr(err)
	}
	defer ring.Close()
	e, err := ring.Get(name)
	if err != nil {
		return exitErr(err)
	}
	fmt.Fprintln(c.App.Writer, e.Key)
	return nil
}

func keyringListCmd(c *cli.Context) error {
	ring, err := openKeyring()
	if err != nil {
		return exitErr(err)
	}
	defer ring.Close()
	entries, err := ring.List()
	if err != nil {
		return exitErr(err)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFINGERPRINT\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s (%s)\n", e.Name, e.Fingerprint,
			e.CreatedAt.Local().Format(time.DateTime), humanize.Time(e.CreatedAt))
	}
	return tw.Flush()
}

func keyringRmCmd(c *cli.Context) error {
	name, err := nameArg(c)
	if err != nil {
		return err
	}
	ring, err := openKeyring()
	if err != nil {
		return exitErr(err)
	}
	defer ring.Close()
	if err := ring.Delete(name); err != nil {
		return exitErr(err)
	}
	log.Info().Str("name", name).Msg("key deleted")
	return nil
}
