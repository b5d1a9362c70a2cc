package main

import (
	"fmt"
	"strconv"
	"strings"

	"axine-go/pkg/fileproc"
	"axine-go/pkg/trace"

	"github.com/goccy/go-graphviz"
	"github.com/urfave/cli/v2"
)

var traceCommand = &cli.Command{
	Name:      "trace",
	Usage:     "show every round of one block encryption",
	UsageText: "axine trace --key HEX --block HEX16 [--dot PATH] [--svg PATH] [--png PATH]",
	Flags: append(keyFlags(),
		&cli.StringFlag{
			Name:     "block",
			Aliases:  []string{"b"},
			Usage:    "plaintext block as 16 hex digits `HEX16` (L then R, big-endian)",
			Required: true,
		},
		&cli.StringFlag{Name: "dot", Usage: "write the Graphviz source to `PATH`"},
		&cli.StringFlag{Name: "svg", Usage: "render the diagram as SVG to `PATH`"},
		&cli.StringFlag{Name: "png", Usage: "render the diagram as PNG to `PATH`"},
	),
	Action: traceCmd,
}

func parseBlock(s string) (l, r uint32, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 16 {
		return 0, 0, fmt.Errorf("block must be 16 hex digits, got %d", len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid block %q: %w", s, err)
	}
	return uint32(v >> 32), uint32(v), nil
}

func traceCmd(c *cli.Context) error {
	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit("Error: a key is required (--key, --key-file or --key-name).", exitUsage)
	}
	l, r, err := parseBlock(c.String("block"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitUsage)
	}

	t := trace.Block(l, r, uint64(k))
	fmt.Fprint(c.App.Writer, t)
	ol, or := t.Output()
	fmt.Fprintf(c.App.Writer, "ciphertext %08x%08x\n", ol, or)

	if path := c.String("dot"); path != "" {
		if err := fileproc.WriteFileAtomic(path, []byte(t.DOT()), 0o644); err != nil {
			return exitErr(err)
		}
	}
	for _, out := range []struct {
		flag   string
		format graphviz.Format
	}{{"svg", graphviz.SVG}, {"png", graphviz.PNG}} {
		path := c.String(out.flag)
		if path == "" {
			continue
		}
		data, err := t.Render(c.Context, out.format)
		if err != nil {
			return exitErr(err)
		}
		if err := fileproc.WriteFileAtomic(path, data, 0o644); err != nil {
			return exitErr(err)
		}
	}
	return nil
}
