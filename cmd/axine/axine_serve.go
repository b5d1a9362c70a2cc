package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"axine-go/pkg/api"
	"axine-go/pkg/fileproc"
	"axine-go/pkg/key"
	"axine-go/pkg/log"
	"axine-go/pkg/management"
	"axine-go/pkg/watch"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:      "serve",
	Usage:     "serve encrypt, decrypt and keygen over HTTP",
	UsageText: "axine serve [--listen ADDR] [--key HEX | --key-file PATH | --key-name NAME]",
	Description: `POST /v1/encrypt, POST /v1/decrypt and GET /v1/key. The key of a request is
read from the X-Axine-Key header; encrypt falls back to the key given here, or
to a fresh key per request.`,
	Flags: append(keyFlags(),
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "listen `ADDR` (default: api_listen_address setting)",
		},
	),
	Action: serveCmd,
}

var watchCommand = &cli.Command{
	Name:      "watch",
	Usage:     "encrypt every file dropped into a directory",
	UsageText: "axine watch [--inbox DIR] [--out DIR] [--existing] [--key HEX | --key-file PATH | --key-name NAME]",
	Description: `Files appearing in the inbox are encrypted into the output directory as
NAME.axine under one key. The key file is kept in the output directory; without
a key option a new key is generated, or the one already stored there is reused.`,
	Flags: append(keyFlags(),
		&cli.StringFlag{Name: "inbox", Aliases: []string{"i"}, Usage: "watched `DIR` (default: inbox_dir setting)"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `DIR` (default: output_dir setting)"},
		&cli.BoolFlag{Name: "existing", Usage: "also encrypt files already in the inbox"},
		&cli.DurationFlag{Name: "settle", Usage: "quiet time before a file is picked up", Value: watch.DefaultSettle},
	),
	Action: watchCmd,
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCmd(c *cli.Context) error {
	k, _, err := resolveKey(c)
	if err != nil {
		return err
	}
	if c.IsSet("listen") {
		cfg.APIListenAddr = c.String("listen")
	}

	srv := api.New(cfg, k)
	mgmt := startControlSocket("serve", map[string]management.CommandInfo{
		"stats": {
			Description: "Requests served since start",
			Handler: func([]string) (string, error) {
				st := srv.Stats()
				return fmt.Sprintf("OK: encrypted=%d decrypted=%d rejected=%d", st.Encrypted, st.Decrypted, st.Rejected), nil
			},
		},
	})
	defer mgmt.Stop()

	ctx, stop := signalContext(c.Context)
	defer stop()
	fmt.Fprintf(c.App.Writer, "axine api listening on %s. Press Ctrl+C to stop.\n", cfg.APIListenAddr)
	if err := srv.Run(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitIO)
	}
	log.Info().Msg("api stopped")
	return nil
}

func watchCmd(c *cli.Context) error {
	inbox := cfg.InboxDir
	if c.IsSet("inbox") {
		inbox = c.String("inbox")
	}
	if inbox == "" {
		return cli.Exit("Error: no inbox directory (--inbox or inbox_dir setting).", exitUsage)
	}
	out := outputDir(c)

	k, found, err := resolveKey(c)
	if err != nil {
		return err
	}
	if !found {
		k, err = key.ReadFile(filepath.Join(out, cfg.KeyFileName))
		if err != nil {
			if k, err = key.Generate(); err != nil {
				return exitErr(err)
			}
		}
	}
	proc, err := newProcessor(k)
	if err != nil {
		return exitErr(err)
	}

	w, err := watch.New(watch.Config{
		InboxDir:        inbox,
		OutputDir:       out,
		KeyFileName:     cfg.KeyFileName,
		Settle:          c.Duration("settle"),
		ProcessExisting: c.Bool("existing"),
		OnResult: func(r fileproc.Result, err error) {
			if err == nil {
				fmt.Fprintf(c.App.Writer, "%s -> %s\n", r.Src, r.Dst)
			}
		},
	}, proc)
	if err != nil {
		return exitErr(err)
	}

	mgmt := startControlSocket("watch", map[string]management.CommandInfo{
		"stats": {
			Description: "Files encrypted since start",
			Handler: func([]string) (string, error) {
				st := w.Stats()
				return fmt.Sprintf("OK: encrypted=%d (%s) failed=%d last=%q last_error=%q",
					st.Encrypted, humanize.Bytes(uint64(st.InBytes)), st.Failed, st.LastFile, st.LastError), nil
			},
		},
		"key": {
			Description: "Fingerprint of the key in use",
			Handler: func([]string) (string, error) {
				return "OK: " + w.Key().Fingerprint(), nil
			},
		},
	})
	defer mgmt.Stop()

	ctx, stop := signalContext(c.Context)
	defer stop()
	fmt.Fprintf(c.App.Writer, "Watching %s, key %s. Press Ctrl+C to stop.\n", inbox, k)
	if err := w.Run(ctx); err != nil {
		return exitErr(err)
	}
	return nil
}
