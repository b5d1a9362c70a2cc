package main

import (
	"fmt"
	"io"
	"os"

	"axine-go/pkg/config"
	"axine-go/pkg/log"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// Version information - will be set at build time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// cfg is loaded once in the app's Before hook.
var cfg *config.Config

func newApp() *cli.App {
	return &cli.App{
		Name:    "axine",
		Usage:   "encrypt files and text with the axine 64-bit Feistel cipher",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file `PATH` (default: axine.yaml in ., /etc/axine-go, ~/.axine-go)",
				EnvVars: []string{"AXINE_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose console logging",
			},
			&cli.BoolFlag{
				Name:  "no-log-db",
				Usage: "do not record events in the log database",
			},
		},
		Before: setup,
		After: func(c *cli.Context) error {
			return log.Close()
		},
		Commands: []*cli.Command{
			keygenCommand,
			encryptCommand,
			decryptCommand,
			textCommand,
			traceCommand,
			keyringCommand,
			watchCommand,
			serveCommand,
			ctlCommand,
			benchCommand,
			logsCommand,
		},
	}
}

func setup(c *cli.Context) error {
	var err error
	cfg, err = config.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}

	console := consoleWriter(os.Stderr, cfg.Debug)
	if c.Bool("no-log-db") {
		log.SetOutput(console)
		return nil
	}
	if err := log.Init(cfg.LogDB, console); err != nil {
		return cli.Exit(fmt.Sprintf("Error initializing logger: %v", err), 3)
	}
	log.Debug().Str("config", cfg.ConfigFile).Msg("configuration loaded")
	return nil
}

// consoleWriter shows warnings and errors on stderr (everything with debug),
// pretty on a terminal and as JSON lines otherwise. The database always gets
// info and above.
func consoleWriter(f *os.File, debug bool) zerolog.LevelWriter {
	var w io.Writer = f
	if term.IsTerminal(int(f.Fd())) {
		w = log.ConsoleWriter(f)
	}
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
		log.SetLevel(zerolog.DebugLevel)
	} else {
		log.SetLevel(zerolog.InfoLevel)
	}
	return &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: w},
		Level:  level,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
