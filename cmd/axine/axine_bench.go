package main

import (
	"fmt"
	"runtime"

	"axine-go/pkg/benchmark"
	"axine-go/pkg/log"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

var benchCommand = &cli.Command{
	Name:      "bench",
	Usage:     "measure encrypt+decrypt round trips",
	UsageText: "axine bench [--component block|serial|parallel|pipeline | --all] [--iterations N] [--size BYTES] [--output results.csv]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "component", Value: "serial", Usage: "component to benchmark: block, serial, parallel, pipeline"},
		&cli.BoolFlag{Name: "all", Usage: "run every component"},
		&cli.IntFlag{Name: "iterations", Aliases: []string{"n"}, Value: 100, Usage: "number of round trips"},
		&cli.StringFlag{Name: "size", Value: "1MiB", Usage: "payload `SIZE`, e.g. 4096, 64KiB, 8MB"},
		&cli.IntFlag{Name: "workers", Usage: "parallel workers (default: workers setting, or one per CPU)"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "save results as CSV to `PATH`"},
	},
	Action: benchCmd,
}

func benchCmd(c *cli.Context) error {
	size, err := humanize.ParseBytes(c.String("size"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: invalid --size: %v", err), exitUsage)
	}
	opts := benchmark.DefaultOptions()
	opts.Iterations = c.Int("iterations")
	opts.PayloadSize = int(size)
	opts.Workers = cfg.Workers
	if c.IsSet("workers") {
		opts.Workers = c.Int("workers")
	}

	fmt.Fprintf(c.App.Writer, "axine benchmark %s, %d CPUs\n\n", Version, runtime.NumCPU())

	var results []*benchmark.Results
	if c.Bool("all") {
		results = benchmark.RunAll(opts)
	} else {
		component, err := benchmark.ParseComponent(c.String("component"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), exitUsage)
		}
		opts.Component = component
		r, err := benchmark.Run(opts)
		if err != nil {
			return exitErr(err)
		}
		results = append(results, r)
	}
	for _, r := range results {
		benchmark.PrintResults(c.App.Writer, r)
	}

	if out := c.String("output"); out != "" && len(results) > 0 {
		if err := benchmark.SaveResultsToFile(results, out); err != nil {
			return exitErr(err)
		}
		log.Info().Str("file", out).Int("results", len(results)).Msg("benchmark results saved")
	}
	return nil
}
