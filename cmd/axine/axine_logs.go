package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"axine-go/pkg/log"

	"github.com/urfave/cli/v2"
)

// --- Time Parsing Helper ---

// timeFormats includes common layouts to try when parsing absolute time strings.
// Order matters; more specific formats should generally come earlier.
var timeFormats = []string{
	time.RFC3339Nano,      // "2006-01-02T15:04:05.999999999Z07:00"
	time.RFC3339,          // "2006-01-02T15:04:05Z07:00"
	"2006-01-02T15:04:05", // ISO 8601 without timezone
	"2006-01-02 15:04:05", // Common space-separated format
	"2006-01-02",          // Date only
}

// parseRelative extends time.ParseDuration with whole days ("2d") and weeks ("1w").
func parseRelative(spec string) (time.Duration, error) {
	if n := len(spec); n > 1 {
		unit := map[byte]time.Duration{'d': 24 * time.Hour, 'w': 7 * 24 * time.Hour}[spec[n-1]]
		if unit != 0 {
			v, err := strconv.Atoi(spec[:n-1])
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid duration %q", spec)
			}
			return time.Duration(v) * unit, nil
		}
	}
	return time.ParseDuration(spec)
}

// parseTimeSpec attempts to parse a string as either a relative duration
// from now (e.g., "1h", "30m", "2d") or an absolute timestamp in local time.
func parseTimeSpec(spec string, now time.Time) (time.Time, error) {
	if d, err := parseRelative(spec); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range timeFormats {
		if ts, err := time.ParseInLocation(layout, spec, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time specification: '%s'. Use relative duration (e.g., '1h', '30m', '2d') or absolute format (e.g., '2023-10-27T15:04:05Z')", spec)
}

// --- Custom Help Template ---

const logsCommandHelpTemplate = `NAME:
   {{.HelpName}} - {{.Usage}}

USAGE:
   {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[command options] argument...{{end}}
{{if .Description}}
DESCRIPTION:
   {{.Description | Indent 4}}
{{end}}
MODES (choose one; defaults to --last if no mode specified):
     --last                 Retrieve the most recent N log entries.
     --since                Retrieve logs since a specific start time up to now.
     --between              Retrieve logs between a specific start and end time.

OPTIONS:
{{range .VisibleFlags}}   {{.}}
{{end}}
TIME SPECIFICATION (<time_spec>):
     1. Relative Duration: a duration before now.
        Examples: "5m", "1h30m", "2d", "1w".
        Units: s, m, h, d (days), w (weeks).
     2. Absolute Timestamp: RFC3339 or a similar ISO 8601 timestamp.
        Local time is assumed unless a zone or 'Z' is given.
        Examples: "2023-10-27T15:04:05Z", "2023-10-27 10:00:00", "2023-10-27".

EXAMPLES:
     # Last 50 entries of the default database
     axine logs -n 50

     # Everything from the last hour, pretty printed
     axine logs --since -s 1h --pretty

     # Between two and one day ago from another database
     axine logs -f /tmp/other.db --between -s 2d -e 1d

`

// --- CLI Definition ---

var logsCommand = &cli.Command{
	Name:               "logs",
	Usage:              "Retrieve JSON log entries from the log database",
	UsageText:          "axine logs [command options] [--last|--since|--between] [mode options]",
	Description:        `Reads the events axine recorded (log_db setting, or -f/--dbfile).`,
	CustomHelpTemplate: logsCommandHelpTemplate,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "dbfile",
			Aliases: []string{"f"},
			Usage:   "SQLite log database `PATH` (default: log_db setting)",
		},
		&cli.BoolFlag{
			Name:    "pretty",
			Aliases: []string{"p"},
			Usage:   "Output logs in a human-readable format instead of raw JSON",
		},

		// --- Mode Flags ---
		&cli.BoolFlag{Name: "last", Usage: "Mode: Retrieve the most recent N log entries (default)"},
		&cli.BoolFlag{Name: "since", Usage: "Mode: Retrieve logs since a specific start time"},
		&cli.BoolFlag{Name: "between", Usage: "Mode: Retrieve logs between a specific start and end time"},

		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Number of entries for --last mode `NUMBER`",
			Value:   log.DefaultLimit,
		},
		&cli.StringFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "Start time for --since/--between `TIME_SPEC` (e.g., '1h', '2023-10-27T10:00:00Z')",
		},
		&cli.StringFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "End time for --between `TIME_SPEC` (e.g., '30m', '2023-10-27T11:00:00')",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Max entries for --since/--between `NUMBER`",
			Value:   1000,
		},
	},
	Action: logsCmd,
}

func logsCmd(c *cli.Context) error {
	isLast, isSince, isBetween := c.Bool("last"), c.Bool("since"), c.Bool("between")
	modeCount := 0
	for _, m := range []bool{isLast, isSince, isBetween} {
		if m {
			modeCount++
		}
	}
	if modeCount == 0 {
		isLast = true
	} else if modeCount > 1 {
		return cli.Exit("Error: Only one mode flag (--last, --since, --between) can be specified at a time.", exitUsage)
	}

	// The app already opened log_db; another database replaces it for this run.
	if dbFile := c.String("dbfile"); dbFile != "" {
		dbFile, _ = filepath.Abs(dbFile)
		if _, err := os.Stat(dbFile); err != nil {
			return cli.Exit(fmt.Sprintf("Error: Database file not found at '%s'", dbFile), exitIO)
		}
		log.Close()
		if err := log.Init(dbFile); err != nil {
			return cli.Exit(fmt.Sprintf("Error opening log database: %v", err), exitIO)
		}
	}

	var results []log.LogEntry
	var retrievalErr error
	now := time.Now()

	switch {
	case isLast:
		if c.IsSet("start") || c.IsSet("end") {
			fmt.Fprintln(c.App.ErrWriter, "Warning: --start (-s) and --end (-e) flags are ignored in --last mode.")
		}
		count := c.Int("count")
		if count <= 0 {
			return cli.Exit("Error: --count (-n) must be a positive number.", exitUsage)
		}
		results, retrievalErr = log.GetLastNLogs(count)

	case isSince:
		if !c.IsSet("start") {
			return cli.Exit("Error: --start (-s) flag is required for --since mode.", exitUsage)
		}
		if c.IsSet("end") {
			fmt.Fprintln(c.App.ErrWriter, "Warning: --end (-e) flag is ignored in --since mode.")
		}
		startTime, err := parseTimeSpec(c.String("start"), now)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error parsing start time: %v", err), exitUsage)
		}
		results, retrievalErr = log.GetLogsSince(startTime, c.Int("limit"))

	case isBetween:
		if !c.IsSet("start") || !c.IsSet("end") {
			return cli.Exit("Error: --start (-s) and --end (-e) are required for --between mode.", exitUsage)
		}
		startTime, err := parseTimeSpec(c.String("start"), now)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error parsing start time: %v", err), exitUsage)
		}
		endTime, err := parseTimeSpec(c.String("end"), now)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error parsing end time: %v", err), exitUsage)
		}
		if startTime.After(endTime) {
			fmt.Fprintf(c.App.ErrWriter, "Warning: Start time (%s) is after end time (%s).\n",
				startTime.Format(time.RFC3339), endTime.Format(time.RFC3339))
		}
		results, retrievalErr = log.GetLogsBetween(startTime, endTime, c.Int("limit"))
	}

	if retrievalErr != nil {
		if errors.Is(retrievalErr, log.ErrNotInitialized) {
			return cli.Exit("Error: the log database is disabled (--no-log-db).", exitUsage)
		}
		return cli.Exit(fmt.Sprintf("Error retrieving logs: %v", retrievalErr), exitIO)
	}

	if len(results) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "No log entries found matching the criteria.")
		return nil
	}
	for _, entry := range results {
		if c.Bool("pretty") {
			printPretty(c.App.Writer, entry)
		} else {
			fmt.Fprintln(c.App.Writer, entry.LogData)
		}
	}
	return nil
}

// printPretty prints "time LEVEL message key=value ..." with the remaining
// fields sorted by name. Undecodable rows are printed raw.
func printPretty(w io.Writer, entry log.LogEntry) {
	var ev map[string]any
	if err := json.Unmarshal([]byte(entry.LogData), &ev); err != nil {
		fmt.Fprintln(w, entry.LogData)
		return
	}
	ts, _ := ev["time"].(string)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = t.Local().Format("2006-01-02 15:04:05.000")
	}
	level, _ := ev["level"].(string)
	msg, _ := ev["message"].(string)
	delete(ev, "time")
	delete(ev, "level")
	delete(ev, "message")

	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s", ts, strings.ToUpper(level), msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, ev[k])
	}
	fmt.Fprintln(w, sb.String())
}
