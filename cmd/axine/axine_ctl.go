package main

import (
	"fmt"
	"strings"

	"axine-go/pkg/log"
	"axine-go/pkg/management"

	"github.com/urfave/cli/v2"
)

var ctlCommand = &cli.Command{
	Name:      "ctl",
	Usage:     "send a command to a running watch or serve process",
	UsageText: "axine ctl [--target watch|serve] [command args...]",
	Description: `Talks to the control socket in the app dir. Commands: status, ping, stats,
logs [count] [pretty], help; watch also answers key.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "process to talk to: watch or serve",
			Value:   "watch",
		},
	},
	Action: ctlCmd,
}

func ctlCmd(c *cli.Context) error {
	target := c.String("target")
	if target != "watch" && target != "serve" {
		return cli.Exit(fmt.Sprintf("Error: unknown target %q.", target), exitUsage)
	}
	path, err := management.SocketPath(target)
	if err != nil {
		return exitErr(err)
	}
	res, err := management.NewManagementClient(path, cfg.MgmtPassword).SendCommand(strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitIO)
	}
	fmt.Fprintln(c.App.Writer, res)
	return nil
}

// startControlSocket serves the default commands plus extra for app. Failing
// to start it is logged, not fatal; the returned server is safe to Stop either way.
func startControlSocket(app string, extra map[string]management.CommandInfo) *management.ManagementServer {
	path, err := management.SocketPath(app)
	if err != nil {
		log.Warn().Err(err).Msg("control socket disabled")
		return management.NewManagementServer("", "")
	}
	s := management.NewManagementServer(path, cfg.MgmtPassword)
	for name, info := range extra {
		s.RegisterHandler(name, info.Description, info.Handler)
	}
	if err := s.Start(); err != nil {
		log.Warn().Err(err).Msg("control socket disabled")
	}
	return s
}
