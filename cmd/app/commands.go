package main

import (
	"github.com/urfave/cli/v3"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getEventCommands()...)
	cmds = append(cmds, getSyncCommands()...)
	cmds = append(cmds, getAccountCommands()...)
	return cmds
}

// formatFlag is the text/json output switch shared by the reporting commands.
func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
