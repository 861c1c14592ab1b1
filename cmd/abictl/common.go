package main

import (
	"github.com/urfave/cli/v3"

	"chainkit/abitool/abi/logging"
)

// includeFlag and verboseFlag are shared by every verb that loads a schema.
var includeFlag = &cli.StringSliceFlag{
	Name:    "include",
	Aliases: []string{"i"},
	Usage:   "additional directory to search when resolving path imports",
}

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Aliases: []string{"v"},
	Usage:   "enable debug-level logging",
}

func loggerFor(cmd *cli.Command) logging.Logger {
	level := logging.LevelInfo
	if cmd.Bool(verboseFlag.Name) {
		level = logging.LevelDebug
	}
	return logging.NewLogger(cmd.Root().Writer, level)
}
