// Command hold tracks purchase lots under a minimum holding period and
// validates proposed trades against the running cash.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/hold/cmd"
	"github.com/google/subcommands"
)

func main() {
	// completes and exits when run by the shell completion.
	cmd.Completion().Complete("hold")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	cmd.SetupLogging()
	os.Exit(int(commander.Execute(context.Background())))
}
