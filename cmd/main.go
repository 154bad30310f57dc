package cmd

import (
	"flag"

	"github.com/etnz/hold/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// commands by group, in help order.
var commands = []struct {
	group string
	cmd   subcommands.Command
}{
	{"portfolio", &initCmd{}},
	{"portfolio", &statusCmd{}},
	{"portfolio", &checkCmd{}},

	{"actions", &validateCmd{}},
	{"actions", &adviseCmd{}},
	{"actions", &swapCmd{}},

	{"trades", &buyCmd{}},
	{"trades", &sellCmd{}},
	{"trades", &depositCmd{}},
	{"trades", &withdrawCmd{}},

	{"help", &topicCmd{}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, x := range commands {
		c.Register(x.cmd, x.group)
	}
}

// fileFlags are the flags naming a file.
var fileFlags = map[string]bool{
	"state": true, "config": true, "prices": true, "actions": true, "strategy": true, "save": true,
}

// Completion returns the shell completion of the global flags and every subcommand.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagPredictors(flag.CommandLine),
	}
	for _, x := range commands {
		f := flag.NewFlagSet(x.cmd.Name(), flag.ContinueOnError)
		x.cmd.SetFlags(f)
		root.Sub[x.cmd.Name()] = &complete.Command{Flags: flagPredictors(f)}
	}
	if topics, err := docs.GetAllTopics(); err == nil {
		root.Sub["topic"].Args = predict.Set(topics)
	}
	return root
}

func flagPredictors(f *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	f.VisitAll(func(fl *flag.Flag) {
		switch {
		case fileFlags[fl.Name]:
			flags[fl.Name] = predict.Files("*")
		case isBool(fl):
			flags[fl.Name] = predict.Nothing
		default:
			flags[fl.Name] = predict.Something
		}
	})
	return flags
}

func isBool(fl *flag.Flag) bool {
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
