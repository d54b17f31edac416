package cli

import (
	"flag"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

type group struct {
	name     string
	commands []subcommands.Command
}

func groups(env *Env) []group {
	return []group{
		{"session", []subcommands.Command{
			&loginCmd{env: env},
			&logoutCmd{env: env},
			&registerCmd{env: env},
			&whoamiCmd{env: env},
		}},
		{"views", []subcommands.Command{
			&dashboardCmd{env: env},
			&stocksCmd{env: env},
			&portfolioCmd{env: env},
			&reportCmd{env: env},
		}},
		{"holdings", []subcommands.Command{
			&addHoldingCmd{env: env},
			&updateHoldingCmd{env: env},
			&removeHoldingCmd{env: env},
		}},
		{"data", []subcommands.Command{
			&sourcesCmd{env: env},
			&syncCmd{env: env},
			&syncLogsCmd{env: env},
			&statusCmd{env: env},
		}},
	}
}

// Commands lists every istock command bound to env.
func Commands(env *Env) []subcommands.Command {
	var out []subcommands.Command
	for _, g := range groups(env) {
		out = append(out, g.commands...)
	}
	return out
}

// Register adds the commands to c, grouped for the help output.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	for _, g := range groups(env) {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// flagPredictors completes enumerated flag values; other flags take any
// value and boolean flags none.
var flagPredictors = map[string]complete.Predictor{
	"type":   predict.Set{"realtime", "historical"},
	"risk":   predict.Set{"low", "medium", "high"},
	"status": predict.Set{"started", "running", "success", "partial", "failed"},
	"o":      predict.Files("*.md"),
}

// Completion builds the shell completion tree from the command flags.
func Completion(cmds []subcommands.Command) *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{
			"help":     {},
			"flags":    {},
			"commands": {},
		},
		Flags: map[string]complete.Predictor{
			"plain": predict.Nothing,
		},
	}
	for _, cmd := range cmds {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs.VisitAll(func(f *flag.Flag) {
			if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
				sub.Flags[f.Name] = predict.Nothing
				return
			}
			if p, ok := flagPredictors[f.Name]; ok {
				sub.Flags[f.Name] = p
				return
			}
			sub.Flags[f.Name] = predict.Something
		})
		root.Sub[cmd.Name()] = sub
	}
	return root
}
