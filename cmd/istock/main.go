package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"istock.com/cli"
)

func main() {
	_ = godotenv.Load()

	plain := flag.Bool("plain", false, "Print raw markdown instead of styled output")

	env, err := cli.NewEnv(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitFailure))
	}
	cli.Completion(cli.Commands(env)).Complete("istock")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, env)
	flag.Parse()
	env.Plain = *plain

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	status := commander.Execute(ctx)
	stop()
	_ = env.Logger.Sync()
	os.Exit(int(status))
}
