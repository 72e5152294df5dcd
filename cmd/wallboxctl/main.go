package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/wallboxctl/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "wallboxctl: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	prefsPath  string
	apiURL     string
	pollEvery  int
}

func (g globalFlags) options() app.Options {
	opts := app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		APIURL:     g.apiURL,
	}
	if g.pollEvery > 0 {
		opts.PollEvery = secondsToDuration(g.pollEvery)
	}
	return opts
}
