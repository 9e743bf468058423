// Package main provides recipectl, a terminal client for the recipe
// generation backend that drives the same form state machine as the web UI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

const name = "recipectl"

// overridden during build with ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Generate recipes from a list of ingredients",
		Version: version,
		Writer:  out,

		// main reports errors and picks the exit code
		ExitErrHandler: func(context.Context, *cli.Command, error) {},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			generateCmd(out),
			dietsCmd(out),
		},
	}
}
