// swotrace captures ITM trace data from a debug probe, a TCP server or a
// capture file and prints the decoded text or a PC sample profile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{})

	root := ffcli.Command{
		Name:       "swotrace",
		ShortUsage: "swotrace <subcommand> [flags]",
		ShortHelp:  "ITM/SWO trace capture and decoding",
		Subcommands: []*ffcli.Command{
			newTraceCmd(),
			newProfileCmd(),
			newConfigCmd(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
