package main

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3/ffcli"

	"swotrace/internal/config"
)

type traceCmd struct {
	captureCmd
	export   string
	dump     bool
	color    bool
	filters  filterList
	timeline int
}

func newTraceCmd() *ffcli.Command {
	cmd := traceCmd{}

	set := flag.NewFlagSet("trace", flag.ExitOnError)
	cmd.register(set)
	set.StringVar(&cmd.export, "export", "", "Write the captured lines to this CSV file")
	set.BoolVar(&cmd.dump, "dump", false, "Print every raw packet")
	set.BoolVar(&cmd.color, "color", false, "Colour channel labels")
	set.IntVar(&cmd.timeline, "timeline", 0, "Print a per-channel timeline this many columns wide when the run ends")
	set.Var(&cmd.filters, "filter", "Only show lines containing this text, '~text' hides them (repeatable)")

	return &ffcli.Command{
		Name:       "trace",
		ShortUsage: "swotrace trace [flags]",
		ShortHelp:  "Print decoded ITM text as it arrives",
		FlagSet:    set,
		Options:    envPrefix,
		Exec:       cmd.exec,
	}
}

func (cmd *traceCmd) exec(ctx context.Context, _ []string) error {
	settings, err := cmd.settings()
	if err != nil {
		return err
	}
	settings.Decode.Mode = config.ModeText

	cfg := cmd.listerConfig(settings)
	cfg.Export = cmd.export
	cfg.Dump = cmd.dump
	cfg.Color = cmd.color
	cfg.Filters = cmd.filters
	cfg.Timeline = cmd.timeline
	return cmd.run(ctx, cfg)
}
