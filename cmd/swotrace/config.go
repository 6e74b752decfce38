package main

import (
	"context"
	"flag"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"

	"swotrace/internal/config"
)

type configCmd struct {
	path string
}

func newConfigCmd() *ffcli.Command {
	cmd := configCmd{}

	set := flag.NewFlagSet("config", flag.ExitOnError)
	set.StringVar(&cmd.path, "config", "", "Settings file to check and print (defaults if empty)")

	return &ffcli.Command{
		Name:       "config",
		ShortUsage: "swotrace config [-config file]",
		ShortHelp:  "Validate a settings file and print it with defaults filled in",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *configCmd) exec(_ context.Context, _ []string) error {
	cfg := config.Default()
	if cmd.path != "" {
		var err error
		if cfg, err = config.Load(cmd.path); err != nil {
			return err
		}
	}
	return cfg.Save(os.Stdout)
}
