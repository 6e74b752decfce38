package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/peterbourgon/ff/v3/ffcli"

	"swotrace/internal/config"
)

type profileCmd struct {
	captureCmd
	top      int
	codeBase uint64
	codeTop  uint64
	shift    uint
}

func newProfileCmd() *ffcli.Command {
	cmd := profileCmd{}

	set := flag.NewFlagSet("profile", flag.ExitOnError)
	cmd.register(set)
	set.IntVar(&cmd.top, "top", 20, "Number of histogram rows to print")
	set.Uint64Var(&cmd.codeBase, "code-base", 0, "Lowest sampled address")
	set.Uint64Var(&cmd.codeTop, "code-top", 0, "Address above the sampled code range")
	set.UintVar(&cmd.shift, "bucket-shift", 0, "Bucket width as a power of two")

	return &ffcli.Command{
		Name:       "profile",
		ShortUsage: "swotrace profile [flags]",
		ShortHelp:  "Build a histogram of ITM PC samples",
		FlagSet:    set,
		Options:    envPrefix,
		Exec:       cmd.exec,
	}
}

func (cmd *profileCmd) exec(ctx context.Context, _ []string) error {
	settings, err := cmd.profileSettings()
	if err != nil {
		return err
	}
	cfg := cmd.listerConfig(settings)
	cfg.Top = cmd.top
	return cmd.run(ctx, cfg)
}

// profileSettings applies the profile flags on top of the shared settings.
func (cmd *profileCmd) profileSettings() (config.Config, error) {
	if cmd.codeBase > math.MaxUint32 {
		return config.Config{}, fmt.Errorf("-code-base %#x is not a 32-bit address", cmd.codeBase)
	}
	if cmd.codeTop > math.MaxUint32 {
		return config.Config{}, fmt.Errorf("-code-top %#x is not a 32-bit address", cmd.codeTop)
	}
	settings, err := cmd.settings()
	if err != nil {
		return config.Config{}, err
	}
	settings.Decode.Mode = config.ModeProfile
	if cmd.codeBase != 0 {
		settings.Decode.CodeBase = uint32(cmd.codeBase)
	}
	if cmd.codeTop != 0 {
		settings.Decode.CodeTop = uint32(cmd.codeTop)
	}
	if cmd.shift != 0 {
		settings.Decode.Shift = cmd.shift
	}
	if err := settings.Validate(); err != nil {
		return config.Config{}, err
	}
	return settings, nil
}
