package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"swotrace/internal/common"
	"swotrace/internal/config"
	"swotrace/internal/lister"
	"swotrace/internal/tracelog"
)

// filterList collects repeated -filter flags.
type filterList []tracelog.Filter

func (f *filterList) String() string {
	exprs := make([]string, len(*f))
	for i, flt := range *f {
		exprs[i] = flt.Expr
	}
	return strings.Join(exprs, ",")
}

func (f *filterList) Set(s string) error {
	if s == "" || s == "~" {
		return errors.New("empty filter")
	}
	*f = append(*f, tracelog.Filter{Expr: s, Enabled: true})
	return nil
}

// captureCmd holds the flags shared by the trace and profile subcommands.
type captureCmd struct {
	configPath  string
	verbose     bool
	metricsAddr string
	duration    time.Duration
	reconnect   bool

	tcpAddr  string
	port     uint
	file     string
	device   string
	dataSize int
	tpiuID   uint
}

var envPrefix = []ff.Option{ff.WithEnvVarPrefix("SWOTRACE")}

func (cmd *captureCmd) register(set *flag.FlagSet) {
	set.StringVar(&cmd.configPath, "config", "", "TOML settings file")
	set.BoolVar(&cmd.verbose, "v", false, "Log debug messages")
	set.StringVar(&cmd.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	set.DurationVar(&cmd.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	set.BoolVar(&cmd.reconnect, "reconnect", false, "Reopen the transport after a failure")
	set.StringVar(&cmd.tcpAddr, "tcp", "", "Read from a trace server at this address")
	set.UintVar(&cmd.port, "port", 0, "TCP port of the trace server")
	set.StringVar(&cmd.file, "file", "", "Replay a raw capture file")
	set.StringVar(&cmd.device, "device", "", "USB device path as bus-port")
	set.UintVar(&cmd.tpiuID, "tpiu", 0, "Strip TPIU frames and decode this source ID")
	set.IntVar(&cmd.dataSize, "datasize", -1, "ITM word size: 1, 2, 4 or 0 for auto (-1 keeps the settings file value)")
}

// settings loads the settings file and applies the command line overrides.
func (cmd *captureCmd) settings() (config.Config, error) {
	cfg := config.Default()
	if cmd.configPath != "" {
		var err error
		if cfg, err = config.Load(cmd.configPath); err != nil {
			return config.Config{}, err
		}
	}
	switch {
	case cmd.file != "":
		cfg.Transport.Kind = config.KindFile
		cfg.Transport.File = cmd.file
	case cmd.tcpAddr != "":
		cfg.Transport.Kind = config.KindTCP
		cfg.Transport.Address = cmd.tcpAddr
	case cmd.device != "":
		cfg.Transport.Kind = config.KindUSB
		cfg.Transport.DevicePath = cmd.device
	}
	if cmd.port > math.MaxUint16 {
		return config.Config{}, fmt.Errorf("-port %d out of range", cmd.port)
	}
	if cmd.tpiuID > math.MaxUint8 {
		return config.Config{}, fmt.Errorf("-tpiu %#x out of range", cmd.tpiuID)
	}
	if cmd.port != 0 {
		cfg.Transport.Port = uint16(cmd.port)
	}
	if cmd.dataSize >= 0 {
		cfg.Decode.DataSize = cmd.dataSize
	}
	if cmd.tpiuID != 0 {
		cfg.Decode.TPIUSource = uint8(cmd.tpiuID)
	}
	return cfg, cfg.Validate()
}

// listerConfig builds the run configuration common to both modes.
func (cmd *captureCmd) listerConfig(settings config.Config) lister.Config {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{})
	logger.SetOutput(os.Stderr)
	if cmd.verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return lister.Config{
		Settings:     settings,
		Duration:     cmd.duration,
		Reconnect:    cmd.reconnect,
		Logger:       common.NewLogrusLogger(logger).WithField("transport", settings.Transport.Kind),
		OutputWriter: os.Stdout,
	}
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// run executes a capture with the given mode.
func (cmd *captureCmd) run(ctx context.Context, cfg lister.Config) error {
	if cmd.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		cfg.Registerer = reg
		serveMetrics(ctx, cmd.metricsAddr, reg)
	}
	return lister.Run(ctx, cfg)
}
